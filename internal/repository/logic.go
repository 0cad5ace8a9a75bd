package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogicRepository persists chatbot logics. The type-specific config variant
// is stored as a single jsonb column keyed by the logic type.
type LogicRepository struct {
	db dbtx
}

func NewLogicRepository(pool *pgxpool.Pool) *LogicRepository {
	return &LogicRepository{db: pool}
}

func (r *LogicRepository) Create(ctx context.Context, l *domain.Logic) error {
	config, err := marshalLogicConfig(l)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO logics (id, chatbot_id, name, description, type, trigger_type, keywords, is_active, position, config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, l.ChatbotID, l.Name, nullableString(l.Description), l.Type, l.TriggerType, l.Keywords, l.IsActive, l.Position, config, l.CreatedAt, l.UpdatedAt,
	)
	return err
}

func (r *LogicRepository) GetByID(ctx context.Context, id string) (*domain.Logic, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, chatbot_id, name, description, type, trigger_type, keywords, is_active, position, config, created_at, updated_at
		 FROM logics WHERE id = $1`,
		id,
	)
	l, err := scanLogicRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLogicNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *LogicRepository) ListByChatbot(ctx context.Context, chatbotID string) ([]*domain.Logic, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, chatbot_id, name, description, type, trigger_type, keywords, is_active, position, config, created_at, updated_at
		 FROM logics WHERE chatbot_id = $1 ORDER BY position ASC, created_at ASC`,
		chatbotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logics []*domain.Logic
	for rows.Next() {
		l, err := scanLogicRow(rows)
		if err != nil {
			return nil, err
		}
		logics = append(logics, l)
	}
	return logics, rows.Err()
}

func (r *LogicRepository) Update(ctx context.Context, l *domain.Logic) error {
	config, err := marshalLogicConfig(l)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE logics
		 SET name = $1, description = $2, type = $3, trigger_type = $4, keywords = $5, is_active = $6, position = $7, config = $8, updated_at = $9
		 WHERE id = $10`,
		l.Name, nullableString(l.Description), l.Type, l.TriggerType, l.Keywords, l.IsActive, l.Position, config, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLogicNotFound
	}
	return nil
}

func (r *LogicRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM logics WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLogicNotFound
	}
	return nil
}

func marshalLogicConfig(l *domain.Logic) ([]byte, error) {
	switch l.Type {
	case domain.LogicTypeCollectLeads:
		return json.Marshal(l.LeadCollection)
	case domain.LogicTypeLinkButton:
		return json.Marshal(l.LinkButton)
	case domain.LogicTypeScheduleMeeting:
		return json.Marshal(l.MeetingSchedule)
	}
	return nil, fmt.Errorf("unknown logic type %q", l.Type)
}

func scanLogicRow(row pgx.Row) (*domain.Logic, error) {
	var l domain.Logic
	var description *string
	var logicType, triggerType string
	var config []byte
	if err := row.Scan(&l.ID, &l.ChatbotID, &l.Name, &description, &logicType, &triggerType, &l.Keywords, &l.IsActive, &l.Position, &config, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if description != nil {
		l.Description = *description
	}
	l.Type = domain.LogicType(logicType)
	l.TriggerType = domain.TriggerType(triggerType)

	switch l.Type {
	case domain.LogicTypeCollectLeads:
		l.LeadCollection = &domain.LeadCollectionConfig{}
		if err := json.Unmarshal(config, l.LeadCollection); err != nil {
			return nil, err
		}
	case domain.LogicTypeLinkButton:
		l.LinkButton = &domain.LinkButtonConfig{}
		if err := json.Unmarshal(config, l.LinkButton); err != nil {
			return nil, err
		}
	case domain.LogicTypeScheduleMeeting:
		l.MeetingSchedule = &domain.MeetingScheduleConfig{}
		if err := json.Unmarshal(config, l.MeetingSchedule); err != nil {
			return nil, err
		}
	}
	return &l, nil
}
