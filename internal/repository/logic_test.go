//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/beaconchat/beacon/internal/domain"
	"github.com/beaconchat/beacon/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicRepository_Create_LinkButton(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	logicRepo := NewLogicRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &domain.Logic{
		ID:          uuid.NewString(),
		ChatbotID:   bot.ID,
		Name:        "Pricing CTA",
		Description: "Show the pricing page",
		Type:        domain.LogicTypeLinkButton,
		TriggerType: domain.TriggerTypeKeyword,
		Keywords:    []string{"price", "cost"},
		IsActive:    true,
		Position:    1,
		LinkButton: &domain.LinkButtonConfig{
			ButtonText:   "See pricing",
			ButtonLink:   "https://example.com/pricing",
			OpenInNewTab: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, logicRepo.Create(ctx, l))

	retrieved, err := logicRepo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Name, retrieved.Name)
	assert.Equal(t, domain.LogicTypeLinkButton, retrieved.Type)
	assert.Equal(t, []string{"price", "cost"}, retrieved.Keywords)
	require.NotNil(t, retrieved.LinkButton)
	assert.Equal(t, "See pricing", retrieved.LinkButton.ButtonText)
	assert.True(t, retrieved.LinkButton.OpenInNewTab)
	assert.Nil(t, retrieved.LeadCollection)
	assert.Nil(t, retrieved.MeetingSchedule)
}

func TestLogicRepository_Create_LeadCollection_ConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	logicRepo := NewLogicRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &domain.Logic{
		ID:          uuid.NewString(),
		ChatbotID:   bot.ID,
		Name:        "Lead form",
		Type:        domain.LogicTypeCollectLeads,
		TriggerType: domain.TriggerTypeEndOfConversation,
		IsActive:    true,
		LeadCollection: &domain.LeadCollectionConfig{
			FormTitle: "Stay in touch",
			Fields: []domain.Field{
				{ID: "email", Type: domain.FieldTypeEmail, Label: "Email", Required: true},
				{ID: "company", Type: domain.FieldTypeText, Label: "Company", Options: nil},
			},
			SuccessMessage: "Thanks, we will reach out.",
			NotifyEmail:    "sales@example.com",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, logicRepo.Create(ctx, l))

	retrieved, err := logicRepo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved.LeadCollection)
	assert.Equal(t, "Stay in touch", retrieved.LeadCollection.FormTitle)
	require.Len(t, retrieved.LeadCollection.Fields, 2)
	assert.Equal(t, domain.FieldTypeEmail, retrieved.LeadCollection.Fields[0].Type)
	assert.True(t, retrieved.LeadCollection.Fields[0].Required)
	assert.Equal(t, "sales@example.com", retrieved.LeadCollection.NotifyEmail)
}

func TestLogicRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	logicRepo := NewLogicRepository(pool)

	_, err := logicRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrLogicNotFound)
}

func TestLogicRepository_ListByChatbot(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	logicRepo := NewLogicRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	for i, name := range []string{"Second", "First"} {
		l := &domain.Logic{
			ID:          uuid.NewString(),
			ChatbotID:   bot.ID,
			Name:        name,
			Type:        domain.LogicTypeLinkButton,
			TriggerType: domain.TriggerTypeAlways,
			IsActive:    true,
			Position:    2 - i,
			LinkButton:  &domain.LinkButtonConfig{ButtonText: name, ButtonLink: "https://example.com"},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, logicRepo.Create(ctx, l))
	}

	list, err := logicRepo.ListByChatbot(ctx, bot.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Name)
	assert.Equal(t, "Second", list[1].Name)
}

func TestLogicRepository_Update(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	logicRepo := NewLogicRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &domain.Logic{
		ID:          uuid.NewString(),
		ChatbotID:   bot.ID,
		Name:        "Meeting",
		Type:        domain.LogicTypeScheduleMeeting,
		TriggerType: domain.TriggerTypeManual,
		IsActive:    true,
		MeetingSchedule: &domain.MeetingScheduleConfig{
			CalendarType: "calendly",
			CalendarLink: "https://calendly.com/acme/30min",
			Duration:     30,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, logicRepo.Create(ctx, l))

	l.Name = "Book a demo"
	l.IsActive = false
	l.MeetingSchedule.Duration = 45
	l.UpdatedAt = now.Add(time.Second)
	require.NoError(t, logicRepo.Update(ctx, l))

	retrieved, err := logicRepo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book a demo", retrieved.Name)
	assert.False(t, retrieved.IsActive)
	require.NotNil(t, retrieved.MeetingSchedule)
	assert.Equal(t, 45, retrieved.MeetingSchedule.Duration)
}

func TestLogicRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	bot := setupChatbotFixture(ctx, t, pool)
	logicRepo := NewLogicRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	l := &domain.Logic{
		ID:          uuid.NewString(),
		ChatbotID:   bot.ID,
		Name:        "Doomed",
		Type:        domain.LogicTypeLinkButton,
		TriggerType: domain.TriggerTypeAlways,
		LinkButton:  &domain.LinkButtonConfig{ButtonText: "x", ButtonLink: "https://example.com"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, logicRepo.Create(ctx, l))

	require.NoError(t, logicRepo.Delete(ctx, l.ID))

	_, err := logicRepo.GetByID(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrLogicNotFound)

	err = logicRepo.Delete(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrLogicNotFound)
}
