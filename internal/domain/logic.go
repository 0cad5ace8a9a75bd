package domain

import "time"

// LogicType is the discriminator of the logic config union. Each logic record
// carries exactly one variant matching its type.
type LogicType string

const (
	LogicTypeCollectLeads    LogicType = "COLLECT_LEADS"
	LogicTypeLinkButton      LogicType = "LINK_BUTTON"
	LogicTypeScheduleMeeting LogicType = "SCHEDULE_MEETING"
)

// TriggerType controls when a logic activates during a conversation.
type TriggerType string

const (
	TriggerTypeKeyword           TriggerType = "KEYWORD"
	TriggerTypeAlways            TriggerType = "ALWAYS"
	TriggerTypeManual            TriggerType = "MANUAL"
	TriggerTypeEndOfConversation TriggerType = "END_OF_CONVERSATION"
)

// FieldType enumerates lead-form field kinds.
type FieldType string

const (
	FieldTypeText     FieldType = "TEXT"
	FieldTypeEmail    FieldType = "EMAIL"
	FieldTypePhone    FieldType = "PHONE"
	FieldTypeNumber   FieldType = "NUMBER"
	FieldTypeCurrency FieldType = "CURRENCY"
	FieldTypeDate     FieldType = "DATE"
	FieldTypeLink     FieldType = "LINK"
)

// Field is one input in a lead-collection form.
type Field struct {
	ID          string    `json:"id"`
	Type        FieldType `json:"type"`
	Label       string    `json:"label"`
	Required    bool      `json:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// LeadCollectionConfig configures a lead-capture form.
type LeadCollectionConfig struct {
	FormTitle      string  `json:"form_title"`
	FormDesc       string  `json:"form_desc,omitempty"`
	Fields         []Field `json:"fields"`
	SuccessMessage string  `json:"success_message,omitempty"`
	RedirectURL    string  `json:"redirect_url,omitempty"`
	NotifyEmail    string  `json:"notify_email,omitempty"`
	WebhookURL     string  `json:"webhook_url,omitempty"`
}

// LinkButtonConfig configures a call-to-action button in the widget.
type LinkButtonConfig struct {
	ButtonText   string `json:"button_text"`
	ButtonLink   string `json:"button_link"`
	OpenInNewTab bool   `json:"open_in_new_tab"`
	ButtonColor  string `json:"button_color,omitempty"`
	TextColor    string `json:"text_color,omitempty"`
}

// MeetingScheduleConfig configures meeting scheduling via an external calendar.
type MeetingScheduleConfig struct {
	CalendarType string `json:"calendar_type"`
	CalendarLink string `json:"calendar_link"`
	Duration     int    `json:"duration,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// Logic is a persisted behavior attached to a chatbot. The type-specific
// configuration is a tagged union: exactly one of the config fields is set,
// matching Type.
type Logic struct {
	ID          string
	ChatbotID   string
	Name        string
	Description string
	Type        LogicType
	TriggerType TriggerType
	Keywords    []string
	IsActive    bool
	Position    int

	LeadCollection  *LeadCollectionConfig
	LinkButton      *LinkButtonConfig
	MeetingSchedule *MeetingScheduleConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateLogic validates a Logic instance, including that the config variant
// matches the declared type and no other variant is set.
func ValidateLogic(l *Logic) error {
	if l == nil {
		return NewDomainError(ErrCodeValidation, "logic cannot be nil")
	}
	if l.ChatbotID == "" {
		return NewDomainError(ErrCodeValidation, "logic ChatbotID is required")
	}
	if l.Name == "" {
		return NewDomainError(ErrCodeValidation, "logic Name is required")
	}
	if !isValidLogicType(l.Type) {
		return ErrInvalidLogicType
	}
	if !isValidTriggerType(l.TriggerType) {
		return ErrInvalidTriggerType
	}
	if l.TriggerType == TriggerTypeKeyword && len(l.Keywords) == 0 {
		return NewDomainError(ErrCodeValidation, "keyword trigger requires at least one keyword")
	}

	variants := 0
	if l.LeadCollection != nil {
		variants++
	}
	if l.LinkButton != nil {
		variants++
	}
	if l.MeetingSchedule != nil {
		variants++
	}
	if variants != 1 {
		return NewDomainError(ErrCodeValidation, "logic must carry exactly one config variant")
	}

	switch l.Type {
	case LogicTypeCollectLeads:
		if l.LeadCollection == nil {
			return NewDomainError(ErrCodeValidation, "COLLECT_LEADS logic requires a lead collection config")
		}
		if len(l.LeadCollection.Fields) == 0 {
			return NewDomainError(ErrCodeValidation, "lead collection requires at least one field")
		}
	case LogicTypeLinkButton:
		if l.LinkButton == nil {
			return NewDomainError(ErrCodeValidation, "LINK_BUTTON logic requires a link button config")
		}
		if l.LinkButton.ButtonText == "" || l.LinkButton.ButtonLink == "" {
			return NewDomainError(ErrCodeValidation, "link button requires text and link")
		}
	case LogicTypeScheduleMeeting:
		if l.MeetingSchedule == nil {
			return NewDomainError(ErrCodeValidation, "SCHEDULE_MEETING logic requires a meeting schedule config")
		}
		if l.MeetingSchedule.CalendarLink == "" {
			return NewDomainError(ErrCodeValidation, "meeting schedule requires a calendar link")
		}
	}

	return nil
}

func isValidLogicType(t LogicType) bool {
	switch t {
	case LogicTypeCollectLeads, LogicTypeLinkButton, LogicTypeScheduleMeeting:
		return true
	}
	return false
}

func isValidTriggerType(t TriggerType) bool {
	switch t {
	case TriggerTypeKeyword, TriggerTypeAlways, TriggerTypeManual, TriggerTypeEndOfConversation:
		return true
	}
	return false
}
