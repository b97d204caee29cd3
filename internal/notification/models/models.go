package models

import (
	"time"

	"github.com/google/uuid"

	id "unionhub/pkg/domain"
)

// Channel is the delivery medium of a message.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Template codes with a default template created on startup.
const (
	CodeBMMInvitation        = "BMM_INVITATION"
	CodeBMMConfirmation      = "BMM_CONFIRMATION"
	CodeBMMSpecialVoteLink   = "BMM_SPECIAL_VOTE_LINK"
	CodeBMMTicket            = "BMM_TICKET"
	CodeBMMTicketSMS         = "BMM_TICKET_SMS"
	CodeFinancialFormReceipt = "FINANCIAL_FORM_RECEIPT"
)

// Notification types tag queue payloads and log rows.
const (
	TypeInvitation      = "BMM_INVITATION"
	TypeConfirmation    = "BMM_CONFIRMATION"
	TypeSpecialVoteLink = "BMM_SPECIAL_VOTE_LINK"
	TypeTicket          = "BMM_TICKET"
	TypeFormReceipt     = "FINANCIAL_FORM_RECEIPT"
)

// Template is one version of a named subject/body pair with {{placeholder}} tokens.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Version   int       `json:"version"`
	Channel   Channel   `json:"channel"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a fully rendered outbound notification.
type Message struct {
	Channel          Channel           `json:"channel"`
	Recipient        string            `json:"recipient"`
	RecipientName    string            `json:"recipient_name,omitempty"`
	Subject          string            `json:"subject,omitempty"`
	Content          string            `json:"content"`
	TemplateCode     string            `json:"template_code"`
	NotificationType string            `json:"notification_type"`
	EventMemberID    *id.EventMemberID `json:"event_member_id,omitempty"`
}

// Log is the append-only record of one email attempt.
type Log struct {
	ID               uuid.UUID         `json:"id"`
	Channel          Channel           `json:"channel"`
	Recipient        string            `json:"recipient"`
	Subject          string            `json:"subject"`
	Content          string            `json:"content"`
	TemplateCode     string            `json:"template_code"`
	NotificationType string            `json:"notification_type"`
	EventMemberID    *id.EventMemberID `json:"event_member_id,omitempty"`
	Success          bool              `json:"success"`
	ErrorMessage     string            `json:"error_message,omitempty"`
	AdminUsername    string            `json:"admin_username,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Recipient holds a member's contact points. Empty values are absent.
type Recipient struct {
	Name   string
	Email  string
	Mobile string
}

// Notification asks for a templated message to reach a member, by email
// when possible and otherwise by SMS when an SMS template is given.
type Notification struct {
	EmailTemplate string
	SMSTemplate   string
	To            Recipient
	Vars          map[string]string
	Type          string
	EventMemberID *id.EventMemberID
}

// UpdateTemplateRequest publishes a new version of a template.
type UpdateTemplateRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// LogFilter narrows notification log listings. Zero values match everything.
type LogFilter struct {
	EventMemberID *id.EventMemberID
	Type          string
	Limit         int
}

// Matches reports whether l satisfies f.
func (f LogFilter) Matches(l *Log) bool {
	if f.Type != "" && l.NotificationType != f.Type {
		return false
	}
	if f.EventMemberID != nil && (l.EventMemberID == nil || *l.EventMemberID != *f.EventMemberID) {
		return false
	}
	return true
}
