package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"unionhub/pkg/requestcontext"
)

// EventCategory classifies audit events by their primary purpose so that
// retention and review can differ per category.
type EventCategory string

const (
	// CategoryCompliance covers changes to member records and voting state.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers admin sessions and failed identity checks.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine admin activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Category   EventCategory     `json:"category"`
	Action     string            `json:"action"`
	Subject    string            `json:"subject,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Category EventCategory
	Action   string
	Subject  string
	Actor    string
	Limit    int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Normalize clamps the limit into range.
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Matches reports whether e passes every non-zero filter field.
func (f Filter) Matches(e Event) bool {
	return (f.Category == "" || e.Category == f.Category) &&
		(f.Action == "" || e.Action == f.Action) &&
		(f.Subject == "" || e.Subject == f.Subject) &&
		(f.Actor == "" || e.Actor == f.Actor)
}

// Store is the append-only persistence behind a publisher.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

var eventCategories = map[string]EventCategory{
	"admin_login":                CategorySecurity,
	"admin_login_failed":         CategorySecurity,
	"admin_created":              CategorySecurity,
	"member_verification_failed": CategorySecurity,

	"members_imported":           CategoryCompliance,
	"financial_form_submitted":   CategoryCompliance,
	"bmm_stage_overridden":       CategoryCompliance,
	"bmm_special_vote_processed": CategoryCompliance,
	"bmm_special_vote_reviewed":  CategoryCompliance,
	"bmm_checked_in":             CategoryCompliance,
}

// CategoryOf returns the category for action. Unknown actions are operations.
func CategoryOf(action string) EventCategory {
	if cat, ok := eventCategories[action]; ok {
		return cat
	}
	return CategoryOperations
}

// subjectKeys are tried in order to pick the entity an event is about.
var subjectKeys = []string{"member_id", "event_member_id", "event_id", "username", "code", "source"}

// NewEvent builds an event from slog style key/value attributes. The request
// id and acting admin come from ctx.
func NewEvent(ctx context.Context, action string, attributes ...any) Event {
	e := Event{
		Category:  CategoryOf(action),
		Action:    action,
		Actor:     requestcontext.AdminUsername(ctx),
		RequestID: requestcontext.RequestID(ctx),
	}
	if len(attributes) > 1 {
		e.Attributes = make(map[string]string, len(attributes)/2)
		for i := 0; i+1 < len(attributes); i += 2 {
			key, ok := attributes[i].(string)
			if !ok {
				continue
			}
			e.Attributes[key] = fmt.Sprint(attributes[i+1])
		}
	}
	for _, key := range subjectKeys {
		if v := e.Attributes[key]; v != "" {
			e.Subject = v
			break
		}
	}
	return e
}
