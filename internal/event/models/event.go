package models

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
)

// EventType selects the workflow and default template of an event.
type EventType string

const (
	EventTypeSpecialConference EventType = "SPECIAL_CONFERENCE"
	EventTypeSurveyMeeting     EventType = "SURVEY_MEETING"
	EventTypeBMMVoting         EventType = "BMM_VOTING"
)

// EventTypes lists every event type in a stable order.
var EventTypes = []EventType{EventTypeSpecialConference, EventTypeSurveyMeeting, EventTypeBMMVoting}

func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range EventTypes {
		if t == known {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown event type: "+s)
}

// Event is an admin-created occurrence of an event type.
type Event struct {
	ID               id.EventID        `json:"id"`
	Name             string            `json:"name"`
	Type             EventType         `json:"event_type"`
	TemplateID       uuid.UUID         `json:"template_id"`
	IsActive         bool              `json:"is_active"`
	RegistrationOpen bool              `json:"registration_open"`
	EventDate        *time.Time        `json:"event_date,omitempty"`
	Overrides        map[string]string `json:"overrides"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// EventTemplate holds per-type default content and feature flags.
type EventTemplate struct {
	ID                  uuid.UUID         `json:"id"`
	Name                string            `json:"name"`
	EventType           EventType         `json:"event_type"`
	LandingTitle        string            `json:"landing_title"`
	LandingText         string            `json:"landing_text"`
	RequiredSteps       []string          `json:"required_steps"`
	RequiresSpecialVote bool              `json:"requires_special_vote"`
	AllowsQRCheckin     bool              `json:"allows_qr_checkin"`
	Defaults            map[string]string `json:"defaults"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Keys of the effective configuration that come from template fields.
const (
	ConfigLandingTitle = "landing_title"
	ConfigLandingText  = "landing_text"
)

// EffectiveConfig overlays the event's overrides on the template defaults.
func EffectiveConfig(t *EventTemplate, e *Event) map[string]string {
	out := map[string]string{}
	if t != nil {
		maps.Copy(out, t.Defaults)
		out[ConfigLandingTitle] = t.LandingTitle
		out[ConfigLandingText] = t.LandingText
	}
	if e != nil {
		maps.Copy(out, e.Overrides)
	}
	return out
}

// DefaultTemplateName is the seed key for an event type's default template.
func DefaultTemplateName(t EventType) string {
	return "default-" + strings.ToLower(strings.ReplaceAll(string(t), "_", "-"))
}

// DefaultTemplates returns the seeded template per event type.
func DefaultTemplates(now time.Time) []*EventTemplate {
	tpls := []*EventTemplate{
		{
			Name:          DefaultTemplateName(EventTypeSpecialConference),
			EventType:     EventTypeSpecialConference,
			LandingTitle:  "Special Conference",
			LandingText:   "Confirm your details to register for the special conference.",
			RequiredSteps: []string{"verify", "financial_form", "attendance"},
			Defaults:      map[string]string{"show_financial_form": "true"},
		},
		{
			Name:          DefaultTemplateName(EventTypeSurveyMeeting),
			EventType:     EventTypeSurveyMeeting,
			LandingTitle:  "Survey Meeting",
			LandingText:   "Tell us whether you can attend the survey meeting.",
			RequiredSteps: []string{"verify", "attendance"},
			Defaults:      map[string]string{"show_financial_form": "false"},
		},
		{
			Name:                DefaultTemplateName(EventTypeBMMVoting),
			EventType:           EventTypeBMMVoting,
			LandingTitle:        "Biennial Membership Meeting",
			LandingText:         "Update your details, choose your venue and confirm attendance.",
			RequiredSteps:       []string{"verify", "financial_form", "preferences", "confirmation", "ticket"},
			RequiresSpecialVote: true,
			AllowsQRCheckin:     true,
			Defaults:            map[string]string{"show_financial_form": "true", "special_vote_enabled": "true"},
		},
	}
	for _, t := range tpls {
		t.ID = uuid.New()
		t.CreatedAt, t.UpdatedAt = now, now
	}
	return tpls
}

// CreateEventRequest is the admin payload for a new event.
type CreateEventRequest struct {
	Name             string            `json:"name"`
	Type             string            `json:"event_type"`
	EventDate        *time.Time        `json:"event_date,omitempty"`
	RegistrationOpen bool              `json:"registration_open"`
	Overrides        map[string]string `json:"overrides,omitempty"`
}

// UpdateEventRequest changes mutable event fields. Nil fields are left alone.
type UpdateEventRequest struct {
	Name             *string           `json:"name,omitempty"`
	EventDate        *time.Time        `json:"event_date,omitempty"`
	IsActive         *bool             `json:"is_active,omitempty"`
	RegistrationOpen *bool             `json:"registration_open,omitempty"`
	Overrides        map[string]string `json:"overrides,omitempty"`
}

func (r *CreateEventRequest) Validate() (EventType, error) {
	if strings.TrimSpace(r.Name) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "event name is required")
	}
	return ParseEventType(r.Type)
}

// Clone copies maps and pointers.
func (e *Event) Clone() *Event {
	c := *e
	c.Overrides = maps.Clone(e.Overrides)
	if e.EventDate != nil {
		d := *e.EventDate
		c.EventDate = &d
	}
	return &c
}

func (t *EventTemplate) Clone() *EventTemplate {
	c := *t
	c.Defaults = maps.Clone(t.Defaults)
	c.RequiredSteps = append([]string(nil), t.RequiredSteps...)
	return &c
}
