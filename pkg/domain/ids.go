// Package domain holds typed identifiers shared across modules.
//
// Each ID wraps a UUID so a MemberID can never be passed where an EventID is
// expected. Parse functions are the trust boundary for path and body input.
package domain

import (
	"database/sql/driver"
	"strings"

	"github.com/google/uuid"

	dErrors "unionhub/pkg/domain-errors"
)

type (
	MemberID      uuid.UUID
	EventID       uuid.UUID
	EventMemberID uuid.UUID
)

func NewMemberID() MemberID           { return MemberID(uuid.New()) }
func NewEventID() EventID             { return EventID(uuid.New()) }
func NewEventMemberID() EventMemberID { return EventMemberID(uuid.New()) }

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member id")
	return MemberID(u), err
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

func ParseEventMemberID(s string) (EventMemberID, error) {
	u, err := parseUUID(s, "event member id")
	return EventMemberID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

func (id MemberID) String() string { return uuid.UUID(id).String() }
func (id MemberID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *MemberID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id MemberID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *MemberID) Scan(src any) error          { return (*uuid.UUID)(id).Scan(src) }

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EventID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *EventID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id EventID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *EventID) Scan(src any) error          { return (*uuid.UUID)(id).Scan(src) }

func (id EventMemberID) String() string { return uuid.UUID(id).String() }
func (id EventMemberID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EventMemberID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *EventMemberID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id EventMemberID) Value() (driver.Value, error) { return uuid.UUID(id).Value() }
func (id *EventMemberID) Scan(src any) error          { return (*uuid.UUID)(id).Scan(src) }
