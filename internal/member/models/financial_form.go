package models

import (
	"time"

	"github.com/google/uuid"

	id "unionhub/pkg/domain"
)

// SyncStatus tracks the external membership-system sync of a form.
type SyncStatus string

const (
	SyncPending SyncStatus = "PENDING"
	SyncSynced  SyncStatus = "SYNCED"
	SyncFailed  SyncStatus = "FAILED"
	SyncSkipped SyncStatus = "SKIPPED"
)

// FinancialForm is the append-only audit record of one self-service update.
type FinancialForm struct {
	ID            uuid.UUID   `json:"id"`
	MemberID      id.MemberID `json:"member_id"`
	Before        Profile     `json:"before"`
	After         Profile     `json:"after"`
	ChangedFields []string    `json:"changed_fields"`
	Source        id.Source   `json:"source"`
	SyncStatus    SyncStatus  `json:"sync_status"`
	SyncError     string      `json:"sync_error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	SyncedAt      *time.Time  `json:"synced_at,omitempty"`
}

// FinancialFormRequest is the member's submission.
type FinancialFormRequest struct {
	EventID *id.EventID `json:"event_id,omitempty"`
	Profile Profile     `json:"profile"`
}

// VerifyRequest exchanges a membership number and code for the member token.
type VerifyRequest struct {
	MembershipNumber string `json:"membership_number"`
	VerificationCode string `json:"verification_code"`
}

// Filter narrows admin member listings.
type Filter struct {
	Region     string
	DataSource id.Source
	Search     string
	Limit      int
	Offset     int
}
