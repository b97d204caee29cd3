package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/email"
)

// Member is one union member. MembershipNumber is the only identity key;
// email is never unique.
type Member struct {
	ID               id.MemberID `json:"id"`
	MembershipNumber string      `json:"membership_number"`
	Name             string      `json:"name"`
	FirstName        string      `json:"first_name,omitempty"`
	LastName         string      `json:"last_name,omitempty"`
	PrimaryEmail     *string     `json:"primary_email"`
	TelephoneMobile  string      `json:"telephone_mobile,omitempty"`
	HasEmail         bool        `json:"has_email"`
	HasMobile        bool        `json:"has_mobile"`
	Token            string      `json:"-"`
	VerificationCode string      `json:"-"`
	HasRegistered    bool        `json:"has_registered"`
	IsAttending      bool        `json:"is_attending"`
	IsSpecialVote    bool        `json:"is_special_vote"`
	HasVoted         bool        `json:"has_voted"`
	DataSource       id.Source   `json:"data_source"`

	DateOfBirth string `json:"date_of_birth,omitempty"`
	Address     string `json:"address,omitempty"`
	Region      string `json:"region,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Workplace   string `json:"workplace,omitempty"`
	Employer    string `json:"employer,omitempty"`
	Industry    string `json:"industry,omitempty"`
	JobTitle    string `json:"job_title,omitempty"`
	Forum       string `json:"forum,omitempty"`

	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastImportedAt *time.Time `json:"last_imported_at,omitempty"`
}

// NewMember creates a member with a fresh registration token and verification
// code. Those two credentials are never regenerated afterwards.
func NewMember(membershipNumber, name string, source id.Source, now time.Time) (*Member, error) {
	membershipNumber = strings.TrimSpace(membershipNumber)
	name = strings.TrimSpace(name)
	if membershipNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "membership number is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	code, err := NewVerificationCode()
	if err != nil {
		return nil, err
	}
	return &Member{
		ID:               id.NewMemberID(),
		MembershipNumber: membershipNumber,
		Name:             name,
		Token:            uuid.NewString(),
		VerificationCode: code,
		DataSource:       source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NewVerificationCode returns a uniformly random 6-digit code.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Email returns the primary email or "".
func (m *Member) Email() string {
	if m.PrimaryEmail == nil {
		return ""
	}
	return *m.PrimaryEmail
}

// DeliverableEmail returns the primary email unless it is missing or a placeholder.
func (m *Member) DeliverableEmail() string {
	e := m.Email()
	if e == "" || email.IsPlaceholder(e) {
		return ""
	}
	return e
}

// SetContact records email and mobile and refreshes HasEmail/HasMobile from
// the real values. A placeholder address never counts as an email.
func (m *Member) SetContact(primaryEmail *string, mobile string) {
	m.PrimaryEmail = primaryEmail
	m.TelephoneMobile = strings.TrimSpace(mobile)
	m.RefreshContactFlags()
}

// RefreshContactFlags recomputes HasEmail and HasMobile.
func (m *Member) RefreshContactFlags() {
	e := m.Email()
	m.HasEmail = e != "" && !email.IsPlaceholder(e)
	m.HasMobile = email.Digits(m.TelephoneMobile) != ""
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	c := *m
	if m.PrimaryEmail != nil {
		e := *m.PrimaryEmail
		c.PrimaryEmail = &e
	}
	if m.LastImportedAt != nil {
		t := *m.LastImportedAt
		c.LastImportedAt = &t
	}
	return &c
}
