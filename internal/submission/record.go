// Package submission routes a validated signup record to durable storage,
// degrading through strategies when the preferred path is unavailable.
package submission

import (
	"strings"
	"time"

	"github.com/harborlane/signup-gateway/internal/errors"
)

// Record is an accepted signup submission. ReferenceID is generated on
// both success and failure paths so support can correlate logs without
// exposing internals.
type Record struct {
	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Website      string `json:"website,omitempty"`
	Notes        string `json:"notes,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	OwnerSubjectID string    `json:"owner_subject_id"`
	ReferenceID    string    `json:"reference_id"`
}

// Validate performs structural checks only. Field-level form rules live
// with the form, not here.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.BusinessName) == "" {
		return errors.InvalidInput("business_name is required")
	}
	if strings.TrimSpace(r.ContactName) == "" {
		return errors.InvalidInput("contact_name is required")
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return errors.InvalidInput("email is required")
	}
	if !strings.Contains(email, "@") {
		return errors.InvalidInput("email is not valid")
	}
	return nil
}
