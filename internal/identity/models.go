package identity

import (
	"errors"
	"time"

	id "pledger/pkg/domain"
)

// ErrNotFound is returned by stores when no record exists for an identity.
var ErrNotFound = errors.New("verification record not found")

// VerificationStatus is the lifecycle of an identity verification.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
	StatusRejected   VerificationStatus = "rejected"
)

// IsValid checks if the status is one of the supported enum values.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusUnverified, StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// VerificationRecord captures one identity's verification workflow. The
// ledger stores only hashes of PII; the documents themselves never reach
// the core.
type VerificationRecord struct {
	Identity     id.Identity
	NameHash     string
	DocumentHash string
	Status       VerificationStatus
	SubmittedAt  time.Time
	DecidedAt    *time.Time
}

// Clone returns a deep copy so store reads never leak mutable state.
func (r *VerificationRecord) Clone() *VerificationRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		out.DecidedAt = &t
	}
	return &out
}
