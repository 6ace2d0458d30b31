package domain

import (
	"strconv"

	dErrors "pledger/pkg/domain-errors"
)

// Identity is the pseudonymous caller identity supplied by the external
// signer. The ledger never interprets it beyond equality checks.
//
// Usage: construct via ParseIdentity at trust boundaries; direct casting
// bypasses validation.
type Identity string

// ParseIdentity constructs an Identity from external input.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity cannot be empty")
	}
	return Identity(s), nil
}

// IsNil returns true if the identity is empty.
func (i Identity) IsNil() bool {
	return i == ""
}

// String returns the string representation of the identity.
func (i Identity) String() string {
	return string(i)
}

// CampaignID identifies a campaign. IDs are assigned monotonically by the
// campaign store and are never reused.
type CampaignID uint64

// ParseCampaignID parses a decimal campaign ID from external input.
func ParseCampaignID(s string) (CampaignID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid campaign id")
	}
	return CampaignID(n), nil
}

// IsNil returns true if the campaign ID is unset.
func (c CampaignID) IsNil() bool {
	return c == 0
}

// String returns the decimal representation of the campaign ID.
func (c CampaignID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ProposalID identifies a governance proposal, assigned monotonically by the
// proposal store.
type ProposalID uint64

// ParseProposalID parses a decimal proposal ID from external input.
func ParseProposalID(s string) (ProposalID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id")
	}
	return ProposalID(n), nil
}

// IsNil returns true if the proposal ID is unset.
func (p ProposalID) IsNil() bool {
	return p == 0
}

// String returns the decimal representation of the proposal ID.
func (p ProposalID) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// ReceiptID identifies a donation receipt, assigned monotonically by the
// receipt issuer.
type ReceiptID uint64

// ParseReceiptID parses a decimal receipt ID from external input.
func ParseReceiptID(s string) (ReceiptID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid receipt id")
	}
	return ReceiptID(n), nil
}

// IsNil returns true if the receipt ID is unset.
func (r ReceiptID) IsNil() bool {
	return r == 0
}

// String returns the decimal representation of the receipt ID.
func (r ReceiptID) String() string {
	return strconv.FormatUint(uint64(r), 10)
}
