// Package domainerrors provides coded errors for the ledger core.
//
// Stores and infrastructure return plain or sentinel errors; services
// translate them into coded errors so transports can map them to wire
// responses without string matching. Codes are part of the API surface and
// are surfaced verbatim to callers alongside a human-readable reason.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error kind.
type Code string

// Validation failures: rejected before any mutation.
const (
	CodeInvalidAmount         Code = "invalid_amount"
	CodeInvalidDuration       Code = "invalid_duration"
	CodeInvalidMilestoneCount Code = "invalid_milestone_count"
	CodeInvalidKYC            Code = "invalid_kyc"
	CodeDeadlinePassed        Code = "deadline_passed"
	CodeBadRequest            Code = "bad_request"
)

// Authorization failures: the caller identity check failed.
const (
	CodeUnauthorized Code = "unauthorized"
	CodeNotOwner     Code = "not_owner"
)

// State failures: the entity exists but is in the wrong phase.
const (
	CodeInvalidStatus        Code = "invalid_status"
	CodeAlreadyVoted         Code = "already_voted"
	CodeAlreadyExecuted      Code = "already_executed"
	CodeRefundAlreadyClaimed Code = "refund_already_claimed"
	CodeCampaignNotFailed    Code = "campaign_not_failed"
	CodeQuorumNotMet         Code = "quorum_not_met"
	CodeProposalRejected     Code = "proposal_rejected"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
)

// Resource failures: the value-transfer backend refused or failed.
const (
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeTransferFailed    Code = "transfer_failed"
)

// CodeInternal covers unexpected infrastructure failures.
const CodeInternal Code = "internal"

// Error is a coded domain error. It wraps an optional cause so errors.Is and
// errors.As keep working across layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		de = nil
	}
	return false
}

// Is is a convenience alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto an HTTP status for the transport layer.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidAmount, CodeInvalidDuration, CodeInvalidMilestoneCount,
		CodeDeadlinePassed, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidKYC, CodeNotOwner:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidStatus, CodeAlreadyVoted, CodeAlreadyExecuted,
		CodeRefundAlreadyClaimed, CodeCampaignNotFailed, CodeQuorumNotMet,
		CodeProposalRejected, CodeConflict:
		return http.StatusConflict
	case CodeInsufficientFunds, CodeTransferFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
