// Package transfer defines the value-transfer backend port. The ledger core
// treats fund movement as a synchronous call: an operation that moves value
// (withdraw, refund) runs the transfer inside its atomic mutation and aborts
// the whole mutation when the backend fails.
package transfer

import (
	"context"
	"errors"
	"fmt"

	id "pledger/pkg/domain"
)

//go:generate mockgen -source=transfer.go -destination=mocks/backend_mock.go -package=mocks

// Sentinel errors for backend facts. Services translate these into coded
// domain errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnavailable       = errors.New("transfer backend unavailable")
)

// Backend executes fund movement on behalf of the ledger. Accounts are opaque
// strings: donor/owner accounts are identities, campaign escrow accounts come
// from EscrowAccount.
type Backend interface {
	// Deposit credits an account. Used when a donation moves pledged funds
	// into campaign escrow.
	Deposit(ctx context.Context, account string, amount int64) error

	// Transfer debits from and credits to atomically. Returns
	// ErrInsufficientFunds when the source balance cannot cover amount.
	Transfer(ctx context.Context, from, to string, amount int64) error

	// Balance reports the current balance of an account.
	Balance(ctx context.Context, account string) (int64, error)
}

// EscrowAccount names the escrow account custodying a campaign's pledged
// funds.
func EscrowAccount(campaignID id.CampaignID) string {
	return fmt.Sprintf("campaign:%s", campaignID)
}

// IdentityAccount names the account of an external identity.
func IdentityAccount(identity id.Identity) string {
	return "identity:" + identity.String()
}
