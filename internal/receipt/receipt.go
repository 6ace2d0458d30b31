// Package receipt mints donation receipts: unique, immutable records proving
// a specific donation occurred. Exactly one receipt exists per donation
// event; there are no burn or transfer semantics.
package receipt

import (
	"time"

	id "pledger/pkg/domain"
)

// Receipt links a donation to its campaign and donor. Immutable once minted.
type Receipt struct {
	ID         id.ReceiptID
	CampaignID id.CampaignID
	Donor      id.Identity
	Amount     int64
	IssuedAt   time.Time
}
