package campaign

import (
	"time"

	id "pledger/pkg/domain"
)

// Status is the campaign lifecycle. Transitions only move forward:
// Active -> Successful | Failed, Successful -> Paid.
type Status string

const (
	StatusActive     Status = "active"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusPaid       Status = "paid"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuccessful, StatusFailed, StatusPaid:
		return true
	}
	return false
}

// Terminal reports whether no further status transition is possible.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusPaid
}

// MaxMilestones bounds the milestone schedule length.
const MaxMilestones = 10

// Campaign is the authoritative funding record. The campaign store is the
// only writer of AmountCollected, Status, and the donor lists.
type Campaign struct {
	ID              id.CampaignID
	Owner           id.Identity
	Title           string
	Description     string
	Target          int64
	Deadline        time.Time
	AmountCollected int64
	ImageRef        string

	// Donors and DonationAmounts are parallel: entry i records one donation
	// event. A donor appears once per donation, not once per identity.
	Donors          []id.Identity
	DonationAmounts []int64

	PaidOut               bool
	Milestones            []int64
	CurrentMilestoneIndex int
	Status                Status
	CreatedAt             time.Time
}

// Clone returns a deep copy so store reads never leak mutable state.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.Donors = append([]id.Identity(nil), c.Donors...)
	out.DonationAmounts = append([]int64(nil), c.DonationAmounts...)
	out.Milestones = append([]int64(nil), c.Milestones...)
	return &out
}

// DonatedBy sums a donor's cumulative donations to this campaign.
func (c *Campaign) DonatedBy(donor id.Identity) int64 {
	var total int64
	for i, d := range c.Donors {
		if d == donor {
			total += c.DonationAmounts[i]
		}
	}
	return total
}

// TotalBackers counts unique donor identities.
func (c *Campaign) TotalBackers() int {
	seen := make(map[id.Identity]struct{}, len(c.Donors))
	for _, d := range c.Donors {
		seen[d] = struct{}{}
	}
	return len(seen)
}

// Analytics is the read-model the polling UI renders.
type Analytics struct {
	CampaignID             id.CampaignID `json:"campaign_id"`
	TotalBackers           int           `json:"total_backers"`
	FundingProgressPercent int64         `json:"funding_progress_percent"`
	TimeRemainingSeconds   int64         `json:"time_remaining_seconds"`
	CurrentMilestoneIndex  int           `json:"current_milestone_index"`
}

// StatusResult reports one campaign's outcome from a batch evaluation.
type StatusResult struct {
	CampaignID id.CampaignID `json:"campaign_id"`
	Status     Status        `json:"status,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ValidateSchedule checks a milestone schedule: non-empty, at most
// MaxMilestones entries, strictly ascending, all positive.
func ValidateSchedule(milestones []int64) bool {
	if len(milestones) == 0 || len(milestones) > MaxMilestones {
		return false
	}
	var prev int64
	for _, m := range milestones {
		if m <= prev {
			return false
		}
		prev = m
	}
	return true
}
