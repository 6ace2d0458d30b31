package audit

import (
	"time"

	id "pledger/pkg/domain"
)

// Action names a completed ledger mutation. Sinks (reputation, Kafka) key
// off these values, so they are part of the wire contract.
type Action string

const (
	ActionCampaignCreated    Action = "campaign_created"
	ActionDonationMade       Action = "donation_made"
	ActionStatusResolved     Action = "status_resolved"
	ActionFundsWithdrawn     Action = "funds_withdrawn"
	ActionRefundClaimed      Action = "refund_claimed"
	ActionMilestoneCompleted Action = "milestone_completed"
	ActionMilestoneUpdated   Action = "milestone_updated"
	ActionProposalCreated    Action = "proposal_created"
	ActionVoteCast           Action = "vote_cast"
	ActionProposalExecuted   Action = "proposal_executed"
	ActionVerificationRuled  Action = "verification_ruled"
	ActionTierIncreased      Action = "reputation_tier_increased"
)

// Event is emitted after every completed mutation. Keep it transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Actor     id.Identity `json:"actor"`
	Action    Action      `json:"action"`
	Entity    string      `json:"entity,omitempty"`
	EntityID  uint64      `json:"entity_id,omitempty"`
	Amount    int64       `json:"amount,omitempty"`
	Detail    string      `json:"detail,omitempty"`
}
