package governance

import (
	"time"

	id "pledger/pkg/domain"
)

// ProposalType labels what a proposal changes when executed.
type ProposalType string

const (
	TypeGeneral         ProposalType = "general"
	TypeParameterChange ProposalType = "parameter_change"
	TypeUpgrade         ProposalType = "upgrade"
)

// IsValid checks if the proposal type is one of the supported enum values.
func (t ProposalType) IsValid() bool {
	switch t {
	case TypeGeneral, TypeParameterChange, TypeUpgrade:
		return true
	}
	return false
}

// Voting window bounds.
const (
	MinVotingPeriod = 24 * time.Hour
	MaxVotingPeriod = 7 * 24 * time.Hour
)

// Proposal is a governance proposal against one campaign.
// Invariants: TotalVotes == ForVotes + AgainstVotes; one vote per voter;
// Executed is set at most once.
type Proposal struct {
	ID          id.ProposalID
	CampaignID  id.CampaignID
	Creator     id.Identity
	Description string
	Type        ProposalType
	EndTime     time.Time
	CreatedAt   time.Time

	ForVotes     int64
	AgainstVotes int64
	TotalVotes   int64
	Executed     bool

	// Voters maps each voter to the weight it cast, keyed per
	// (proposal, voter) to forbid re-voting.
	Voters map[id.Identity]int64

	// NewMilestones is the replacement schedule for ParameterChange
	// proposals.
	NewMilestones []int64
}

// Clone returns a deep copy so store reads never leak mutable state.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	out := *p
	out.NewMilestones = append([]int64(nil), p.NewMilestones...)
	if p.Voters != nil {
		out.Voters = make(map[id.Identity]int64, len(p.Voters))
		for voter, weight := range p.Voters {
			out.Voters[voter] = weight
		}
	}
	return &out
}
