package reputation

import (
	"time"

	id "pledger/pkg/domain"
)

// MaxTier is the highest reputation tier.
const MaxTier = 4

// UserStats accumulates a user's qualifying actions. Fields only grow; there
// is no administrative reset.
type UserStats struct {
	Identity         id.Identity
	CampaignsCreated int64
	CampaignsBacked  int64
	ProposalsCreated int64
	ProposalsVoted   int64
	TotalDonated     int64
	ReputationScore  int64
	ReputationTier   int
	LastActivity     time.Time
}

// Clone returns a copy so store reads never leak mutable state.
func (s *UserStats) Clone() *UserStats {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}

// TierFor derives the tier for a score, clamped to MaxTier.
func TierFor(score, pointsPerTier int64) int {
	if pointsPerTier <= 0 {
		return 0
	}
	tier := int(score / pointsPerTier)
	if tier > MaxTier {
		return MaxTier
	}
	return tier
}
