package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "pledger/pkg/domain"
)

// PostgresStore persists user stats via pgx.
//
// Schema:
//
//	CREATE TABLE user_stats (
//	    identity          TEXT PRIMARY KEY,
//	    campaigns_created BIGINT NOT NULL DEFAULT 0,
//	    campaigns_backed  BIGINT NOT NULL DEFAULT 0,
//	    proposals_created BIGINT NOT NULL DEFAULT 0,
//	    proposals_voted   BIGINT NOT NULL DEFAULT 0,
//	    total_donated     BIGINT NOT NULL DEFAULT 0,
//	    reputation_score  BIGINT NOT NULL DEFAULT 0,
//	    reputation_tier   INT NOT NULL DEFAULT 0,
//	    last_activity     TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, subject id.Identity) (*UserStats, error) {
	stats, err := scanStats(s.pool.QueryRow(ctx, `
		SELECT identity, campaigns_created, campaigns_backed, proposals_created,
		       proposals_voted, total_donated, reputation_score, reputation_tier, last_activity
		FROM user_stats WHERE identity = $1`, subject.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return stats, err
}

func (s *PostgresStore) Update(ctx context.Context, subject id.Identity, fn func(*UserStats) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin stats update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stats, err := scanStats(tx.QueryRow(ctx, `
		SELECT identity, campaigns_created, campaigns_backed, proposals_created,
		       proposals_voted, total_donated, reputation_score, reputation_tier, last_activity
		FROM user_stats WHERE identity = $1 FOR UPDATE`, subject.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		stats = &UserStats{Identity: subject}
	} else if err != nil {
		return err
	}

	if err := fn(stats); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_stats (identity, campaigns_created, campaigns_backed, proposals_created,
		                        proposals_voted, total_donated, reputation_score, reputation_tier, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (identity) DO UPDATE SET
			campaigns_created = EXCLUDED.campaigns_created,
			campaigns_backed  = EXCLUDED.campaigns_backed,
			proposals_created = EXCLUDED.proposals_created,
			proposals_voted   = EXCLUDED.proposals_voted,
			total_donated     = EXCLUDED.total_donated,
			reputation_score  = EXCLUDED.reputation_score,
			reputation_tier   = EXCLUDED.reputation_tier,
			last_activity     = EXCLUDED.last_activity`,
		stats.Identity.String(), stats.CampaignsCreated, stats.CampaignsBacked,
		stats.ProposalsCreated, stats.ProposalsVoted, stats.TotalDonated,
		stats.ReputationScore, stats.ReputationTier, stats.LastActivity)
	if err != nil {
		return fmt.Errorf("save user stats: %w", err)
	}
	return tx.Commit(ctx)
}

func scanStats(row pgx.Row) (*UserStats, error) {
	var stats UserStats
	var subject string
	err := row.Scan(&subject, &stats.CampaignsCreated, &stats.CampaignsBacked,
		&stats.ProposalsCreated, &stats.ProposalsVoted, &stats.TotalDonated,
		&stats.ReputationScore, &stats.ReputationTier, &stats.LastActivity)
	if err != nil {
		return nil, err
	}
	stats.Identity = id.Identity(subject)
	return &stats, nil
}
