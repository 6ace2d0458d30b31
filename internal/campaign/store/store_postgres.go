package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"pledger/internal/campaign"
	id "pledger/pkg/domain"
)

// PostgresStore persists campaigns in PostgreSQL. Donation events live in a
// side table keyed by campaign so the donor/amount lists stay an index
// rather than embedded back-references.
//
// Schema:
//
//	CREATE TABLE campaigns (
//	    id               BIGSERIAL PRIMARY KEY,
//	    owner_identity   TEXT NOT NULL,
//	    title            TEXT NOT NULL,
//	    description      TEXT NOT NULL DEFAULT '',
//	    target           BIGINT NOT NULL,
//	    deadline         TIMESTAMPTZ NOT NULL,
//	    amount_collected BIGINT NOT NULL DEFAULT 0,
//	    image_ref        TEXT NOT NULL DEFAULT '',
//	    paid_out         BOOLEAN NOT NULL DEFAULT FALSE,
//	    milestones       BIGINT[] NOT NULL,
//	    milestone_index  INT NOT NULL DEFAULT 0,
//	    status           TEXT NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE campaign_donations (
//	    campaign_id BIGINT NOT NULL REFERENCES campaigns (id),
//	    seq         INT NOT NULL,
//	    donor       TEXT NOT NULL,
//	    amount      BIGINT NOT NULL,
//	    PRIMARY KEY (campaign_id, seq)
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *campaign.Campaign) (id.CampaignID, error) {
	var campaignID uint64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO campaigns (owner_identity, title, description, target, deadline,
		                       amount_collected, image_ref, paid_out, milestones,
		                       milestone_index, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		c.Owner.String(), c.Title, c.Description, c.Target, c.Deadline,
		c.AmountCollected, c.ImageRef, c.PaidOut, pq.Array(c.Milestones),
		c.CurrentMilestoneIndex, string(c.Status), c.CreatedAt).Scan(&campaignID)
	if err != nil {
		return 0, fmt.Errorf("create campaign: %w", err)
	}
	return id.CampaignID(campaignID), nil
}

func (s *PostgresStore) Get(ctx context.Context, campaignID id.CampaignID) (*campaign.Campaign, error) {
	return s.get(ctx, s.db, campaignID, false)
}

func (s *PostgresStore) List(ctx context.Context, offset, limit int) ([]*campaign.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM campaigns ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var ids []id.CampaignID
	for rows.Next() {
		var campaignID uint64
		if err := rows.Scan(&campaignID); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id.CampaignID(campaignID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	out := make([]*campaign.Campaign, 0, len(ids))
	for _, campaignID := range ids {
		c, err := s.get(ctx, s.db, campaignID, false)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Update locks the campaign row for the duration of fn, then rewrites the
// row and any appended donation events inside the same transaction.
func (s *PostgresStore) Update(ctx context.Context, campaignID id.CampaignID, fn func(*campaign.Campaign) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin campaign update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	c, err := s.get(ctx, tx, campaignID, true)
	if err != nil {
		return err
	}
	donationsBefore := len(c.Donors)

	if err := fn(c); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE campaigns
		SET amount_collected = $2, paid_out = $3, milestones = $4,
		    milestone_index = $5, status = $6
		WHERE id = $1`,
		uint64(c.ID), c.AmountCollected, c.PaidOut, pq.Array(c.Milestones),
		c.CurrentMilestoneIndex, string(c.Status))
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	for i := donationsBefore; i < len(c.Donors); i++ {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO campaign_donations (campaign_id, seq, donor, amount)
			VALUES ($1, $2, $3, $4)`,
			uint64(c.ID), i, c.Donors[i].String(), c.DonationAmounts[i])
		if err != nil {
			return fmt.Errorf("append donation: %w", err)
		}
	}
	return tx.Commit()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) get(ctx context.Context, q querier, campaignID id.CampaignID, forUpdate bool) (*campaign.Campaign, error) {
	query := `
		SELECT id, owner_identity, title, description, target, deadline,
		       amount_collected, image_ref, paid_out, milestones,
		       milestone_index, status, created_at
		FROM campaigns WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var c campaign.Campaign
	var rawID uint64
	var owner, status string
	var milestones pq.Int64Array
	err := q.QueryRowContext(ctx, query, uint64(campaignID)).Scan(
		&rawID, &owner, &c.Title, &c.Description, &c.Target, &c.Deadline,
		&c.AmountCollected, &c.ImageRef, &c.PaidOut, &milestones,
		&c.CurrentMilestoneIndex, &status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	c.ID = id.CampaignID(rawID)
	c.Owner = id.Identity(owner)
	c.Status = campaign.Status(status)
	c.Milestones = []int64(milestones)

	rows, err := q.QueryContext(ctx, `
		SELECT donor, amount FROM campaign_donations
		WHERE campaign_id = $1 ORDER BY seq`, uint64(campaignID))
	if err != nil {
		return nil, fmt.Errorf("load donations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var donor string
		var amount int64
		if err := rows.Scan(&donor, &amount); err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		c.Donors = append(c.Donors, id.Identity(donor))
		c.DonationAmounts = append(c.DonationAmounts, amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load donations: %w", err)
	}
	return &c, nil
}
