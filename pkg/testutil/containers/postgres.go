//go:build integration

// Package containers starts throwaway infrastructure for integration tests.
package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE campaigns (
    id               BIGSERIAL PRIMARY KEY,
    owner_identity   TEXT NOT NULL,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    target           BIGINT NOT NULL,
    deadline         TIMESTAMPTZ NOT NULL,
    amount_collected BIGINT NOT NULL DEFAULT 0,
    image_ref        TEXT NOT NULL DEFAULT '',
    paid_out         BOOLEAN NOT NULL DEFAULT FALSE,
    milestones       BIGINT[] NOT NULL,
    milestone_index  INT NOT NULL DEFAULT 0,
    status           TEXT NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE campaign_donations (
    campaign_id BIGINT NOT NULL REFERENCES campaigns (id),
    seq         INT NOT NULL,
    donor       TEXT NOT NULL,
    amount      BIGINT NOT NULL,
    PRIMARY KEY (campaign_id, seq)
);

CREATE TABLE verification_records (
    identity      TEXT PRIMARY KEY,
    name_hash     TEXT NOT NULL,
    document_hash TEXT NOT NULL,
    status        TEXT NOT NULL,
    submitted_at  TIMESTAMPTZ NOT NULL,
    decided_at    TIMESTAMPTZ
);

CREATE TABLE user_stats (
    identity          TEXT PRIMARY KEY,
    campaigns_created BIGINT NOT NULL DEFAULT 0,
    campaigns_backed  BIGINT NOT NULL DEFAULT 0,
    proposals_created BIGINT NOT NULL DEFAULT 0,
    proposals_voted   BIGINT NOT NULL DEFAULT 0,
    total_donated     BIGINT NOT NULL DEFAULT 0,
    reputation_score  BIGINT NOT NULL DEFAULT 0,
    reputation_tier   INT NOT NULL DEFAULT 0,
    last_activity     TIMESTAMPTZ NOT NULL
);
`

// StartPostgres runs a disposable Postgres with the ledger schema applied and
// returns its connection string. The container is terminated on test cleanup.
func StartPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pledger"),
		postgres.WithUsername("pledger"),
		postgres.WithPassword("pledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return dsn
}
