//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pledger/internal/identity"
	"pledger/internal/identity/store"
	id "pledger/pkg/domain"
	"pledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	dsn := containers.StartPostgres(s.T())
	db, err := sql.Open("postgres", dsn)
	s.Require().NoError(err)
	s.db = db
	s.store = store.NewPostgres(db)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.Exec("TRUNCATE verification_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) record(subject id.Identity) *identity.VerificationRecord {
	return &identity.VerificationRecord{
		Identity:     subject,
		NameHash:     "nh",
		DocumentHash: "dh",
		Status:       identity.StatusPending,
		SubmittedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *PostgresStoreSuite) TestPutAndGet() {
	ctx := context.Background()
	subject := id.Identity("user-1")
	s.Require().NoError(s.store.Put(ctx, s.record(subject)))

	got, err := s.store.Get(ctx, subject)
	s.Require().NoError(err)
	s.Equal(identity.StatusPending, got.Status)
	s.Nil(got.DecidedAt)
}

func (s *PostgresStoreSuite) TestPutOverwrites() {
	ctx := context.Background()
	subject := id.Identity("user-1")
	s.Require().NoError(s.store.Put(ctx, s.record(subject)))

	resubmitted := s.record(subject)
	resubmitted.NameHash = "nh2"
	s.Require().NoError(s.store.Put(ctx, resubmitted))

	got, err := s.store.Get(ctx, subject)
	s.Require().NoError(err)
	s.Equal("nh2", got.NameHash)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	subject := id.Identity("user-1")
	s.Require().NoError(s.store.Put(ctx, s.record(subject)))

	decidedAt := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	err := s.store.Update(ctx, subject, func(r *identity.VerificationRecord) error {
		r.Status = identity.StatusVerified
		r.DecidedAt = &decidedAt
		return nil
	})
	s.Require().NoError(err)

	got, err := s.store.Get(ctx, subject)
	s.Require().NoError(err)
	s.Equal(identity.StatusVerified, got.Status)
	s.Require().NotNil(got.DecidedAt)
	s.True(got.DecidedAt.Equal(decidedAt))
}

func (s *PostgresStoreSuite) TestMissingRecord() {
	ctx := context.Background()
	_, err := s.store.Get(ctx, id.Identity("nobody"))
	s.ErrorIs(err, identity.ErrNotFound)

	err = s.store.Update(ctx, id.Identity("nobody"), func(*identity.VerificationRecord) error { return nil })
	s.ErrorIs(err, identity.ErrNotFound)
}
