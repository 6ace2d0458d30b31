package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pledger/internal/campaign"
	id "pledger/pkg/domain"
)

// =============================================================================
// In-Memory Campaign Store Test Suite
// =============================================================================

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *MemoryStoreSuite) create(title string) id.CampaignID {
	campaignID, err := s.store.Create(context.Background(), &campaign.Campaign{
		Owner:      id.Identity("owner"),
		Title:      title,
		Target:     100,
		Deadline:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Milestones: []int64{50},
		Status:     campaign.StatusActive,
	})
	s.Require().NoError(err)
	return campaignID
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	s.Run("ids are monotonic", func() {
		first := s.create("a")
		second := s.create("b")
		s.Greater(second, first)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.Get(context.Background(), id.CampaignID(999))
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("reads return copies", func() {
		campaignID := s.create("a")
		got, err := s.store.Get(context.Background(), campaignID)
		s.Require().NoError(err)
		got.Title = "mutated"
		got.Milestones[0] = 999

		fresh, err := s.store.Get(context.Background(), campaignID)
		s.Require().NoError(err)
		s.Equal("a", fresh.Title)
		s.Equal(int64(50), fresh.Milestones[0])
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("failed closure leaves the record untouched", func() {
		campaignID := s.create("a")
		boom := errors.New("boom")
		err := s.store.Update(ctx, campaignID, func(c *campaign.Campaign) error {
			c.AmountCollected = 999
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.store.Get(ctx, campaignID)
		s.Require().NoError(err)
		s.Zero(got.AmountCollected)
	})

	s.Run("successful closure commits", func() {
		campaignID := s.create("a")
		err := s.store.Update(ctx, campaignID, func(c *campaign.Campaign) error {
			c.AmountCollected = 75
			return nil
		})
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, campaignID)
		s.Require().NoError(err)
		s.Equal(int64(75), got.AmountCollected)
	})
}

func (s *MemoryStoreSuite) TestList() {
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		s.create(title)
	}

	s.Run("ordered by id", func() {
		out, err := s.store.List(ctx, 0, 0)
		s.Require().NoError(err)
		s.Require().Len(out, 3)
		s.Equal("a", out[0].Title)
		s.Equal("c", out[2].Title)
	})

	s.Run("offset and limit page through", func() {
		out, err := s.store.List(ctx, 1, 1)
		s.Require().NoError(err)
		s.Require().Len(out, 1)
		s.Equal("b", out[0].Title)
	})

	s.Run("offset past the end is empty", func() {
		out, err := s.store.List(ctx, 10, 5)
		s.Require().NoError(err)
		s.Empty(out)
	})
}
