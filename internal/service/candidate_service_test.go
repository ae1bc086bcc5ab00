package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spothire/internal/cache"
	"spothire/internal/common"
	"spothire/internal/logging"
	"spothire/internal/model"
	"spothire/internal/repository/repotest"
	"spothire/internal/seed"
)

var directory = []model.Candidate{
	{Name: "Meena", Role: "Packer", Area: "Whitefield", Education: "10th pass", ActiveToday: true},
	{Name: "Joseph", Role: "packer", Area: "whitefield", Education: "12th pass"},
	{Name: "Imran", Role: "Packer", Area: "JP Nagar", Education: "10th pass", AppliedToSimilar: true},
	{Name: "Lakshmi", Role: "Cook", Area: "Whitefield", Education: "10th pass", ActiveToday: true},
}

func newDirectory(t *testing.T) (*CandidateService, *repotest.Candidates) {
	t.Helper()
	repo := repotest.NewCandidates(directory...)
	return NewCandidateService(repo, seed.NewSource(), "JP Nagar", logging.Nop()), repo
}

func names(cs []model.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestSearch_FiltersAreConjunctiveAndCaseInsensitive(t *testing.T) {
	svc, _ := newDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter model.CandidateFilter
		want   []string
	}{
		{"no filters", model.CandidateFilter{}, []string{"Meena", "Joseph", "Imran", "Lakshmi"}},
		{"role only", model.CandidateFilter{Role: "PACKER"}, []string{"Meena", "Joseph", "Imran"}},
		{"role and area", model.CandidateFilter{Role: "packer", Area: "WHITEFIELD"}, []string{"Meena", "Joseph"}},
		{"all three", model.CandidateFilter{Role: "Packer", Area: "Whitefield", Education: "10TH PASS"}, []string{"Meena"}},
		{"no match", model.CandidateFilter{Role: "Packer", Area: "BTM Layout"}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.Search(ctx, tc.filter)
			assert.Equal(t, tc.want, names(got))
			for _, c := range got {
				assert.True(t, tc.filter.Matches(c))
			}
		})
	}
}

func TestSearch_StoreDownServesSeedWithSyntheticIDs(t *testing.T) {
	svc, repo := newDirectory(t)
	repo.SetDown(true)

	got := svc.Search(context.Background(), model.CandidateFilter{Role: "Helper"})
	require.Len(t, got, 1)
	assert.Equal(t, "Akash", got[0].Name)
	assert.True(t, strings.HasPrefix(got[0].ID, seed.IDPrefix))

	again := svc.Search(context.Background(), model.CandidateFilter{Role: "helper"})
	assert.Equal(t, got[0].ID, again[0].ID)
}

func TestCreateCandidate(t *testing.T) {
	svc, repo := newDirectory(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, model.NewCandidate{Name: "Asha"})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "name and role required", common.Message(err, ""))

	c, err := svc.Create(ctx, model.NewCandidate{Name: " Asha ", Role: "Packer", Area: "HSR"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Asha", c.Name)
	assert.Equal(t, model.StatusNew, c.Status)
	assert.Len(t, repo.All(), len(directory)+1)

	repo.SetDown(true)
	_, err = svc.Create(ctx, model.NewCandidate{Name: "Asha", Role: "Packer"})
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestUpdateStatus(t *testing.T) {
	svc, repo := newDirectory(t)
	ctx := context.Background()
	id := repo.All()[0].ID

	_, err := svc.UpdateStatus(ctx, id, "bogus", nil)
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "Invalid status", common.Message(err, ""))
	assert.Equal(t, model.StatusNew, repo.All()[0].Status)

	note := "joins Monday"
	c, err := svc.UpdateStatus(ctx, id, "hired", &note)
	require.NoError(t, err)
	assert.Equal(t, model.StatusHired, c.Status)
	assert.Equal(t, "joins Monday", c.Note)

	c, err = svc.UpdateStatus(ctx, id, "next_round", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNextRound, c.Status)
	assert.Equal(t, "joins Monday", c.Note, "nil note leaves the note alone")

	_, err = svc.UpdateStatus(ctx, "64b000000000000000000000", "hired", nil)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "Candidate not found", common.Message(err, ""))

	_, err = svc.UpdateStatus(ctx, "", "hired", nil)
	require.ErrorIs(t, err, common.ErrValidation)

	repo.SetDown(true)
	_, err = svc.UpdateStatus(ctx, id, "hired", nil)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestFeedSnapshot(t *testing.T) {
	svc, _ := newDirectory(t)

	feed := svc.FeedSnapshot(context.Background())
	assert.Equal(t, []string{"Imran"}, names(feed.Nearby))
	assert.Equal(t, []string{"Meena", "Lakshmi"}, names(feed.ActiveToday))
	assert.Equal(t, []string{"Imran"}, names(feed.RecentApplicants))
}

func TestFeedSnapshot_StoreDownFallsBackPerQuery(t *testing.T) {
	svc, repo := newDirectory(t)
	repo.SetDown(true)

	feed := svc.FeedSnapshot(context.Background())
	assert.Equal(t, []string{"Ravi Kumar", "Akash", "Rahul"}, names(feed.Nearby))
	assert.Equal(t, []string{"Ravi Kumar", "Sita Devi", "Rahul"}, names(feed.ActiveToday))
	assert.Equal(t, []string{"Sita Devi", "Akash"}, names(feed.RecentApplicants))
}

func TestFeedSnapshot_CachesOnlyStoreResults(t *testing.T) {
	svc, repo := newDirectory(t)
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc.SetFeedCache(cache.NewFeedCache(client, time.Minute))

	repo.SetDown(true)
	_ = svc.FeedSnapshot(ctx)
	assert.False(t, mr.Exists("feed:jp nagar"), "seed data is not cached")

	repo.SetDown(false)
	first := svc.FeedSnapshot(ctx)
	assert.True(t, mr.Exists("feed:jp nagar"))

	repo.SetDown(true)
	cached := svc.FeedSnapshot(ctx)
	assert.Equal(t, names(first.Nearby), names(cached.Nearby))

	repo.SetDown(false)
	_, err := svc.Create(ctx, model.NewCandidate{Name: "Asha", Role: "Packer", Area: "JP Nagar"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("feed:jp nagar"), "writes invalidate the feed")
}

func TestForRole_FallsBackWhenStoreHasNone(t *testing.T) {
	svc, _ := newDirectory(t)

	got := svc.ForRole(context.Background(), "Delivery Boy", 10)
	assert.Equal(t, []string{"Ravi Kumar", "Rahul"}, names(got))

	got = svc.ForRole(context.Background(), "packer", 2)
	assert.Equal(t, []string{"Meena", "Joseph"}, names(got))
}
