package stats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/cache"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/github"
)

// stubAPI serves canned data for two repositories. Commit history for
// octocat/alpha interleaves owner and non-owner commits.
type stubAPI struct {
	statsErr error
}

func (s *stubAPI) Viewer(ctx context.Context) (github.Account, error) {
	return github.Account{ID: "OWNER-ID", CreatedAt: time.Date(2019, 4, 2, 0, 0, 0, 0, time.UTC)}, nil
}

func (s *stubAPI) Repositories(ctx context.Context, affiliations []string) ([]github.RepoSummary, error) {
	return []github.RepoSummary{
		{NameWithOwner: "octocat/alpha", CommitTotal: 3},
		{NameWithOwner: "octocat/beta", CommitTotal: 0},
	}, nil
}

func (s *stubAPI) RepositoryTotals(ctx context.Context, affiliations []string) (github.RepoTotals, error) {
	if len(affiliations) == 1 {
		return github.RepoTotals{TotalCount: 8, Stars: 21}, nil
	}
	return github.RepoTotals{TotalCount: 11, Stars: 30}, nil
}

func (s *stubAPI) CommitHistory(ctx context.Context, owner, name string, fn func(github.CommitInfo)) error {
	fn(github.CommitInfo{AuthorID: "OWNER-ID", Additions: 100, Deletions: 40})
	fn(github.CommitInfo{AuthorID: "SOMEONE-ELSE", Additions: 999, Deletions: 999})
	fn(github.CommitInfo{AuthorID: "OWNER-ID", Additions: 10, Deletions: 5})
	return nil
}

func (s *stubAPI) ContributionStats(ctx context.Context) (github.ContributionStats, error) {
	if s.statsErr != nil {
		return github.ContributionStats{}, s.statsErr
	}
	return github.ContributionStats{Issues: 4, PullRequests: 12}, nil
}

func TestCollect(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := cache.New(t.TempDir(), "octocat", 7)
	col := NewCollector(&stubAPI{}, c, false)

	rep, err := col.Collect(context.Background())
	require.NoError(t, err)

	// Only the two owner commits of alpha count toward LOC.
	assert.Equal(t, 110, rep.LOC.Added)
	assert.Equal(t, 45, rep.LOC.Deleted)
	assert.Equal(t, 65, rep.LOC.Net)
	assert.False(t, rep.LOC.Cached)

	assert.Equal(t, 2, rep.Commits)
	assert.Equal(t, 8, rep.Repos)
	assert.Equal(t, 21, rep.Stars)
	assert.Equal(t, 11, rep.Contributed)
	assert.Equal(t, 4, rep.Issues)
	assert.Equal(t, 12, rep.PullRequests)
	assert.Equal(t, "OWNER-ID", rep.Account.ID)

	// One phase per step, the parallel three included.
	assert.Len(t, rep.Phases, 6)
}

func TestCollect_SecondRunIsCached(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := cache.New(t.TempDir(), "octocat", 7)

	_, err := NewCollector(&stubAPI{}, c, false).Collect(context.Background())
	require.NoError(t, err)

	rep, err := NewCollector(&stubAPI{}, c, false).Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, rep.LOC.Cached)
	assert.Equal(t, 65, rep.LOC.Net)
}

func TestCollect_PropagatesParallelErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := cache.New(t.TempDir(), "octocat", 7)
	boom := errors.New("boom")
	col := NewCollector(&stubAPI{statsErr: boom}, c, false)

	_, err := col.Collect(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestReport_WriteTimings(t *testing.T) {
	rep := &Report{}
	rep.addPhase("account data", 1500*time.Millisecond)
	rep.addPhase("LOC (cached)", 42*time.Millisecond)

	var b strings.Builder
	rep.WriteTimings(&b)
	out := b.String()

	assert.Contains(t, out, "Calculation times:")
	assert.Contains(t, out, "account data:")
	assert.Contains(t, out, "1.5000 s")
	assert.Contains(t, out, "42.0000 ms")
	assert.Contains(t, out, "total:")
	assert.Equal(t, 1542*time.Millisecond, rep.Total())
}
