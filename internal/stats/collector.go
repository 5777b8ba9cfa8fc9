// Package stats orchestrates the GraphQL queries and the commit cache into
// one profile report.
package stats

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/cache"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/github"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/logging"
)

// API is the slice of the GitHub client the collector needs.
type API interface {
	Viewer(ctx context.Context) (github.Account, error)
	Repositories(ctx context.Context, affiliations []string) ([]github.RepoSummary, error)
	RepositoryTotals(ctx context.Context, affiliations []string) (github.RepoTotals, error)
	CommitHistory(ctx context.Context, owner, name string, fn func(github.CommitInfo)) error
	ContributionStats(ctx context.Context) (github.ContributionStats, error)
}

// Collector ties the API client and the commit cache together.
type Collector struct {
	api        API
	cache      *cache.Cache
	forceCache bool
}

// NewCollector creates a collector. forceCache rebuilds the cache skeleton
// even when the repository count matches.
func NewCollector(api API, c *cache.Cache, forceCache bool) *Collector {
	return &Collector{api: api, cache: c, forceCache: forceCache}
}

// Collect runs every query and produces the report. The account lookup and
// cache reconcile are sequential (commit attribution needs the owner ID and
// total commits need the reconciled cache); the independent totals queries
// run concurrently afterwards.
func (c *Collector) Collect(ctx context.Context) (*Report, error) {
	rep := &Report{}

	timer := logging.StartTimer(logging.CategoryStats, "account data")
	acct, err := c.api.Viewer(ctx)
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	rep.Account = acct
	rep.addPhase("account data", timer.Stop())

	timer = logging.StartTimer(logging.CategoryStats, "LOC")
	repos, err := c.api.Repositories(ctx, github.AffiliationAll)
	if err != nil {
		return nil, fmt.Errorf("repository enumeration failed: %w", err)
	}

	loc, err := c.cache.Reconcile(ctx, repos, c.forceCache, c.walker(acct.ID))
	if err != nil {
		return nil, err
	}
	rep.LOC = loc
	if loc.Cached {
		rep.addPhase("LOC (cached)", timer.Stop())
	} else {
		rep.addPhase("LOC (no cache)", timer.Stop())
	}

	timer = logging.StartTimer(logging.CategoryStats, "commit counter")
	commits, err := c.cache.TotalCommits()
	if err != nil {
		return nil, fmt.Errorf("commit count failed: %w", err)
	}
	rep.Commits = commits
	rep.addPhase("commit counter", timer.Stop())

	// The remaining queries are independent of each other.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t := logging.StartTimer(logging.CategoryStats, "owned repositories")
		owned, err := c.api.RepositoryTotals(gctx, github.AffiliationOwner)
		if err != nil {
			return fmt.Errorf("owned repository totals failed: %w", err)
		}
		rep.Repos = owned.TotalCount
		rep.Stars = owned.Stars
		rep.addPhaseLocked("my repositories", t.Stop())
		return nil
	})

	g.Go(func() error {
		t := logging.StartTimer(logging.CategoryStats, "contributed repositories")
		contrib, err := c.api.RepositoryTotals(gctx, github.AffiliationAll)
		if err != nil {
			return fmt.Errorf("contributed repository totals failed: %w", err)
		}
		rep.Contributed = contrib.TotalCount
		rep.addPhaseLocked("contributed repos", t.Stop())
		return nil
	})

	g.Go(func() error {
		t := logging.StartTimer(logging.CategoryStats, "issues/prs")
		stats, err := c.api.ContributionStats(gctx)
		if err != nil {
			return fmt.Errorf("issue/PR stats failed: %w", err)
		}
		rep.Issues = stats.Issues
		rep.PullRequests = stats.PullRequests
		rep.addPhaseLocked("issues/prs stats", t.Stop())
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Stats("collected: repos=%d contributed=%d stars=%d commits=%d issues=%d prs=%d loc=%+d",
		rep.Repos, rep.Contributed, rep.Stars, rep.Commits, rep.Issues, rep.PullRequests, rep.LOC.Net)

	return rep, nil
}

// walker recounts one repository, attributing only commits whose author
// matches the owner node ID.
func (c *Collector) walker(ownerID string) cache.RepoWalker {
	return func(ctx context.Context, owner, name string) (cache.WalkResult, error) {
		var res cache.WalkResult
		err := c.api.CommitHistory(ctx, owner, name, func(ci github.CommitInfo) {
			if ci.AuthorID != "" && ci.AuthorID == ownerID {
				res.Commits++
				res.Additions += ci.Additions
				res.Deletions += ci.Deletions
			}
		})
		if err != nil {
			return cache.WalkResult{}, err
		}
		return res, nil
	}
}
