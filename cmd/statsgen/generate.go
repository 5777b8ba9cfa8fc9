package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/cache"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/config"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/github"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/logging"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/stats"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/svg"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/usage"
)

func newClient(cfg *config.Config) *github.Client {
	return github.NewClientWithConfig(github.Config{
		BaseURL:     cfg.API.BaseURL,
		Token:       cfg.Auth.Token,
		Login:       cfg.Auth.Login,
		UserAgent:   cfg.API.UserAgent,
		Timeout:     cfg.GetAPITimeout(),
		MaxRetries:  cfg.API.MaxRetries,
		MinInterval: cfg.GetMinRequestInterval(),
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	rlog := logging.WithRunID(logging.CategoryBoot, runID)
	rlog.Info("generate starting for %s", cfg.Auth.Login)
	logger.Info("generate starting",
		zap.String("run_id", runID),
		zap.String("login", cfg.Auth.Login),
		zap.Bool("force_cache", forceCache),
	)

	ctx, cancel := runContext()
	defer cancel()

	// Usage state lives outside the committed cache dir so a no-change run
	// leaves the working tree clean and CI skips the commit.
	tracker, err := usage.NewTracker(cfg.StatePath(cfg.State.UsageFile))
	if err != nil {
		return err
	}

	client := newClient(cfg)
	client.SetRecorder(tracker)

	commitCache := cache.New(cfg.Cache.Dir, cfg.Auth.Login, cfg.Cache.CommentLines)
	collector := stats.NewCollector(client, commitCache, forceCache)

	rep, err := collector.Collect(ctx)
	if err != nil {
		rlog.Error("collection failed: %v", err)
		return err
	}

	values := svg.Values{
		Repos:        rep.Repos,
		Contributed:  rep.Contributed,
		Stars:        rep.Stars,
		Commits:      rep.Commits,
		Issues:       rep.Issues,
		PullRequests: rep.PullRequests,
		LOCNet:       rep.LOC.Net,
		LOCAdded:     rep.LOC.Added,
		LOCDeleted:   rep.LOC.Deleted,
	}
	for _, theme := range []string{cfg.SVG.DarkTheme, cfg.SVG.LightTheme} {
		if err := svg.Render(theme, cfg.SVG.Slots, values); err != nil {
			return err
		}
	}

	rep.WriteTimings(os.Stdout)

	fmt.Println()
	counts := tracker.Snapshot()
	for _, op := range tracker.Operations() {
		fmt.Printf("%s called %d times\n", op, counts[op])
	}
	fmt.Printf("total GraphQL calls: %d\n", tracker.Total())

	if err := tracker.Save(); err != nil {
		logger.Warn("failed to persist usage counts", zap.Error(err))
	}

	rlog.Info("generate complete")
	logger.Info("generate complete", zap.String("run_id", runID), zap.Duration("total", rep.Total()))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	return svg.Inspect(args[0], os.Stdout)
}

func runCacheFlush(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := runContext()
	defer cancel()

	client := newClient(cfg)
	repos, err := client.Repositories(ctx, github.AffiliationAll)
	if err != nil {
		return err
	}

	commitCache := cache.New(cfg.Cache.Dir, cfg.Auth.Login, cfg.Cache.CommentLines)
	if err := commitCache.Flush(repos); err != nil {
		return err
	}

	fmt.Printf("cache skeleton rebuilt for %d repositories\n", len(repos))
	return nil
}

func runCacheArchive(cmd *cobra.Command, args []string) error {
	totals, err := cache.ReadArchive(cfg.CachePath(cfg.Cache.ArchiveFile))
	if err != nil {
		return err
	}

	fmt.Printf("archived repositories: %d\n", totals.Repos)
	fmt.Printf("archived commits:      %d\n", totals.Commits)
	fmt.Printf("archived LOC:          +%d / -%d (net %d)\n", totals.AddedLOC, totals.DeletedLOC, totals.NetLOC)
	return nil
}
