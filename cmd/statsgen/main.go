package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/config"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/logging"
)

var (
	// Global flags
	cfgPath    string
	verbose    bool
	forceCache bool
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command. Running it bare is the CI entry
// point: a full generate.
var rootCmd = &cobra.Command{
	Use:   "statsgen",
	Short: "statsgen - GitHub profile statistics generator",
	Long: `statsgen renders a GitHub account's lifetime statistics into the
profile card SVG themes committed to this repository.

One run queries the GitHub GraphQL API for repositories, stars, commits,
issues and pull requests, reconciles the lines-of-code cache, and rewrites
assets/dark_mode.svg and assets/light_mode.svg in place. CI commits whatever
changed.

Run without arguments to perform a full generate.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		opts := logging.Options{
			DebugMode:  cfg.Logging.DebugMode || verbose,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		}
		if verbose && opts.Level != "debug" {
			opts.Level = "debug"
		}
		if err := logging.Initialize(".", opts); err != nil {
			return err
		}
		logging.Boot("config resolved from %s (login=%s)", cfgPath, cfg.Auth.Login)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runGenerate,
}

// generateCmd is the explicit spelling of the default run.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Fetch statistics and rewrite the SVG themes",
	Long: `Fetches account, repository, star, commit, issue and PR statistics
from the GitHub GraphQL API, reconciles the commit/LOC cache, and rewrites
both SVG themes in place.`,
	RunE: runGenerate,
}

// inspectCmd audits a theme's tspan layout.
var inspectCmd = &cobra.Command{
	Use:   "inspect [svg]",
	Short: "Print the index and text of every tspan in an SVG",
	Long: `Prints each tspan's document-order index and current text content.
Use it to verify the slot indices in the configuration after editing a theme.

Example:
  statsgen inspect assets/dark_mode.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

// cacheCmd groups cache maintenance commands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Commit/LOC cache maintenance",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Rebuild the cache skeleton from the live repository list",
	Long: `Replaces the cache data section with zeroed entries for the current
repository list. The next generate recounts every repository.`,
	RunE: runCacheFlush,
}

var cacheArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Print tallies from the repository archive file",
	RunE:  runCacheArchive,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the statsgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", cfg.Name, cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "statsgen.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "overall run timeout (0 = API timeout only)")

	rootCmd.Flags().BoolVar(&forceCache, "force-cache", false, "rebuild the cache ignoring freshness")
	generateCmd.Flags().BoolVar(&forceCache, "force-cache", false, "rebuild the cache ignoring freshness")

	cacheCmd.AddCommand(cacheFlushCmd, cacheArchiveCmd)
	rootCmd.AddCommand(generateCmd, inspectCmd, cacheCmd, versionCmd)
}

// runContext returns a context cancelled by SIGINT/SIGTERM, with the
// --timeout deadline applied when set.
func runContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout > 0 {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		return tctx, func() {
			cancel()
			stop()
		}
	}
	return ctx, stop
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
