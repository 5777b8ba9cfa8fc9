// Package cache maintains the on-disk commit cache. The cache file is a
// tracked repository artifact: CI commits it back, so its line-oriented
// format is part of the observable contract and must stay byte-stable when
// nothing changed upstream.
//
// Layout: a fixed-size comment header, then one line per repository:
//
//	<sha256(nameWithOwner)> <commitTotal> <myCommits> <additions> <deletions>
package cache

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/github"
	"github.com/AdnanKhan-ak47/AdnanKhan-ak47/internal/logging"
)

const headerLine = "This line is a comment block. Write whatever you want here."

// WalkResult is a full recount of one repository's history.
type WalkResult struct {
	Commits   int
	Additions int
	Deletions int
}

// RepoWalker recounts one repository by walking its entire default-branch
// history. Walks are expensive; Reconcile only invokes one when a
// repository's commit total drifted from the cached value.
type RepoWalker func(ctx context.Context, owner, name string) (WalkResult, error)

// Totals is the LOC summary over every cached repository.
type Totals struct {
	Added   int
	Deleted int
	Net     int
	// Cached reports whether the repository list was served from the
	// existing file without a skeleton rebuild.
	Cached bool
}

// Cache is the commit/LOC cache for one account.
type Cache struct {
	dir          string
	login        string
	commentLines int
}

// New creates a cache rooted at dir for the given login.
func New(dir, login string, commentLines int) *Cache {
	return &Cache{dir: dir, login: login, commentLines: commentLines}
}

// Path returns the cache file path. The login is hashed so the filename
// carries no identity.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, hashOf(c.login)+".txt")
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ensure reads the cache file, creating it with a fresh comment header when
// absent, and returns its lines.
func (c *Cache) ensure() ([]string, error) {
	path := c.Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.Cache("creating cache file %s", path)
		if err := os.MkdirAll(c.dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		header := make([]string, c.commentLines)
		for i := range header {
			header[i] = headerLine
		}
		if err := writeLines(path, header); err != nil {
			return nil, err
		}
		return header, nil
	}
	return readLines(path)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return lines, nil
}

func writeLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// flush rewrites the data section as a zeroed skeleton, one line per
// repository, preserving the comment header.
func (c *Cache) flush(header []string, repos []github.RepoSummary) error {
	logging.Cache("flushing cache skeleton for %d repos", len(repos))
	lines := append([]string{}, header...)
	for _, repo := range repos {
		lines = append(lines, fmt.Sprintf("%s 0 0 0 0", hashOf(repo.NameWithOwner)))
	}
	return writeLines(c.Path(), lines)
}

// Flush rebuilds the cache skeleton from a live repository list.
func (c *Cache) Flush(repos []github.RepoSummary) error {
	lines, err := c.ensure()
	if err != nil {
		return err
	}
	return c.flush(lines[:c.commentLines], repos)
}

// Reconcile brings the cache in line with the live repository list and
// returns the summed LOC totals. The skeleton is rebuilt when the repository
// count changed or force is set; individual repositories are recounted via
// walk only when their commit total drifted.
func (c *Cache) Reconcile(ctx context.Context, repos []github.RepoSummary, force bool, walk RepoWalker) (Totals, error) {
	totals := Totals{Cached: true}

	lines, err := c.ensure()
	if err != nil {
		return Totals{}, err
	}
	if len(lines) < c.commentLines {
		return Totals{}, fmt.Errorf("cache file shorter than its %d-line header", c.commentLines)
	}
	header := append([]string{}, lines[:c.commentLines]...)

	if len(lines)-c.commentLines != len(repos) || force {
		totals.Cached = false
		if err := c.flush(header, repos); err != nil {
			return Totals{}, err
		}
		if lines, err = readLines(c.Path()); err != nil {
			return Totals{}, err
		}
	}

	data := lines[c.commentLines:]
	dirty := false
	logging.CacheDebug("reconciling %d data lines against %d live repos", len(data), len(repos))

	for i, repo := range repos {
		key := hashOf(repo.NameWithOwner)
		parts := strings.Fields(data[i])
		if len(parts) < 5 || parts[0] != key {
			continue
		}

		cachedTotal, _ := strconv.Atoi(parts[1])
		if repo.CommitTotal == cachedTotal {
			continue
		}

		owner, name, ok := strings.Cut(repo.NameWithOwner, "/")
		if !ok {
			continue
		}

		logging.Cache("recounting %s: %d commits cached, %d live", repo.NameWithOwner, cachedTotal, repo.CommitTotal)
		res, err := walk(ctx, owner, name)
		if err != nil {
			// Leave a diagnosable file behind before bailing out.
			c.Salvage(map[string]any{
				"failed_repo": repo.NameWithOwner,
				"reconciled":  i,
				"total":       len(repos),
			}, header)
			return Totals{}, fmt.Errorf("recount of %s failed: %w", repo.NameWithOwner, err)
		}

		data[i] = fmt.Sprintf("%s %d %d %d %d", key, repo.CommitTotal, res.Commits, res.Additions, res.Deletions)
		dirty = true
	}

	if dirty || !totals.Cached {
		if err := writeLines(c.Path(), append(header, data...)); err != nil {
			return Totals{}, err
		}
	}

	for _, line := range data {
		parts := strings.Fields(line)
		if len(parts) >= 5 {
			add, _ := strconv.Atoi(parts[3])
			del, _ := strconv.Atoi(parts[4])
			totals.Added += add
			totals.Deleted += del
		}
	}
	totals.Net = totals.Added - totals.Deleted

	return totals, nil
}

// TotalCommits sums the per-repository commit counts in the data section.
func (c *Cache) TotalCommits() (int, error) {
	lines, err := readLines(c.Path())
	if err != nil {
		return 0, err
	}

	total := 0
	for i, line := range lines {
		if i < c.commentLines {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 5 {
			if n, err := strconv.Atoi(parts[2]); err == nil {
				total += n
			}
		}
	}
	return total, nil
}

// Salvage writes the header plus a JSON dump of partial state so an aborted
// run leaves something to diagnose instead of a truncated cache.
func (c *Cache) Salvage(state any, header []string) {
	path := c.Path()
	pretty, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logging.CacheError("salvage marshal failed: %v", err)
		return
	}

	var b strings.Builder
	for _, line := range header {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.Write(pretty)
	b.WriteByte('\n')

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		logging.CacheError("salvage write failed: %v", err)
		return
	}
	logging.CacheError("walk aborted; partial state salvaged to %s", path)
}
