package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-token", "octocat")
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.MinInterval = 0
	return NewClientWithConfig(cfg)
}

func TestViewer(t *testing.T) {
	var got recordedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "statsgen", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		fmt.Fprint(w, `{"data":{"user":{"id":"MDQ6VXNlcjE=","createdAt":"2019-04-02T10:00:00Z"}}}`)
	})

	acct, err := client.Viewer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "MDQ6VXNlcjE=", acct.ID)
	assert.Equal(t, 2019, acct.CreatedAt.Year())
	assert.Equal(t, "octocat", got.Variables["login"])
}

func TestRepositories_Pagination(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req recordedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if calls == 1 {
			assert.Nil(t, req.Variables["cursor"])
			fmt.Fprint(w, `{"data":{"user":{"repositories":{
				"edges":[
					{"node":{"nameWithOwner":"octocat/alpha","defaultBranchRef":{"target":{"history":{"totalCount":12}}}}},
					{"node":{"nameWithOwner":"octocat/empty","defaultBranchRef":null}}
				],
				"pageInfo":{"endCursor":"CUR1","hasNextPage":true}}}}}`)
			return
		}

		assert.Equal(t, "CUR1", req.Variables["cursor"])
		fmt.Fprint(w, `{"data":{"user":{"repositories":{
			"edges":[{"node":{"nameWithOwner":"octocat/beta","defaultBranchRef":{"target":{"history":{"totalCount":3}}}}}],
			"pageInfo":{"endCursor":"","hasNextPage":false}}}}}`)
	})

	repos, err := client.Repositories(context.Background(), AffiliationAll)
	require.NoError(t, err)
	require.Len(t, repos, 3)

	assert.Equal(t, 2, calls)
	assert.Equal(t, RepoSummary{NameWithOwner: "octocat/alpha", CommitTotal: 12}, repos[0])
	assert.Equal(t, RepoSummary{NameWithOwner: "octocat/empty", CommitTotal: 0}, repos[1])
	assert.Equal(t, RepoSummary{NameWithOwner: "octocat/beta", CommitTotal: 3}, repos[2])
}

func TestRepositoryTotals_SumsStarsAcrossPages(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"data":{"user":{"repositories":{
				"totalCount":42,
				"edges":[{"node":{"stargazers":{"totalCount":7}}},{"node":{"stargazers":{"totalCount":1}}}],
				"pageInfo":{"endCursor":"C","hasNextPage":true}}}}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"user":{"repositories":{
			"totalCount":42,
			"edges":[{"node":{"stargazers":{"totalCount":2}}}],
			"pageInfo":{"endCursor":"","hasNextPage":false}}}}}`)
	})

	totals, err := client.RepositoryTotals(context.Background(), AffiliationOwner)
	require.NoError(t, err)

	assert.Equal(t, 42, totals.TotalCount)
	assert.Equal(t, 10, totals.Stars)
}

func TestCommitHistory_StreamsPages(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"data":{"repository":{"defaultBranchRef":{"target":{"history":{
				"totalCount":2,
				"edges":[{"node":{"author":{"user":{"id":"OWNER"}},"additions":10,"deletions":4}}],
				"pageInfo":{"endCursor":"H1","hasNextPage":true}}}}}}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"repository":{"defaultBranchRef":{"target":{"history":{
			"totalCount":2,
			"edges":[{"node":{"author":{"user":null},"additions":5,"deletions":1}}],
			"pageInfo":{"endCursor":"","hasNextPage":false}}}}}}}`)
	})

	var commits []CommitInfo
	err := client.CommitHistory(context.Background(), "octocat", "alpha", func(ci CommitInfo) {
		commits = append(commits, ci)
	})
	require.NoError(t, err)

	require.Len(t, commits, 2)
	assert.Equal(t, CommitInfo{AuthorID: "OWNER", Additions: 10, Deletions: 4}, commits[0])
	assert.Equal(t, CommitInfo{AuthorID: "", Additions: 5, Deletions: 1}, commits[1])
}

func TestCommitHistory_NoDefaultBranch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"repository":{"defaultBranchRef":null}}}`)
	})

	called := false
	err := client.CommitHistory(context.Background(), "octocat", "empty", func(CommitInfo) {
		called = true
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestContributionStats(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"user":{"pullRequests":{"totalCount":15},"issues":{"totalCount":9}}}}`)
	})

	stats, err := client.ContributionStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ContributionStats{Issues: 9, PullRequests: 15}, stats)
}

func TestExecute_Forbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.Viewer(context.Background())
	require.ErrorIs(t, err, ErrAntiAbuse)
}

func TestExecute_RetriesOn429(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":{"user":{"id":"X","createdAt":"2020-01-01T00:00:00Z"}}}`)
	})

	_, err := client.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecute_CancelCutsBackoffShort(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	// The first backoff window is a full second; cancellation must not wait
	// it out.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Viewer(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecute_CancelCutsRateLimitWaitShort(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"user":{"id":"X","createdAt":"2020-01-01T00:00:00Z"}}}`)
	})
	client.minInterval = time.Minute
	client.lastRequest = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Viewer(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecute_ServerErrorDoesNotRetry(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	})

	_, err := client.Viewer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, 1, calls)
}

func TestExecute_GraphQLErrorSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null,"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a User"}]}`)
	})

	_, err := client.Viewer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not resolve to a User")
}

func TestExecute_MissingToken(t *testing.T) {
	cfg := DefaultConfig("", "octocat")
	client := NewClientWithConfig(cfg)

	_, err := client.Viewer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token not configured")
}

type countingRecorder struct {
	ops []string
}

func (c *countingRecorder) Record(op string) { c.ops = append(c.ops, op) }

func TestExecute_RecordsUsage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"user":{"id":"X","createdAt":"2020-01-01T00:00:00Z"}}}`)
	})
	rec := &countingRecorder{}
	client.SetRecorder(rec)

	_, err := client.Viewer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"viewer"}, rec.ops)
}
