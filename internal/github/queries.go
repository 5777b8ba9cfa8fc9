package github

import (
	"context"
	"time"
)

// Affiliation sets used by the collector.
var (
	AffiliationOwner = []string{"OWNER"}
	AffiliationAll   = []string{"OWNER", "COLLABORATOR", "ORGANIZATION_MEMBER"}
)

type pageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// Account identifies the profile owner.
type Account struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

const viewerQuery = `
    query($login: String!){
        user(login: $login){
            id
            createdAt
        }
    }`

// Viewer fetches the account's node ID and creation date. The node ID gates
// commit attribution in the LOC walk.
func (c *Client) Viewer(ctx context.Context) (Account, error) {
	var resp struct {
		User Account `json:"user"`
	}
	err := c.execute(ctx, "viewer", viewerQuery, map[string]any{"login": c.login}, &resp)
	return resp.User, err
}

// RepoSummary is one repository with its default-branch commit total.
type RepoSummary struct {
	NameWithOwner string
	CommitTotal   int
}

const repositoriesQuery = `
    query ($owner_affiliation: [RepositoryAffiliation], $login: String!, $cursor: String) {
        user(login: $login) {
            repositories(first: 60, after: $cursor, ownerAffiliations: $owner_affiliation) {
                edges {
                    node {
                        ... on Repository {
                            nameWithOwner
                            defaultBranchRef {
                                target {
                                    ... on Commit {
                                        history {
                                            totalCount
                                        }
                                    }
                                }
                            }
                        }
                    }
                }
                pageInfo {
                    endCursor
                    hasNextPage
                }
            }
        }
    }`

type repositoriesResponse struct {
	User struct {
		Repositories struct {
			Edges []struct {
				Node struct {
					NameWithOwner    string `json:"nameWithOwner"`
					DefaultBranchRef *struct {
						Target struct {
							History struct {
								TotalCount int `json:"totalCount"`
							} `json:"history"`
						} `json:"target"`
					} `json:"defaultBranchRef"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo pageInfo `json:"pageInfo"`
		} `json:"repositories"`
	} `json:"user"`
}

// Repositories enumerates every repository the account is affiliated with,
// carrying each one's default-branch commit total.
func (c *Client) Repositories(ctx context.Context, affiliations []string) ([]RepoSummary, error) {
	var repos []RepoSummary
	var cursor *string

	for {
		var resp repositoriesResponse
		vars := map[string]any{
			"owner_affiliation": affiliations,
			"login":             c.login,
			"cursor":            cursor,
		}
		if err := c.execute(ctx, "repositories", repositoriesQuery, vars, &resp); err != nil {
			return nil, err
		}

		page := resp.User.Repositories
		for _, edge := range page.Edges {
			r := RepoSummary{NameWithOwner: edge.Node.NameWithOwner}
			// Empty repositories have no default branch.
			if edge.Node.DefaultBranchRef != nil {
				r.CommitTotal = edge.Node.DefaultBranchRef.Target.History.TotalCount
			}
			repos = append(repos, r)
		}

		if !page.PageInfo.HasNextPage {
			return repos, nil
		}
		end := page.PageInfo.EndCursor
		cursor = &end
	}
}

// RepoTotals aggregates the totals query: how many repositories the account
// has under the given affiliations and how many stars they carry.
type RepoTotals struct {
	TotalCount int
	Stars      int
}

const repoTotalsQuery = `
    query ($owner_affiliation: [RepositoryAffiliation], $login: String!, $cursor: String) {
        user(login: $login) {
            repositories(first: 100, after: $cursor, ownerAffiliations: $owner_affiliation) {
                totalCount
                edges {
                    node {
                        ... on Repository {
                            nameWithOwner
                            stargazers {
                                totalCount
                            }
                        }
                    }
                }
                pageInfo {
                    endCursor
                    hasNextPage
                }
            }
        }
    }`

type repoTotalsResponse struct {
	User struct {
		Repositories struct {
			TotalCount int `json:"totalCount"`
			Edges      []struct {
				Node struct {
					Stargazers struct {
						TotalCount int `json:"totalCount"`
					} `json:"stargazers"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo pageInfo `json:"pageInfo"`
		} `json:"repositories"`
	} `json:"user"`
}

// RepositoryTotals walks the totals query to the last page so the star sum
// covers every repository, not just the first hundred.
func (c *Client) RepositoryTotals(ctx context.Context, affiliations []string) (RepoTotals, error) {
	var totals RepoTotals
	var cursor *string

	for {
		var resp repoTotalsResponse
		vars := map[string]any{
			"owner_affiliation": affiliations,
			"login":             c.login,
			"cursor":            cursor,
		}
		if err := c.execute(ctx, "repo_totals", repoTotalsQuery, vars, &resp); err != nil {
			return RepoTotals{}, err
		}

		page := resp.User.Repositories
		totals.TotalCount = page.TotalCount
		for _, edge := range page.Edges {
			totals.Stars += edge.Node.Stargazers.TotalCount
		}

		if !page.PageInfo.HasNextPage {
			return totals, nil
		}
		end := page.PageInfo.EndCursor
		cursor = &end
	}
}

// CommitInfo is one commit from a default-branch history walk.
type CommitInfo struct {
	AuthorID  string
	Additions int
	Deletions int
}

const commitHistoryQuery = `
    query ($repo_name: String!, $owner: String!, $cursor: String) {
        repository(name: $repo_name, owner: $owner) {
            defaultBranchRef {
                target {
                    ... on Commit {
                        history(first: 100, after: $cursor) {
                            totalCount
                            edges {
                                node {
                                    ... on Commit {
                                        committedDate
                                    }
                                    author {
                                        user {
                                            id
                                        }
                                    }
                                    deletions
                                    additions
                                }
                            }
                            pageInfo {
                                endCursor
                                hasNextPage
                            }
                        }
                    }
                }
            }
        }
    }`

type commitHistoryResponse struct {
	Repository struct {
		DefaultBranchRef *struct {
			Target struct {
				History struct {
					TotalCount int `json:"totalCount"`
					Edges      []struct {
						Node struct {
							Author struct {
								User *struct {
									ID string `json:"id"`
								} `json:"user"`
							} `json:"author"`
							Additions int `json:"additions"`
							Deletions int `json:"deletions"`
						} `json:"node"`
					} `json:"edges"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"history"`
			} `json:"target"`
		} `json:"defaultBranchRef"`
	} `json:"repository"`
}

// CommitHistory streams every commit on the repository's default branch to
// fn, page by page. A repository without a default branch yields no commits
// and no error.
func (c *Client) CommitHistory(ctx context.Context, owner, name string, fn func(CommitInfo)) error {
	var cursor *string

	for {
		var resp commitHistoryResponse
		vars := map[string]any{
			"repo_name": name,
			"owner":     owner,
			"cursor":    cursor,
		}
		if err := c.execute(ctx, "commit_history", commitHistoryQuery, vars, &resp); err != nil {
			return err
		}

		ref := resp.Repository.DefaultBranchRef
		if ref == nil {
			return nil
		}

		history := ref.Target.History
		for _, edge := range history.Edges {
			info := CommitInfo{
				Additions: edge.Node.Additions,
				Deletions: edge.Node.Deletions,
			}
			if edge.Node.Author.User != nil {
				info.AuthorID = edge.Node.Author.User.ID
			}
			fn(info)
		}

		if !history.PageInfo.HasNextPage || len(history.Edges) == 0 {
			return nil
		}
		end := history.PageInfo.EndCursor
		cursor = &end
	}
}

// ContributionStats carries the account's lifetime issue and PR totals.
type ContributionStats struct {
	Issues       int
	PullRequests int
}

const contributionStatsQuery = `
    query($login: String!) {
        user(login: $login) {
            pullRequests(first: 1) {
                totalCount
            }
            issues {
                totalCount
            }
        }
    }`

type contributionStatsResponse struct {
	User struct {
		PullRequests struct {
			TotalCount int `json:"totalCount"`
		} `json:"pullRequests"`
		Issues struct {
			TotalCount int `json:"totalCount"`
		} `json:"issues"`
	} `json:"user"`
}

// ContributionStats fetches lifetime issue and pull request counts.
func (c *Client) ContributionStats(ctx context.Context) (ContributionStats, error) {
	var resp contributionStatsResponse
	err := c.execute(ctx, "contribution_stats", contributionStatsQuery, map[string]any{"login": c.login}, &resp)
	if err != nil {
		return ContributionStats{}, err
	}
	return ContributionStats{
		Issues:       resp.User.Issues.TotalCount,
		PullRequests: resp.User.PullRequests.TotalCount,
	}, nil
}
