// Package github fetches markdown documents from GitHub repositories so
// the loader can ingest them without a local checkout.
package github

import (
	"os"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limit handling.
type Client struct {
	*github.Client
}

// NewClient builds a client that waits out primary and secondary rate
// limits. If GITHUB_TOKEN is set the client authenticates with it, which
// raises the hourly request quota.
func NewClient() (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}
	return &Client{Client: ghClient}, nil
}
