// Package prcheck looks up an open GitHub pull request for a repo's branch
// against its base remote, populating RepoStatus.Base.DetectedPR (spec §4
// DOMAIN STACK). Authenticates as a GitHub App installation or with a token
// when one is given; a Client built with neither makes anonymous requests.
package prcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/bradleyfalzon/ghinstallation/v2"

	"github.com/arborist-dev/arb/internal/retry"
)

// PR is the subset of a GitHub pull request arb displays.
type PR struct {
	Number  int
	HTMLURL string
	Title   string
	State   string
}

// AppCredentials holds GitHub App authentication parameters, read from the
// arb config's github section.
type AppCredentials struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

// Client looks up pull requests for a single GitHub host.
type Client struct {
	gh *gh.Client
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	baseURL string
	app     *AppCredentials
	token   string
}

// WithBaseURL targets a GitHub Enterprise host instead of github.com.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithAppAuth authenticates as a GitHub App installation.
func WithAppAuth(app AppCredentials) Option {
	return func(c *clientConfig) { c.app = &app }
}

// WithToken authenticates with a personal access token. Ignored when
// WithAppAuth is also given.
func WithToken(token string) Option {
	return func(c *clientConfig) { c.token = token }
}

// New creates a Client. With no options it makes unauthenticated requests,
// subject to GitHub's anonymous rate limit.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o(cfg)
	}

	var client *gh.Client
	switch {
	case cfg.app != nil:
		httpClient, err := newAppHTTPClient(cfg.app, cfg.baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring GitHub App auth: %w", err)
		}
		client = gh.NewClient(httpClient)
	case cfg.token != "":
		client = gh.NewClient(nil).WithAuthToken(cfg.token)
	default:
		client = gh.NewClient(nil)
	}
	if cfg.baseURL != "" {
		if enterprise, err := client.WithEnterpriseURLs(cfg.baseURL, cfg.baseURL); err == nil {
			client = enterprise
		}
	}

	return &Client{gh: client}, nil
}

func newAppHTTPClient(app *AppCredentials, baseURL string) (*http.Client, error) {
	keyPath := expandHome(app.PrivateKeyPath)
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", app.PrivateKeyPath, err)
	}

	itr, err := ghinstallation.New(http.DefaultTransport, app.AppID, app.InstallationID, keyData)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	if baseURL != "" {
		itr.BaseURL = baseURL
	}

	return &http.Client{Transport: itr}, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// FindOpenPR looks up the open pull request, if any, for head against base.
// Returns nil (no error) when no matching PR exists.
func (c *Client) FindOpenPR(ctx context.Context, owner, repo, head, base string) (*PR, error) {
	return retry.DoVal(ctx, func() (*PR, error) {
		prs, _, err := c.gh.PullRequests.List(ctx, owner, repo, &gh.PullRequestListOptions{
			Head:  owner + ":" + head,
			Base:  base,
			State: "open",
		})
		if err != nil {
			return nil, classifyErr(fmt.Errorf("listing pull requests: %w", err))
		}
		if len(prs) == 0 {
			return nil, nil
		}
		return prFromGH(prs[0]), nil
	}, retry.WithMaxAttempts(2))
}

func prFromGH(pr *gh.PullRequest) *PR {
	return &PR{
		Number:  pr.GetNumber(),
		HTMLURL: pr.GetHTMLURL(),
		Title:   pr.GetTitle(),
		State:   pr.GetState(),
	}
}

// classifyErr marks 4xx GitHub API errors as permanent so retry.DoVal gives
// up immediately instead of burning its backoff schedule on a bad request.
func classifyErr(err error) error {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		if ghErr.Response.StatusCode >= 400 && ghErr.Response.StatusCode < 500 {
			return retry.Permanent(err)
		}
	}
	return err
}

// OwnerRepo splits a remote URL or slug into its owner and repo parts. It
// accepts a bare "owner/repo" or "github.com/owner/repo" slug as well as the
// URL forms `git remote get-url` actually returns: https://, ssh://, and the
// scp-like git@host:owner/repo form.
func OwnerRepo(slug string) (owner, repo string, ok bool) {
	slug = strings.TrimSuffix(slug, ".git")
	slug = strings.TrimPrefix(slug, "https://")
	slug = strings.TrimPrefix(slug, "http://")
	slug = strings.TrimPrefix(slug, "ssh://")
	slug = strings.TrimPrefix(slug, "git@")
	slug = strings.TrimPrefix(slug, "github.com/")
	slug = strings.TrimPrefix(slug, "github.com:")

	parts := strings.FieldsFunc(slug, func(r rune) bool { return r == '/' || r == ':' })
	if len(parts) < 2 {
		return "", "", false
	}
	owner, repo = parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}

// DetectedPRLabel formats a PR for display as RepoStatus.Base.DetectedPR,
// e.g. "#42 open".
func DetectedPRLabel(pr *PR) string {
	if pr == nil {
		return ""
	}
	return fmt.Sprintf("#%d %s", pr.Number, pr.State)
}
