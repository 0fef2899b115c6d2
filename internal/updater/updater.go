// Package updater checks GitHub releases for new Turbo versions, downloads
// and verifies them, and replaces the running binary.
package updater

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/google/go-github/v63/github"
	"golang.org/x/mod/semver"

	"github.com/neboloop/turbo/internal/markdown"
)

const (
	DefaultOwner = "neboloop"
	DefaultRepo  = "turbo"

	// HTTP timeout for the update check
	timeout = 10 * time.Second

	checksumsAsset = "checksums.txt"
)

// Result contains the outcome of an update check.
type Result struct {
	Available      bool   `json:"available"`
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`
	ReleaseURL     string `json:"release_url,omitempty"`
	ReleaseNotes   string `json:"release_notes,omitempty"`
	NotesHTML      string `json:"release_notes_html,omitempty"`
	PublishedAt    string `json:"published_at,omitempty"`
	AssetName      string `json:"asset_name,omitempty"`
	AssetURL       string `json:"asset_url,omitempty"`
	ChecksumURL    string `json:"checksum_url,omitempty"`
}

// Checker looks up the latest release of one repository.
type Checker struct {
	gh    *github.Client
	http  *http.Client
	owner string
	repo  string
}

// NewChecker creates a checker. A nil client uses http.DefaultClient.
func NewChecker(owner, repo string, client *http.Client) *Checker {
	if client == nil {
		client = http.DefaultClient
	}
	if owner == "" {
		owner = DefaultOwner
	}
	if repo == "" {
		repo = DefaultRepo
	}
	return &Checker{
		gh:    github.NewClient(client),
		http:  client,
		owner: owner,
		repo:  repo,
	}
}

// WithBaseURL points the checker at another GitHub API endpoint.
func (c *Checker) WithBaseURL(base string) (*Checker, error) {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("updater: parse base url: %w", err)
	}
	c.gh.BaseURL = u
	return c, nil
}

// WithToken authenticates release lookups, for private repositories and
// the higher API rate limit.
func (c *Checker) WithToken(token string) *Checker {
	if token != "" {
		c.gh = c.gh.WithAuthToken(token)
	}
	return c
}

// HTTPClient returns the client used for release and asset requests.
func (c *Checker) HTTPClient() *http.Client { return c.http }

// Check fetches the latest release and compares its tag against
// currentVersion. Development builds ("dev", or anything that is not a
// version) never report an update.
func (c *Checker) Check(ctx context.Context, currentVersion string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	release, _, err := c.gh.Repositories.GetLatestRelease(ctx, c.owner, c.repo)
	if err != nil {
		return nil, fmt.Errorf("updater: fetch release: %w", err)
	}

	latest := canonical(release.GetTagName())
	current := canonical(currentVersion)

	result := &Result{
		Available:      semver.IsValid(current) && semver.IsValid(latest) && semver.Compare(latest, current) > 0,
		CurrentVersion: currentVersion,
		LatestVersion:  release.GetTagName(),
		ReleaseURL:     release.GetHTMLURL(),
		ReleaseNotes:   truncate(release.GetBody(), 500),
		NotesHTML:      markdown.Render(release.GetBody()),
		AssetName:      AssetName(runtime.GOOS, runtime.GOARCH),
	}
	if t := release.GetPublishedAt(); !t.IsZero() {
		result.PublishedAt = t.UTC().Format(time.RFC3339)
	}
	for _, a := range release.Assets {
		switch a.GetName() {
		case result.AssetName:
			result.AssetURL = a.GetBrowserDownloadURL()
		case checksumsAsset:
			result.ChecksumURL = a.GetBrowserDownloadURL()
		}
	}
	return result, nil
}

// AssetName is the release asset for a platform, e.g. "turbo-darwin-arm64".
func AssetName(goos, goarch string) string {
	name := fmt.Sprintf("turbo-%s-%s", goos, goarch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// canonical adds the "v" prefix semver expects.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// truncate limits a string to maxLen characters, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
