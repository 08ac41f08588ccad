// Package version reports the build version and checks GitHub for newer releases.
package version

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "v0.0.0"

const defaultAPIBase = "https://api.github.com"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// Checker compares the running version with the latest GitHub release of Repo.
type Checker struct {
	Repo    string
	Current string
	client  *resty.Client
}

func NewChecker(repo string) *Checker {
	return &Checker{
		Repo:    repo,
		Current: Version,
		client: resty.New().
			SetBaseURL(defaultAPIBase).
			SetTimeout(2 * time.Second).
			SetHeader("Accept", "application/vnd.github+json"),
	}
}

// WithBaseURL points the checker at another API host, mainly for tests.
func (c *Checker) WithBaseURL(url string) *Checker {
	c.client.SetBaseURL(url)
	return c
}

// Latest returns the newest release tag and whether it is newer than Current.
func (c *Checker) Latest(ctx context.Context) (string, bool, error) {
	var release githubRelease
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&release).
		Get(fmt.Sprintf("/repos/%s/releases/latest", c.Repo))
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	if resp.IsError() {
		return "", false, fmt.Errorf("latest release lookup returned %d", resp.StatusCode())
	}

	current, err := version.NewVersion(c.Current)
	if err != nil {
		return "", false, fmt.Errorf("invalid current version %q: %w", c.Current, err)
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return "", false, fmt.Errorf("invalid release tag %q: %w", release.TagName, err)
	}

	return release.TagName, current.LessThan(latest), nil
}

// CheckForUpdates logs a warning when a newer release exists. Failures are
// logged at debug level only; the check never blocks startup.
func (c *Checker) CheckForUpdates(ctx context.Context, logger *zap.Logger) {
	tag, newer, err := c.Latest(ctx)
	if err != nil {
		logger.Debug("update check failed", zap.Error(err))
		return
	}
	if newer {
		logger.Warn("You are running an outdated version",
			zap.String("current", c.Current),
			zap.String("latest", tag),
		)
	}
}
