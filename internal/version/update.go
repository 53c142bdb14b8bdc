package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// DefaultAPIURL is the GitHub API root queried for releases.
const DefaultAPIURL = "https://api.github.com"

// UpdateInfo contains information about available updates.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
}

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// Checker looks up the newest published release.
type Checker struct {
	APIURL     string
	HTTPClient *http.Client
}

// NewChecker returns a checker against the public GitHub API.
func NewChecker() *Checker {
	return &Checker{
		APIURL:     DefaultAPIURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Check compares Version with the latest release. Repositories without
// releases fall back to the newest tag.
func (c *Checker) Check(ctx context.Context) (UpdateInfo, error) {
	info := UpdateInfo{CurrentVersion: Version}

	var release githubRelease
	status, err := c.get(ctx, "/repos/"+Repo+"/releases/latest", &release)
	if err != nil {
		return info, err
	}

	latest := release.TagName
	if status != http.StatusOK {
		var tags []githubRelease
		status, err = c.get(ctx, "/repos/"+Repo+"/tags", &tags)
		if err != nil {
			return info, err
		}
		if status != http.StatusOK {
			return info, fmt.Errorf("failed to check for updates: status %d", status)
		}
		if len(tags) == 0 {
			info.LatestVersion = info.CurrentVersion
			return info, nil
		}
		// newest first
		latest = tags[0].TagName
	}

	info.LatestVersion = normalizeVersion(latest)
	info.UpdateAvailable = isNewerVersion(info.LatestVersion, info.CurrentVersion)
	return info, nil
}

// get decodes a 200 response into out and reports the status otherwise.
func (c *Checker) get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.APIURL, "/")+path, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse update response: %w", err)
	}
	return resp.StatusCode, nil
}

// normalizeVersion strips the "v" prefix if present.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion reports whether latest is a higher semantic version than
// current. Unparseable versions are never newer.
func isNewerVersion(latest, current string) bool {
	l, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	c, err := semver.NewVersion(current)
	if err != nil {
		return true
	}
	return l.GreaterThan(c)
}

// InstallCommand returns the command to update the application.
func InstallCommand() string {
	return "go install github.com/" + Repo + "/cmd/torrent-search@latest"
}
