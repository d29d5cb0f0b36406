// Package nuget owns the package feed boundary.
//
// Ownership boundary:
// - published-version lookup against a flat-container feed
// - package materialization through the nuget CLI
package nuget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrFeedURLRequired = errors.New("nuget: feed url required")
	ErrPackageNotFound = errors.New("nuget: package not found")
	ErrNoVersions      = errors.New("nuget: no published versions")
)

// VersionSource resolves the newest published version for one package id.
type VersionSource interface {
	LatestVersion(ctx context.Context, pkg string, includePrerelease bool) (string, error)
}

// Client queries a v3 flat-container style feed for published versions.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a feed client rooted at a flat-container base URL.
func NewClient(feedURL string) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(feedURL), "/")
	if base == "" {
		return nil, ErrFeedURLRequired
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// versionIndex mirrors the feed's per-package index.json document.
type versionIndex struct {
	Versions []string `json:"versions"`
}

// LatestVersion returns the newest listed version, honoring the prerelease channel flag.
func (c *Client) LatestVersion(ctx context.Context, pkg string, includePrerelease bool) (string, error) {
	id := strings.ToLower(strings.TrimSpace(pkg))
	if id == "" {
		return "", fmt.Errorf("%w: empty package id", ErrPackageNotFound)
	}

	url := fmt.Sprintf("%s/%s/index.json", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("nuget: build request for %s: %w", pkg, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("nuget: version lookup for %s: %w", pkg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrPackageNotFound, pkg)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nuget: version lookup for %s: unexpected status %d", pkg, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("nuget: version lookup for %s: %w", pkg, err)
	}
	var index versionIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return "", fmt.Errorf("nuget: decode version index for %s: %w", pkg, err)
	}

	// Flat-container indexes list versions oldest first.
	latest := ""
	for _, v := range index.Versions {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if !includePrerelease && IsPrerelease(v) {
			continue
		}
		latest = v
	}
	if latest == "" {
		return "", fmt.Errorf("%w: %s", ErrNoVersions, pkg)
	}
	return latest, nil
}

// IsPrerelease reports whether a version string carries a prerelease tag.
func IsPrerelease(version string) bool {
	return strings.Contains(version, "-")
}
