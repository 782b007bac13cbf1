// Package forge models Altinn Studio as a Gitea-compatible forge: each
// StudioEnvironment (prod/staging/dev) is a distinct Gitea-flavored
// host serving a designer API for release discovery and a repository
// archive endpoint for source snapshots.
//
// This descends from the teacher's GiteaGetRepo, which drove the
// official code.gitea.io/sdk/gitea client against a single Gitea
// instance to pull a tar.gz of one branch. Here the domain has three
// hosts instead of one, release discovery goes through Studio's own
// designer API rather than Gitea's native tags/branches endpoints, and
// archives are fetched as commit-addressed zips through the bounded
// request broker instead of the SDK's own archive reader — but the
// SDK's client still does the one job a hand-rolled HTTP call
// shouldn't: authenticating and validating a token against the host
// before a run ever touches it.
package forge

import (
	"context"
	"fmt"

	"code.gitea.io/sdk/gitea"

	"altinnaudit.dev/broker"
)

// StudioEnvironments lists every recognized studio_env, in probe order
// (spec.md §4.4 Stage 3: "probe each configured StudioEnvironment in
// turn, preferring the previously-known studio_env if any").
var StudioEnvironments = []string{"prod", "staging", "dev"}

// BaseURL returns the Gitea-compatible host serving studioEnv.
func BaseURL(studioEnv string) string {
	if studioEnv == "prod" {
		return "https://altinn.studio"
	}
	return fmt.Sprintf("https://%s.altinn.studio", studioEnv)
}

// releasesResponse is the shape of the designer API's releases listing.
type releasesResponse struct {
	Results []struct {
		TagName         string `json:"tagName"`
		TargetCommitish string `json:"targetCommitish"`
	} `json:"results"`
}

// Client is the Studio-host client used by the acquisition pipeline's
// Stage 3 (release search) and Stage 4 (archive download).
type Client struct {
	b *broker.Broker
}

// NewClient returns a Client issuing requests through b.
func NewClient(b *broker.Broker) *Client {
	return &Client{b: b}
}

// SearchRelease calls "{base}/designer/api/{org}/{app}/releases" and
// returns the commit SHA (targetCommitish) of the first result whose
// tagName equals version, per spec.md §4.4 Stage 3.4.
func (c *Client) SearchRelease(ctx context.Context, studioEnv, org, app, version string) (commitSHA string, found bool, err error) {
	url := fmt.Sprintf("%s/designer/api/%s/%s/releases", BaseURL(studioEnv), org, app)
	var resp releasesResponse
	if err := c.b.FetchJSON(ctx, url, &resp); err != nil {
		return "", false, err
	}
	sha, found := firstMatchingTag(resp, version)
	return sha, found, nil
}

// firstMatchingTag returns the commit SHA of the first result whose
// tagName equals version, split out of SearchRelease for unit testing
// without a live host.
func firstMatchingTag(resp releasesResponse, version string) (commitSHA string, found bool) {
	for _, r := range resp.Results {
		if r.TagName == version {
			return r.TargetCommitish, true
		}
	}
	return "", false
}

// ArchiveURL returns the commit-addressed archive URL for (org, app,
// commitSHA) on studioEnv (spec.md §6).
func ArchiveURL(studioEnv, org, app, commitSHA string) string {
	return fmt.Sprintf("%s/repos/%s/%s/archive/%s.zip", BaseURL(studioEnv), org, app, commitSHA)
}

// DownloadArchive streams the archive for (org, app, commitSHA) on
// studioEnv to destPath, authenticated with token (spec.md §4.4 Stage
// 4).
func (c *Client) DownloadArchive(ctx context.Context, studioEnv, org, app, commitSHA, token, destPath string, progress broker.ProgressFunc) error {
	return c.b.DownloadFile(ctx, token, ArchiveURL(studioEnv, org, app, commitSHA), destPath, progress)
}

// VerifyToken validates a bearer token against studioEnv's host by
// asking the Gitea-compatible API who it authenticates as — the one
// piece of real Gitea-SDK traffic this client sends, run once per
// studio_env at startup rather than per-request (see config.LoadKeys).
func VerifyToken(studioEnv, token string) error {
	client, err := gitea.NewClient(BaseURL(studioEnv), gitea.SetToken(token))
	if err != nil {
		return fmt.Errorf("forge: build gitea client for %s: %w", studioEnv, err)
	}
	if _, _, err := client.GetMyUserInfo(); err != nil {
		return fmt.Errorf("forge: token rejected by %s: %w", studioEnv, err)
	}
	return nil
}
