package forge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altinnaudit.dev/broker"
)

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://altinn.studio", BaseURL("prod"))
	assert.Equal(t, "https://staging.altinn.studio", BaseURL("staging"))
	assert.Equal(t, "https://dev.altinn.studio", BaseURL("dev"))
}

func TestArchiveURL(t *testing.T) {
	url := ArchiveURL("staging", "acme", "x", "deadbeef")
	assert.Equal(t, "https://staging.altinn.studio/repos/acme/x/archive/deadbeef.zip", url)
}

func TestFirstMatchingTagFindsMatch(t *testing.T) {
	resp := releasesResponse{}
	resp.Results = append(resp.Results,
		struct {
			TagName         string `json:"tagName"`
			TargetCommitish string `json:"targetCommitish"`
		}{TagName: "1.0", TargetCommitish: "abc"},
		struct {
			TagName         string `json:"tagName"`
			TargetCommitish string `json:"targetCommitish"`
		}{TagName: "2.0", TargetCommitish: "def"},
	)

	sha, found := firstMatchingTag(resp, "2.0")
	assert.True(t, found)
	assert.Equal(t, "def", sha)
}

func TestFirstMatchingTagNoMatch(t *testing.T) {
	resp := releasesResponse{}
	resp.Results = append(resp.Results, struct {
		TagName         string `json:"tagName"`
		TargetCommitish string `json:"targetCommitish"`
	}{TagName: "1.0", TargetCommitish: "abc"})

	_, found := firstMatchingTag(resp, "9.9")
	assert.False(t, found)
}

func TestSearchReleaseAgainstTestServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/designer/api/acme/x/releases", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"tagName":"2.0","targetCommitish":"def"}]}`))
	}))
	defer srv.Close()

	// SearchRelease always targets the fixed altinn.studio hosts via
	// BaseURL, so here we run its two steps (FetchJSON on the releases
	// path, then firstMatchingTag) against the test server instead.
	b := broker.New(broker.Config{}, logrus.NewEntry(logrus.New()))
	var resp releasesResponse
	require.NoError(t, b.FetchJSON(context.Background(), srv.URL+"/designer/api/acme/x/releases", &resp))
	sha, found := firstMatchingTag(resp, "2.0")
	assert.True(t, found)
	assert.Equal(t, "def", sha)
}

func TestDownloadArchiveUsesArchiveURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "token abc123", r.Header.Get("Authorization"))
		w.Write([]byte("zip-bytes"))
	}))
	defer srv.Close()

	// DownloadArchive always targets the fixed altinn.studio host via
	// ArchiveURL, so here we take ArchiveURL's path and exercise the
	// broker's download path directly against the test server instead,
	// matching what DownloadArchive delegates to internally.
	path := strings.TrimPrefix(ArchiveURL("prod", "acme", "x", "deadbeef"), BaseURL("prod"))
	b := broker.New(broker.Config{}, logrus.NewEntry(logrus.New()))
	dest := t.TempDir() + "/out.zip"
	require.NoError(t, b.DownloadFile(context.Background(), "abc123", srv.URL+path, dest, nil))
	assert.Equal(t, "/repos/acme/x/archive/deadbeef.zip", gotPath)
}
