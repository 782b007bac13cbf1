package acquire

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altinnaudit.dev/lockstore"
)

type fakeSearcher struct {
	// results[studioEnv][version] = commitSHA; absence means not found.
	results map[string]map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) SearchRelease(ctx context.Context, studioEnv, org, app, version string) (string, bool, error) {
	f.calls = append(f.calls, studioEnv)
	if err, ok := f.errs[studioEnv]; ok {
		return "", false, err
	}
	sha, ok := f.results[studioEnv][version]
	return sha, ok, nil
}

var allTokens = map[string]string{"prod": "p", "staging": "s", "dev": "d"}

func testLog() *logrus.Entry { return logrus.NewEntry(logrus.New()) }

func TestResolveReleaseSkipsFailedWithoutRetry(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "1.0.0"}
	prev := lockstore.Entry{Version: "1.0.0", Status: lockstore.StatusFailed}
	f := &fakeSearcher{}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, prev, true, testLog())
	require.NotNil(t, res.Entry)
	assert.Nil(t, res.Download)
	assert.Empty(t, f.calls)
}

func TestResolveReleaseSkipsFailedWithoutRetryEvenIfVersionChanged(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "2.0.0"}
	prev := lockstore.Entry{Version: "1.0.0", Status: lockstore.StatusFailed}
	f := &fakeSearcher{}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, prev, true, testLog())
	require.NotNil(t, res.Entry)
	assert.Equal(t, "1.0.0", res.Entry.Version)
	assert.Nil(t, res.Download)
	assert.Empty(t, f.calls)
}

func TestResolveReleaseRetriesFailedReusingCommitSHA(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "1.0.0"}
	prev := lockstore.Entry{Version: "1.0.0", Status: lockstore.StatusFailed, CommitSHA: "deadbeef", StudioEnv: "staging"}
	f := &fakeSearcher{}

	res := ResolveRelease(context.Background(), f, allTokens, true, dep, prev, true, testLog())
	require.NotNil(t, res.Download)
	assert.Equal(t, "deadbeef", res.Download.CommitSHA)
	assert.Equal(t, "staging", res.Download.StudioEnv)
	assert.Empty(t, f.calls)
}

func TestResolveReleaseSkipsSameVersionSuccess(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "1.0.0"}
	prev := lockstore.Entry{Version: "1.0.0", Status: lockstore.StatusSuccess}
	f := &fakeSearcher{}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, prev, true, testLog())
	require.NotNil(t, res.Entry)
	assert.Nil(t, res.Download)
	assert.Empty(t, f.calls)
}

func TestResolveReleaseProbesPreferringKnownStudioEnv(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "2.0.0"}
	prev := lockstore.Entry{Version: "1.0.0", Status: lockstore.StatusSuccess, StudioEnv: "dev"}
	f := &fakeSearcher{results: map[string]map[string]string{
		"dev": {"2.0.0": "cafebabe"},
	}}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, prev, true, testLog())
	require.NotNil(t, res.Download)
	assert.Equal(t, "cafebabe", res.Download.CommitSHA)
	assert.Equal(t, "dev", res.Download.StudioEnv)
	assert.Equal(t, "dev", f.calls[0])
}

func TestResolveReleaseFallsThroughEnvironmentsInOrder(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "2.0.0"}
	f := &fakeSearcher{results: map[string]map[string]string{
		"dev": {"2.0.0": "cafebabe"},
	}}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, lockstore.Entry{}, false, testLog())
	require.NotNil(t, res.Download)
	assert.Equal(t, []string{"prod", "staging", "dev"}, f.calls)
}

func TestResolveReleaseCarriesOverOnNoMatch(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "2.0.0"}
	prev := lockstore.Entry{Version: "1.0.0", Status: lockstore.StatusSuccess, CommitSHA: "old"}
	f := &fakeSearcher{}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, prev, true, testLog())
	require.NotNil(t, res.Entry)
	assert.Nil(t, res.Download)
	assert.Equal(t, "old", res.Entry.CommitSHA)
}

func TestResolveReleaseDropsNewAppOnNoMatch(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "2.0.0"}
	f := &fakeSearcher{}

	res := ResolveRelease(context.Background(), f, allTokens, false, dep, lockstore.Entry{}, false, testLog())
	assert.Nil(t, res.Entry)
	assert.Nil(t, res.Download)
}

func TestResolveReleaseSkipsUnconfiguredStudioEnv(t *testing.T) {
	dep := Deployment{Cluster: Cluster{Env: "prod", Org: "digdir"}, App: "skjema", Version: "2.0.0"}
	f := &fakeSearcher{results: map[string]map[string]string{"staging": {"2.0.0": "sha"}}}

	res := ResolveRelease(context.Background(), f, map[string]string{"staging": "s"}, false, dep, lockstore.Entry{}, false, testLog())
	require.NotNil(t, res.Download)
	assert.Equal(t, []string{"staging"}, f.calls)
}
