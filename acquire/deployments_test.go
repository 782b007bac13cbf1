package acquire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"altinnaudit.dev/broker"
	"altinnaudit.dev/lockstore"
)

func TestDeploymentsURL(t *testing.T) {
	assert.Equal(t, "https://digdir.apps.altinn.no/kuberneteswrapper/api/v1/deployments", deploymentsURL(Cluster{Env: "prod", Org: "digdir"}))
	assert.Equal(t, "https://digdir.apps.tt02.altinn.no/kuberneteswrapper/api/v1/deployments", deploymentsURL(Cluster{Env: "tt02", Org: "digdir"}))
}

func TestFetchDeploymentsSkipsInfraAndMapsApp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"release": "kuberneteswrapper", "version": "1.2.3"},
			{"release": "digdir-skjema", "version": "4.1.0"},
			{"release": "", "version": "1.0.0"},
			{"release": "digdir-other", "version": ""}
		]`))
	}))
	defer srv.Close()

	b := broker.New(broker.Config{}, logrus.NewEntry(logrus.New()))
	cluster := Cluster{Env: "prod", Org: "digdir"}

	deployments, carried := fetchDeploymentsFrom(context.Background(), b, cluster, srv.URL, nil, logrus.NewEntry(logrus.New()))
	assert.Empty(t, carried)
	require.Len(t, deployments, 1)
	assert.Equal(t, Deployment{Cluster: cluster, App: "skjema", Version: "4.1.0"}, deployments[0])
}

func TestFetchDeploymentsCarriesOverOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := broker.New(broker.Config{PerHostConcurrency: 1, MaxRetries: 1, RetryDelay: 1}, logrus.NewEntry(logrus.New()))
	cluster := Cluster{Env: "prod", Org: "digdir"}
	prev := map[string]lockstore.Entry{
		"prod-digdir-skjema": {Env: "prod", Org: "digdir", App: "skjema", Status: lockstore.StatusSuccess},
		"prod-digdir-old":    {Env: "prod", Org: "digdir", App: "old", Status: lockstore.StatusFailed},
		"tt02-digdir-other":  {Env: "tt02", Org: "digdir", App: "other", Status: lockstore.StatusSuccess},
	}

	deployments, carried := fetchDeploymentsFrom(context.Background(), b, cluster, srv.URL, prev, logrus.NewEntry(logrus.New()))
	assert.Nil(t, deployments)
	require.Len(t, carried, 1)
	assert.Equal(t, "skjema", carried[0].App)
}
