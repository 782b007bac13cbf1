package acquire

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"altinnaudit.dev/broker"
	"altinnaudit.dev/lockstore"
)

// Deployment is the currently-running version of an app in a cluster
// (spec.md §3).
type Deployment struct {
	Cluster Cluster
	App     string
	Version string
}

// Key returns the lock-entry key "{env}-{org}-{app}".
func (d Deployment) Key() string { return lockstore.Key(d.Cluster.Env, d.Cluster.Org, d.App) }

type deploymentEntry struct {
	Release string `json:"release"`
	Version string `json:"version"`
}

func deploymentsURL(c Cluster) string {
	if c.Env == "prod" {
		return fmt.Sprintf("https://%s.apps.altinn.no/kuberneteswrapper/api/v1/deployments", c.Org)
	}
	return fmt.Sprintf("https://%s.apps.%s.altinn.no/kuberneteswrapper/api/v1/deployments", c.Org, c.Env)
}

// FetchDeployments fetches the deployments list for one cluster. On
// request failure it carries over any prior success entries for this
// cluster and logs a warning, rather than propagating the error (spec.md
// §4.4 Stage 2, §7: "acquisition surfaces counts and warnings, never
// exceptions").
func FetchDeployments(ctx context.Context, b *broker.Broker, cluster Cluster, prevLock map[string]lockstore.Entry, log *logrus.Entry) (deployments []Deployment, carriedOver []lockstore.Entry) {
	return fetchDeploymentsFrom(ctx, b, cluster, deploymentsURL(cluster), prevLock, log)
}

// fetchDeploymentsFrom is FetchDeployments against an arbitrary URL, split
// out for testing against an httptest server.
func fetchDeploymentsFrom(ctx context.Context, b *broker.Broker, cluster Cluster, url string, prevLock map[string]lockstore.Entry, log *logrus.Entry) (deployments []Deployment, carriedOver []lockstore.Entry) {
	var resp []deploymentEntry
	if err := b.FetchJSON(ctx, url, &resp); err != nil {
		for _, entry := range prevLock {
			if entry.Env == cluster.Env && entry.Org == cluster.Org && entry.Status == lockstore.StatusSuccess {
				carriedOver = append(carriedOver, entry)
			}
		}
		log.WithFields(logrus.Fields{"env": cluster.Env, "org": cluster.Org, "error": err}).
			Warnf("deployments fetch failed, carrying over %d prior apps", len(carriedOver))
		return nil, carriedOver
	}

	prefix := cluster.Org + "-"
	for _, d := range resp {
		if d.Release == "kuberneteswrapper" || d.Release == "" || d.Version == "" {
			continue
		}
		deployments = append(deployments, Deployment{
			Cluster: cluster,
			App:     strings.TrimPrefix(d.Release, prefix),
			Version: d.Version,
		})
	}
	return deployments, nil
}
