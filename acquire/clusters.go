// Package acquire implements the three-stage Fleet Acquisition Pipeline
// from spec.md §4.4: clusters → deployments → releases → archive
// downloads, with partial-failure carry-over and end-of-run lock
// reconciliation.
package acquire

import (
	"context"

	"altinnaudit.dev/broker"
)

const orgsURL = "https://altinncdn.no/orgs/altinn-orgs.json"

// rawEnvironmentTags maps the orgs document's raw environment tags to
// this system's closed Environment set (spec.md §4.4 Stage 1). Tags
// absent from this map are ignored.
var rawEnvironmentTags = map[string]string{
	"tt02":       "tt02",
	"production": "prod",
}

// Cluster is (Environment, org), the unit of deployment discovery
// (spec.md §3).
type Cluster struct {
	Env string
	Org string
}

type orgsDocument struct {
	Orgs map[string]struct {
		Environments []string `json:"environments"`
	} `json:"orgs"`
}

// FetchClusters fetches the public orgs document and emits one Cluster
// per (env, org) after mapping raw environment tags (spec.md §4.4 Stage
// 1, §6).
func FetchClusters(ctx context.Context, b *broker.Broker) ([]Cluster, error) {
	return fetchClustersFrom(ctx, b, orgsURL)
}

// fetchClustersFrom is FetchClusters against an arbitrary URL, split out
// for testing against an httptest server.
func fetchClustersFrom(ctx context.Context, b *broker.Broker, url string) ([]Cluster, error) {
	var doc orgsDocument
	if err := b.FetchJSON(ctx, url, &doc); err != nil {
		return nil, err
	}
	var clusters []Cluster
	for org, info := range doc.Orgs {
		for _, raw := range info.Environments {
			env, ok := rawEnvironmentTags[raw]
			if !ok {
				continue
			}
			clusters = append(clusters, Cluster{Env: env, Org: org})
		}
	}
	return clusters, nil
}
