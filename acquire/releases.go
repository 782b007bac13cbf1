package acquire

import (
	"context"

	"github.com/sirupsen/logrus"

	"altinnaudit.dev/forge"
	"altinnaudit.dev/lockstore"
)

// Release is a Deployment resolved to a concrete source snapshot ready
// for download (spec.md §4.4 Stage 3).
type Release struct {
	Deployment Deployment
	CommitSHA  string
	StudioEnv  string
}

// Resolution is the outcome of resolving one Deployment: either a
// Release ready for Stage 4, or a terminal lock Entry (skip download
// because the entry is already settled, or because no studio instance
// holds a matching tag).
type Resolution struct {
	Download *Release
	Entry    *lockstore.Entry
}

// releaseSearcher is the slice of *forge.Client that Stage 3 needs,
// narrowed so tests can supply a fake studio host without a live
// network call.
type releaseSearcher interface {
	SearchRelease(ctx context.Context, studioEnv, org, app, version string) (commitSHA string, found bool, err error)
}

// ResolveRelease applies the five-branch lock-entry logic of spec.md
// §4.4 Stage 3 to one Deployment:
//
//  1. a prior failed entry is left alone unless retryFailed is set.
//  2. a prior failed entry for the same version, with retryFailed set,
//     reuses its known commit_sha/studio_env and is retried.
//  3. a prior success entry for the same version is left alone (already
//     up to date).
//  4. otherwise every configured studio_env is probed in turn,
//     preferring the previously-known studio_env, for a release tag
//     equal to the deployment's version.
//  5. if no studio instance has a matching tag, the prior entry (if any)
//     is carried over with a warning; otherwise the deployment is
//     dropped with a warning.
func ResolveRelease(ctx context.Context, client releaseSearcher, tokens map[string]string, retryFailed bool, dep Deployment, prev lockstore.Entry, hadPrev bool, log *logrus.Entry) Resolution {
	if hadPrev && prev.Status == lockstore.StatusFailed && !retryFailed {
		entry := prev
		return Resolution{Entry: &entry}
	}
	if hadPrev && prev.Status == lockstore.StatusFailed && prev.Version == dep.Version && retryFailed {
		return Resolution{Download: &Release{Deployment: dep, CommitSHA: prev.CommitSHA, StudioEnv: prev.StudioEnv}}
	}
	if hadPrev && prev.Status == lockstore.StatusSuccess && prev.Version == dep.Version {
		entry := prev
		return Resolution{Entry: &entry}
	}

	for _, studioEnv := range probeOrder(prev, hadPrev) {
		token, ok := tokens[studioEnv]
		if !ok || token == "" {
			continue
		}
		sha, found, err := client.SearchRelease(ctx, studioEnv, dep.Cluster.Org, dep.App, dep.Version)
		if err != nil {
			log.WithFields(logrus.Fields{"studio_env": studioEnv, "app": dep.App, "error": err}).
				Warn("release search failed, trying next studio environment")
			continue
		}
		if found {
			return Resolution{Download: &Release{Deployment: dep, CommitSHA: sha, StudioEnv: studioEnv}}
		}
	}

	if hadPrev {
		entry := prev
		log.WithFields(logrus.Fields{"env": dep.Cluster.Env, "org": dep.Cluster.Org, "app": dep.App, "version": dep.Version}).
			Warn("no studio instance has a matching release, carrying over prior entry")
		return Resolution{Entry: &entry}
	}
	log.WithFields(logrus.Fields{"env": dep.Cluster.Env, "org": dep.Cluster.Org, "app": dep.App, "version": dep.Version}).
		Warn("no studio instance has a matching release for new app, dropping")
	return Resolution{}
}

// probeOrder lists studio environments to search, preferring the
// deployment's previously-known studio_env.
func probeOrder(prev lockstore.Entry, hadPrev bool) []string {
	if !hadPrev || prev.StudioEnv == "" {
		return forge.StudioEnvironments
	}
	order := []string{prev.StudioEnv}
	for _, env := range forge.StudioEnvironments {
		if env != prev.StudioEnv {
			order = append(order, env)
		}
	}
	return order
}
