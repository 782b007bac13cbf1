package acquire

import (
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"altinnaudit.dev/broker"
	"altinnaudit.dev/forge"
	"altinnaudit.dev/lockstore"
)

// FailureCounts classifies every Deployment seen during a run, per
// spec.md §4.4 "failure classification visible to the user at the end
// of a run".
type FailureCounts struct {
	Updated             int
	AlreadyUpToDate     int
	Failed              int
	SkippedPriorFailure int
	SkippedNoMatch      int
	Removed             int
}

// RunResult is the outcome of a full acquisition pass.
type RunResult struct {
	Entries map[string]lockstore.Entry
	Counts  FailureCounts
}

// releaseAndArchiveClient is the slice of *forge.Client the pipeline's
// release-resolution and download stages need.
type releaseAndArchiveClient interface {
	releaseSearcher
	archiveDownloader
}

// Run executes the full four-stage pipeline: clusters, deployments,
// release resolution, and archive download, then reconciles the lock
// file and removes archives for keys no longer present (spec.md §4.2/V3,
// §4.4).
func Run(ctx context.Context, b *broker.Broker, client *forge.Client, store *lockstore.Store, tokens map[string]string, retryFailed bool, concurrency int, log *logrus.Entry) (RunResult, error) {
	clusters, err := FetchClusters(ctx, b)
	if err != nil {
		return RunResult{}, err
	}
	return run(ctx, b, client, store, clusters, tokens, retryFailed, concurrency, log)
}

// run is Run against an already-resolved cluster list, split out for
// testing without a live network call to the orgs document.
func run(ctx context.Context, b *broker.Broker, client releaseAndArchiveClient, store *lockstore.Store, clusters []Cluster, tokens map[string]string, retryFailed bool, concurrency int, log *logrus.Entry) (RunResult, error) {
	prevLock, err := store.Load()
	if err != nil {
		return RunResult{}, err
	}

	var mu sync.Mutex
	entries := make(map[string]lockstore.Entry)
	var counts FailureCounts
	record := func(key string, entry lockstore.Entry) {
		mu.Lock()
		entries[key] = entry
		mu.Unlock()
	}

	deployments, carriedOver := fanOutDeployments(ctx, b, clusters, prevLock, concurrency, log)
	for _, entry := range carriedOver {
		record(lockstore.Key(entry.Env, entry.Org, entry.App), entry)
		counts.AlreadyUpToDate++
	}

	var toDownload []Release
	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, dep := range deployments {
		dep := dep
		g.Go(func() error {
			key := dep.Key()
			prev, hadPrev := prevLock[key]
			res := ResolveRelease(ctx, client, tokens, retryFailed, dep, prev, hadPrev, log)

			switch {
			case res.Download != nil:
				mu.Lock()
				toDownload = append(toDownload, *res.Download)
				mu.Unlock()
			case res.Entry != nil:
				record(key, *res.Entry)
				mu.Lock()
				switch {
				case hadPrev && res.Entry.Status == lockstore.StatusFailed:
					counts.SkippedPriorFailure++
				case hadPrev && res.Entry.Version == dep.Version && res.Entry.Status == lockstore.StatusSuccess:
					counts.AlreadyUpToDate++
				default:
					counts.SkippedNoMatch++
				}
				mu.Unlock()
			default:
				mu.Lock()
				counts.SkippedNoMatch++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	dg := new(errgroup.Group)
	dg.SetLimit(concurrency)
	for _, rel := range toDownload {
		rel := rel
		dg.Go(func() error {
			key := rel.Deployment.Key()
			prev, hadPrev := prevLock[key]
			entry := Download(ctx, client, store, tokens, rel, prev, hadPrev, log)
			record(key, entry)
			mu.Lock()
			if entry.Status == lockstore.StatusSuccess {
				counts.Updated++
			} else {
				counts.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = dg.Wait()

	removed, err := store.Flush(prevLock, entries)
	if err != nil {
		return RunResult{}, err
	}
	for _, key := range removed {
		if rmErr := os.Remove(store.ArchivePath(key)); rmErr != nil && !os.IsNotExist(rmErr) {
			log.WithFields(logrus.Fields{"key": key, "error": rmErr}).Warn("failed to remove stale archive")
		}
	}
	counts.Removed = len(removed)

	return RunResult{Entries: entries, Counts: counts}, nil
}

// fanOutDeployments runs FetchDeployments across clusters with bounded
// concurrency, aggregating both live deployments and carried-over lock
// entries from clusters whose deployments call failed.
func fanOutDeployments(ctx context.Context, b *broker.Broker, clusters []Cluster, prevLock map[string]lockstore.Entry, concurrency int, log *logrus.Entry) ([]Deployment, []lockstore.Entry) {
	var mu sync.Mutex
	var deployments []Deployment
	var carried []lockstore.Entry

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, cluster := range clusters {
		cluster := cluster
		g.Go(func() error {
			deps, carriedOver := FetchDeployments(ctx, b, cluster, prevLock, log)
			mu.Lock()
			deployments = append(deployments, deps...)
			carried = append(carried, carriedOver...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return deployments, carried
}
