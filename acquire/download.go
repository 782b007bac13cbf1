package acquire

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"altinnaudit.dev/broker"
	"altinnaudit.dev/lockstore"
)

// archiveDownloader is the slice of *forge.Client Stage 4 needs.
type archiveDownloader interface {
	DownloadArchive(ctx context.Context, studioEnv, org, app, commitSHA, token, destPath string, progress broker.ProgressFunc) error
}

// Download fetches a Release's archive into {cacheDir}/{key}.zip and
// returns the lock Entry recording the outcome (spec.md §4.4 Stage 4).
// A missing bearer token for the release's studio_env is a soft skip:
// the prior entry (if any) is carried over rather than attempted.
func Download(ctx context.Context, client archiveDownloader, store *lockstore.Store, tokens map[string]string, rel Release, prev lockstore.Entry, hadPrev bool, log *logrus.Entry) lockstore.Entry {
	dep := rel.Deployment
	key := dep.Key()
	base := lockstore.Entry{
		Env:       dep.Cluster.Env,
		Org:       dep.Cluster.Org,
		App:       dep.App,
		Version:   dep.Version,
		CommitSHA: rel.CommitSHA,
		StudioEnv: rel.StudioEnv,
	}

	token, ok := tokens[rel.StudioEnv]
	if !ok || token == "" {
		log.WithFields(logrus.Fields{"key": key, "studio_env": rel.StudioEnv}).
			Warn("no token configured for studio environment, skipping download")
		if hadPrev {
			return prev
		}
		base.Status = lockstore.StatusFailed
		return base
	}

	dest := store.ArchivePath(key)
	err := client.DownloadArchive(ctx, rel.StudioEnv, dep.Cluster.Org, dep.App, rel.CommitSHA, token, dest, nil)
	base.UpdatedAt = time.Now()
	if err != nil {
		log.WithFields(logrus.Fields{"key": key, "error": err}).Warn("archive download failed")
		base.Status = lockstore.StatusFailed
		return base
	}
	base.Status = lockstore.StatusSuccess
	return base
}
