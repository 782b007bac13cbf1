// Package lockstore persists the fleet's lock file: a mapping of
// app-key to the last known source revision and acquisition status. The
// store is read once at the start of a run and rewritten atomically at
// the end, per spec.md §4.2.
package lockstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is the outcome of the last acquisition attempt for a key.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry is a persistent record pinning an App to a revision on disk.
// Invariant: a Success entry implies "{key}.zip" exists in the cache
// directory at lock-write time.
type Entry struct {
	Env        string    `json:"env"`
	Org        string    `json:"org"`
	App        string    `json:"app"`
	Version    string    `json:"version"`
	CommitSHA  string    `json:"commit_sha"`
	Status     Status    `json:"status"`
	StudioEnv  string    `json:"studio_env,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Key returns "{env}-{org}-{app}", the unique identifier spec.md assigns
// to a Deployment/Release/Entry.
func Key(env, org, app string) string {
	return fmt.Sprintf("%s-%s-%s", env, org, app)
}

const lockFileName = ".apps.lock.json"

// Store loads and rewrites the lock file at {cache_dir}/.apps.lock.json.
type Store struct {
	cacheDir string
	log      *logrus.Entry
}

// New returns a Store rooted at cacheDir. cacheDir is created on Flush if
// missing; Load treats a missing cacheDir like a missing lock file.
func New(cacheDir string, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{cacheDir: cacheDir, log: log.WithField("component", "lockstore")}
}

func (s *Store) path() string {
	return filepath.Join(s.cacheDir, lockFileName)
}

// ArchivePath returns the on-disk path for a given key's archive.
func (s *Store) ArchivePath(key string) string {
	return filepath.Join(s.cacheDir, key+".zip")
}

// Load reads the lock file, returning an empty map if it does not yet
// exist. A present-but-unreadable or malformed lock file is a
// configuration error (spec.md §7) and is returned as such.
func (s *Store) Load() (map[string]Entry, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lockstore: read %s: %w", s.path(), err)
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("lockstore: parse %s: %w", s.path(), err)
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	return entries, nil
}

// Flush writes entries atomically (write-temp + rename) and returns the
// set of keys present in the previous load but absent from entries —
// those apps' archives must be deleted by the caller (spec.md §4.2/V3).
// Flush does not itself delete archives so it stays a pure persistence
// operation independent of filesystem cleanup policy.
func (s *Store) Flush(previous, entries map[string]Entry) ([]string, error) {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("lockstore: mkdir %s: %w", s.cacheDir, err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("lockstore: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.cacheDir, ".apps.lock.*.tmp")
	if err != nil {
		return nil, fmt.Errorf("lockstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("lockstore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("lockstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path()); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("lockstore: rename temp file: %w", err)
	}

	removed := Reconcile(previous, entries)
	s.log.WithField("removed", len(removed)).Info("lock file written")
	return removed, nil
}

// Reconcile returns the keys present in previous but absent from next —
// the set whose archives must be deleted (V3: for every key in
// prev_lock_keys \ new_lock_keys, {key}.zip is absent after the run).
func Reconcile(previous, next map[string]Entry) []string {
	var removed []string
	for key := range previous {
		if _, ok := next[key]; !ok {
			removed = append(removed, key)
		}
	}
	return removed
}
