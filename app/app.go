// Package app implements the App descriptor from spec.md §3/§4.7/§9: a
// single deployed application, identified by (env, org, app), whose
// archive is opened lazily and whose derived content (metadata,
// layouts, versions, ...) is cached for the lifetime of that opening.
package app

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/iter"
	"altinnaudit.dev/lockstore"
)

// ErrCopyWhileOpen is the programmer error raised by Clone on an App
// whose archive session is currently open (spec.md §9, V9).
var ErrCopyWhileOpen = fmt.Errorf("app: cannot copy an App while its archive session is open")

// ErrNotOpen is raised by any content accessor called outside Open/With
// (spec.md §4.6/§9, V9).
var ErrNotOpen = fmt.Errorf("app: content accessed outside an open session")

// App is the immutable descriptor plus transient open-session state
// described in spec.md §3. Always used through a pointer; Clone is the
// only sanctioned way to duplicate one.
type App struct {
	Env       string
	Org       string
	AppName   string
	CommitSHA string
	StudioEnv string
	ArchiveDir string
	RepoURL   string

	// Data is the read-only projection attached by the query frontend's
	// select stage. nil until select runs.
	Data map[string]interface{}

	mu      sync.Mutex
	open    bool
	session *archivesession.Session
	cache   map[string]interface{}
}

// New builds an App descriptor from a lock entry, as done once at
// corpus load time (spec.md §3: "descriptors are created when the lock
// store is loaded").
func New(entry lockstore.Entry, archiveDir, repoURL string) *App {
	return &App{
		Env:        entry.Env,
		Org:        entry.Org,
		AppName:    entry.App,
		CommitSHA:  entry.CommitSHA,
		StudioEnv:  entry.StudioEnv,
		ArchiveDir: archiveDir,
		RepoURL:    repoURL,
	}
}

// Key returns the lock-entry key "{env}-{org}-{app}".
func (a *App) Key() string { return lockstore.Key(a.Env, a.Org, a.AppName) }

// ArchivePath returns the path to this App's archive on disk.
func (a *App) ArchivePath() string {
	return filepath.Join(a.ArchiveDir, a.Key()+".zip")
}

// IsOpen reports whether an archive session is currently held.
func (a *App) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.open
}

// Open acquires the archive session. Double-opening mirrors
// archivesession's own double-enter error.
func (a *App) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.open {
		return archivesession.ErrDoubleEnter
	}
	a.session = archivesession.New(a.ArchivePath(), a.RepoURL, a.CommitSHA, "App")
	if err := a.session.Enter(); err != nil {
		a.session = nil
		return err
	}
	a.open = true
	a.cache = make(map[string]interface{})
	return nil
}

// Close releases the archive session. Safe to call on an already-closed
// App.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.open {
		return nil
	}
	err := a.session.Exit()
	a.open = false
	a.session = nil
	a.cache = nil
	return err
}

// With opens the App, runs fn, and guarantees Close runs on every exit
// path including a panic — the Go shape of spec.md's `with App(...) as
// a: ...` session discipline.
func With[T any](a *App, fn func(*App) (T, error)) (T, error) {
	var zero T
	if err := a.Open(); err != nil {
		return zero, err
	}
	defer a.Close()
	return fn(a)
}

// Clone returns a shallow descriptor copy (no archive session, no
// content cache) suitable for the query frontend's select stage. It is
// an error to clone an App while its session is open (spec.md §9, V9).
func (a *App) Clone() (*App, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.open {
		return nil, ErrCopyWhileOpen
	}
	data := make(map[string]interface{}, len(a.Data))
	for k, v := range a.Data {
		data[k] = v
	}
	return &App{
		Env: a.Env, Org: a.Org, AppName: a.AppName, CommitSHA: a.CommitSHA,
		StudioEnv: a.StudioEnv, ArchiveDir: a.ArchiveDir, RepoURL: a.RepoURL,
		Data: data,
	}, nil
}

// cached returns the value built by build for key, computing and
// caching it at most once per open session. Must only be called while
// open; returns the zero value and ErrNotOpen otherwise.
func cached[T any](a *App, key string, build func(*archivesession.Session) T) (T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero T
	if !a.open {
		return zero, ErrNotOpen
	}
	if v, ok := a.cache[key]; ok {
		return v.(T), nil
	}
	v := build(a.session)
	a.cache[key] = v
	return v, nil
}

// filesMatching is a small helper shared by the content-entity builders
// in this package: read every archive member matching pattern while
// the App is open.
func filesMatching(s *archivesession.Session, pattern *regexp.Regexp) []archivesession.File {
	return s.FilesMatching(pattern).List()
}

// firstMatching returns the first archive member matching pattern, or
// ok=false.
func firstMatching(s *archivesession.Session, pattern *regexp.Regexp) (archivesession.File, bool) {
	files := filesMatching(s, pattern)
	if len(files) == 0 {
		return archivesession.File{}, false
	}
	return files[0], true
}

// ensureSeqConsumed forces materialization of a lazy sequence derived
// from session-owned bytes before it can escape the session scope
// (spec.md §3 Ownership: "the engine enforces this by forcing
// materialization on the last line of a session-scoped function").
func ensureSeqConsumed[T any](s *iter.Seq[T]) []T { return s.List() }
