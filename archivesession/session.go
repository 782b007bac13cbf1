// Package archivesession implements the scoped, lazy archive access
// described in spec.md §4.6: one application's zip archive is opened on
// first access and closed on every exit path, never extracted to disk.
//
// This is the same domain as the teacher's archive.UnZip, but inverted:
// UnZip eagerly extracts every member to disk, while a Session keeps the
// archive compressed and serves individual members on demand through
// regex-addressed, lazily-read (bytes, path, remote URL) tuples.
package archivesession

import (
	"archive/zip"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"altinnaudit.dev/iter"
)

// File is one matched archive member. Bytes are read lazily: FilesMatching
// returns a Seq whose producer reads the member's bytes only when the
// sequence is first pulled.
type File struct {
	Path      string
	Bytes     []byte
	RemoteURL string
}

// Session is the scoped resource R = (open file, zip index) from
// spec.md §4.6. A zero-value-constructed Session must go through New.
type Session struct {
	zipPath    string
	repoURL    string
	commitSHA  string
	pathPrefix string

	mu      sync.Mutex
	entered bool
	reader  *zip.ReadCloser
}

// New returns a Session over zipPath. repoURL/commitSHA/pathPrefix are
// used only to render FilesMatching's remote_url permalinks
// ("{repo_url}/src/commit/{sha}{path-after-prefix}").
func New(zipPath, repoURL, commitSHA, pathPrefix string) *Session {
	return &Session{zipPath: zipPath, repoURL: repoURL, commitSHA: commitSHA, pathPrefix: pathPrefix}
}

// ErrDoubleEnter is returned by Enter when the session is already open.
var ErrDoubleEnter = fmt.Errorf("archivesession: session already entered")

// ErrNotEntered is the internal error for content/files access outside
// a scoped Enter/Exit region. FileExists and FilesMatching do not pass
// it on: outside a session they report false and an empty sequence.
var ErrNotEntered = fmt.Errorf("archivesession: access outside open session")

// Enter marks the session as open. The underlying zip file itself is
// opened lazily on first FileExists/FilesMatching call, not here.
func (s *Session) Enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entered {
		return ErrDoubleEnter
	}
	s.entered = true
	return nil
}

// Exit closes the underlying zip reader (if it was ever opened) and
// marks the session closed. Exit is safe to call even if Enter's
// underlying open never happened, and idempotent after the first call.
func (s *Session) Exit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entered = false
	if s.reader != nil {
		err := s.reader.Close()
		s.reader = nil
		return err
	}
	return nil
}

func (s *Session) ensureOpen() (*zip.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.entered {
		return nil, ErrNotEntered
	}
	if s.reader == nil {
		r, err := zip.OpenReader(s.zipPath)
		if err != nil {
			return nil, fmt.Errorf("archivesession: open %s: %w", s.zipPath, err)
		}
		s.reader = r
	}
	return s.reader, nil
}

// FileExists reports whether any archive member name matches pattern.
func (s *Session) FileExists(pattern *regexp.Regexp) bool {
	r, err := s.ensureOpen()
	if err != nil {
		return false
	}
	for _, f := range r.File {
		if pattern.MatchString(f.Name) {
			return true
		}
	}
	return false
}

// FilesMatching returns a lazy sequence of every archive member whose
// name matches pattern, as (bytes, path, remote_url) tuples. Bytes are
// read only when the sequence is materialized (iter.Seq.List or any
// terminal operation).
func (s *Session) FilesMatching(pattern *regexp.Regexp) *iter.Seq[File] {
	return iter.FromFunc(func() []File {
		r, err := s.ensureOpen()
		if err != nil {
			return nil
		}
		var out []File
		for _, zf := range r.File {
			if zf.FileInfo().IsDir() || !pattern.MatchString(zf.Name) {
				continue
			}
			data, err := readZipFile(zf)
			if err != nil {
				continue
			}
			out = append(out, File{
				Path:      zf.Name,
				Bytes:     data,
				RemoteURL: s.remoteURL(zf.Name),
			})
		}
		return out
	})
}

func (s *Session) remoteURL(path string) string {
	if s.repoURL == "" || s.commitSHA == "" {
		return ""
	}
	rel := strings.TrimPrefix(path, s.pathPrefix)
	if !strings.HasPrefix(rel, "/") {
		rel = "/" + rel
	}
	return fmt.Sprintf("%s/src/commit/%s%s", strings.TrimSuffix(s.repoURL, "/"), s.commitSHA, rel)
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	buf := make([]byte, 0, zf.UncompressedSize64)
	out := make([]byte, 4096)
	for {
		n, err := rc.Read(out)
		if n > 0 {
			buf = append(buf, out[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}

// Use runs fn within a scoped Enter/Exit region, guaranteeing the
// session is closed on every exit path including a panic from fn. Use
// does not materialize anything fn returns: callers building a result
// from a Seq must call .List() on it before returning it from fn, since
// "any lazy sequence produced by a session must be fully consumed
// before the session exits" (spec.md §4.6).
func Use[T any](zipPath, repoURL, commitSHA, pathPrefix string, fn func(*Session) (T, error)) (T, error) {
	var zero T
	s := New(zipPath, repoURL, commitSHA, pathPrefix)
	if err := s.Enter(); err != nil {
		return zero, err
	}
	defer s.Exit()
	return fn(s)
}
