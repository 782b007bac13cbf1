package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
	"altinnaudit.dev/iter"
)

var csprojPattern = regexp.MustCompile(`\.csproj$`)

// CsprojFiles returns every .csproj file under App as a lazy sequence
// of XML adapters (backend_version(s) is derived from these in
// versions.go).
func (a *App) CsprojFiles() (*iter.Seq[content.XML], error) {
	return cached(a, "csproj", func(s *archivesession.Session) *iter.Seq[content.XML] {
		files := ensureSeqConsumed(s.FilesMatching(csprojPattern))
		return iter.Map(iter.New(files), func(f archivesession.File) content.XML {
			return content.ParseXML(f.Bytes)
		})
	})
}
