package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
	"altinnaudit.dev/iter"
)

var programPattern = regexp.MustCompile(`/Program\.cs$`)
var anyCSharpPattern = regexp.MustCompile(`\.cs$`)

// Program returns App/Program.cs as a C# source-code adapter.
func (a *App) Program() (content.Code, error) {
	return cached(a, "program", func(s *archivesession.Session) content.Code {
		f, ok := firstMatching(s, programPattern)
		if !ok {
			return content.EmptyCode
		}
		return content.ParseCode(f.Bytes, content.LangCSharp)
	})
}

// SourceFiles returns every .cs file under App as a lazy sequence of C#
// source-code adapters, for code-wide queries.
func (a *App) SourceFiles() (*iter.Seq[content.Code], error) {
	return cached(a, "sourceFiles", func(s *archivesession.Session) *iter.Seq[content.Code] {
		files := ensureSeqConsumed(s.FilesMatching(anyCSharpPattern))
		return iter.Map(iter.New(files), func(f archivesession.File) content.Code {
			return content.ParseCode(f.Bytes, content.LangCSharp)
		})
	})
}
