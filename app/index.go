package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

var indexPattern = regexp.MustCompile(`views/Home/Index\.cshtml$`)

// Index returns App/views/Home/Index.cshtml as a plain-text adapter —
// cshtml has no syntax in the example pack's grammar set, so it is
// queried by regex like any other unstructured text.
func (a *App) Index() (content.Text, error) {
	return cached(a, "index", func(s *archivesession.Session) content.Text {
		f, ok := firstMatching(s, indexPattern)
		if !ok {
			return content.EmptyText
		}
		return content.ParseText(f.Bytes)
	})
}
