package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

var processPattern = regexp.MustCompile(`config/process/process\.bpmn$`)

// Process returns the app's BPMN process definition as an XML adapter.
func (a *App) Process() (content.XML, error) {
	return cached(a, "process", func(s *archivesession.Session) content.XML {
		f, ok := firstMatching(s, processPattern)
		if !ok {
			return content.EmptyXML
		}
		return content.ParseXML(f.Bytes)
	})
}
