package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

var policyPattern = regexp.MustCompile(`config/authorization/policy\.xml$`)

// Policy returns the app's XACML authorization policy as an XML
// adapter.
func (a *App) Policy() (content.XML, error) {
	return cached(a, "policy", func(s *archivesession.Session) content.XML {
		f, ok := firstMatching(s, policyPattern)
		if !ok {
			return content.EmptyXML
		}
		return content.ParseXML(f.Bytes)
	})
}
