package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

var metadataPattern = regexp.MustCompile(`applicationmetadata\.json$`)

// ApplicationMetadata returns the app's single applicationmetadata.json
// as a JSON adapter. An absent file yields content.EmptyJSON.
func (a *App) ApplicationMetadata() (content.JSON, error) {
	return cached(a, "applicationmetadata", func(s *archivesession.Session) content.JSON {
		f, ok := firstMatching(s, metadataPattern)
		if !ok {
			return content.EmptyJSON
		}
		return content.ParseJSON(f.Bytes)
	})
}
