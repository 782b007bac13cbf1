package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

var textResourcePattern = regexp.MustCompile(`config/texts/resource\.([a-zA-Z-]+)\.json$`)

// TextResources returns every text-resource bundle under
// App/config/texts, keyed by the language tag derived from its
// filename (spec.md §3: TextResource[lang]).
func (a *App) TextResources() (map[string]content.JSON, error) {
	return cached(a, "textResources", func(s *archivesession.Session) map[string]content.JSON {
		out := make(map[string]content.JSON)
		for _, f := range filesMatching(s, textResourcePattern) {
			m := textResourcePattern.FindStringSubmatch(f.Path)
			if m == nil {
				continue
			}
			out[m[1]] = content.ParseJSON(f.Bytes)
		}
		return out
	})
}

// TextResource returns the bundle for lang, or content.EmptyJSON if
// absent.
func (a *App) TextResource(lang string) (content.JSON, error) {
	resources, err := a.TextResources()
	if err != nil {
		return content.EmptyJSON, err
	}
	if doc, ok := resources[lang]; ok {
		return doc, nil
	}
	return content.EmptyJSON, nil
}
