package app

import (
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

// appsettingsPattern tags by filename: appsettings.json (no env) or
// appsettings.<env>.json.
var appsettingsPattern = regexp.MustCompile(`appsettings(\.([a-zA-Z0-9-]+))?\.json$`)

const defaultAppSettingsEnv = "base"

// AppSettings returns every appsettings[.<env>].json document, keyed by
// its recognized environment tag, or "base" for the untagged file
// (spec.md §3: AppSettings[env]).
func (a *App) AppSettings() (map[string]content.JSON, error) {
	return cached(a, "appsettings", func(s *archivesession.Session) map[string]content.JSON {
		out := make(map[string]content.JSON)
		for _, f := range filesMatching(s, appsettingsPattern) {
			m := appsettingsPattern.FindStringSubmatch(f.Path)
			if m == nil {
				continue
			}
			env := m[2]
			if env == "" {
				env = defaultAppSettingsEnv
			}
			out[env] = content.ParseJSON(f.Bytes)
		}
		return out
	})
}

// AppSettingsFor returns the document for env, or content.EmptyJSON if
// absent.
func (a *App) AppSettingsFor(env string) (content.JSON, error) {
	all, err := a.AppSettings()
	if err != nil {
		return content.EmptyJSON, err
	}
	if doc, ok := all[env]; ok {
		return doc, nil
	}
	return content.EmptyJSON, nil
}
