package app

import (
	"regexp"
	"sort"

	"altinnaudit.dev/version"
)

var frontendToolkitPattern = regexp.MustCompile(
	`altinn-app-frontend/([0-9][\w.\-]*)/altinn-app-frontend\.js`,
)

// backendPackages is the set of NuGet package references whose Version
// attribute counts as a backend version (spec.md §8 scenario 3).
var backendPackages = map[string]bool{
	"Altinn.App.Core": true,
	"Altinn.App.Api":  true,
}

// FrontendVersion extracts the altinn-app-frontend toolkit version
// referenced by App/views/Home/Index.cshtml's script tag (spec.md §8
// scenario 2). Returns an invalid Version if the file or pattern is
// absent.
func (a *App) FrontendVersion() (version.Version, error) {
	idx, err := a.Index()
	if err != nil {
		return version.Version{}, err
	}
	if !idx.Exists() {
		return version.Version{}, nil
	}
	matches := frontendToolkitPattern.FindStringSubmatch(idx.String())
	if matches == nil {
		return version.Version{}, nil
	}
	return version.Parse(matches[1]), nil
}

// BackendVersions returns every Altinn.App.Core/Altinn.App.Api package
// version referenced by the app's .csproj files, descending and
// deduplicated by string value (spec.md §8 scenario 3).
func (a *App) BackendVersions() ([]version.Version, error) {
	csprojs, err := a.CsprojFiles()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []version.Version
	for _, doc := range csprojs.List() {
		if !doc.Exists() {
			continue
		}
		for _, node := range doc.Query("//PackageReference").List() {
			include := node.SelectAttr("Include")
			if !backendPackages[include] {
				continue
			}
			raw := node.SelectAttr("Version")
			if raw == "" || seen[raw] {
				continue
			}
			seen[raw] = true
			out = append(out, version.Parse(raw))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Greater(out[j]) })
	return out, nil
}

// BackendVersion is the highest of BackendVersions, or an invalid
// Version if none were found.
func (a *App) BackendVersion() (version.Version, error) {
	versions, err := a.BackendVersions()
	if err != nil || len(versions) == 0 {
		return version.Version{}, err
	}
	return versions[0], nil
}
