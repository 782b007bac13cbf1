package app

import (
	"fmt"
	"regexp"

	"altinnaudit.dev/archivesession"
	"altinnaudit.dev/content"
)

const defaultLayoutSetID = "default"

var (
	layoutSetsPattern = regexp.MustCompile(`ui/layout-sets\.json$`)
	singleFormLayout  = regexp.MustCompile(`ui/FormLayout\.json$`)
	globalLayouts     = regexp.MustCompile(`ui/layouts/[^/]+\.json$`)
)

func setLayoutsPattern(setID string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`ui/%s/layouts/[^/]+\.json$`, regexp.QuoteMeta(setID)))
}
func setSettingsPattern(setID string) *regexp.Regexp {
	if setID == defaultLayoutSetID {
		return regexp.MustCompile(`ui/Settings\.json$`)
	}
	return regexp.MustCompile(fmt.Sprintf(`ui/%s/Settings\.json$`, regexp.QuoteMeta(setID)))
}
func setRuleConfigPattern(setID string) *regexp.Regexp {
	if setID == defaultLayoutSetID {
		return regexp.MustCompile(`ui/RuleConfiguration\.json$`)
	}
	return regexp.MustCompile(fmt.Sprintf(`ui/%s/RuleConfiguration\.json$`, regexp.QuoteMeta(setID)))
}
func setRuleHandlerPattern(setID string) *regexp.Regexp {
	if setID == defaultLayoutSetID {
		return regexp.MustCompile(`ui/RuleHandler\.js$`)
	}
	return regexp.MustCompile(fmt.Sprintf(`ui/%s/RuleHandler\.js$`, regexp.QuoteMeta(setID)))
}

// Component is a form-building-block JSON object within a Layout,
// identified by its `id` and `type` keys.
type Component struct {
	ID   string
	Type string
}

// LayoutSet is the logical grouping described in spec.md §3: one or
// more Layouts, at most one LayoutSettings, at most one
// RuleConfiguration, at most one RuleHandler. It owns no session state
// directly — every field is materialized from the owning App's session
// at construction time, honoring the "children hold an index/key into
// the parent, not vice versa" design note in spec.md §9.
type LayoutSet struct {
	ID                string
	Layouts           []content.JSON
	Settings          content.JSON
	RuleConfiguration content.JSON
	RuleHandler       content.RuleHandler
}

// Components flattens every layout's component array into
// (id, type) pairs (spec.md §3: "Component: a JSON object within a
// Layout with keys id and type").
func (ls LayoutSet) Components() []Component {
	var out []Component
	for _, layout := range ls.Layouts {
		for _, raw := range layout.Query("$.data.layout[*]").List() {
			obj, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			id, _ := obj["id"].(string)
			typ, _ := obj["type"].(string)
			out = append(out, Component{ID: id, Type: typ})
		}
	}
	return out
}

// LayoutSets returns every LayoutSet declared by the app, or a single
// synthesized default set read from the legacy fixed paths
// (ui/FormLayout.json or ui/layouts/*.json) when layout-sets.json is
// absent (spec.md §3 and §6 archive-internal conventions).
func (a *App) LayoutSets() ([]LayoutSet, error) {
	return cached(a, "layoutSets", func(s *archivesession.Session) []LayoutSet {
		manifest, ok := firstMatching(s, layoutSetsPattern)
		if !ok {
			return []LayoutSet{buildLayoutSet(s, defaultLayoutSetID, true)}
		}
		doc := content.ParseJSON(manifest.Bytes)
		ids := doc.Query("$.sets[*].id").List()
		if len(ids) == 0 {
			return []LayoutSet{buildLayoutSet(s, defaultLayoutSetID, true)}
		}
		sets := make([]LayoutSet, 0, len(ids))
		for _, raw := range ids {
			id, _ := raw.(string)
			sets = append(sets, buildLayoutSet(s, id, false))
		}
		return sets
	})
}

func buildLayoutSet(s *archivesession.Session, setID string, legacyDefault bool) LayoutSet {
	var layoutPattern *regexp.Regexp
	if legacyDefault {
		layoutPattern = globalLayouts
	} else {
		layoutPattern = setLayoutsPattern(setID)
	}

	layoutFiles := ensureSeqConsumed(s.FilesMatching(layoutPattern))
	if legacyDefault && len(layoutFiles) == 0 {
		if f, ok := firstMatching(s, singleFormLayout); ok {
			layoutFiles = []archivesession.File{f}
		}
	}

	layouts := make([]content.JSON, 0, len(layoutFiles))
	for _, f := range layoutFiles {
		layouts = append(layouts, content.ParseJSON(f.Bytes))
	}

	settings := content.EmptyJSON
	if f, ok := firstMatching(s, setSettingsPattern(setID)); ok {
		settings = content.ParseJSON(f.Bytes)
	}
	ruleConfig := content.EmptyJSON
	if f, ok := firstMatching(s, setRuleConfigPattern(setID)); ok {
		ruleConfig = content.ParseJSON(f.Bytes)
	}
	ruleHandler := content.ParseRuleHandler(nil)
	if f, ok := firstMatching(s, setRuleHandlerPattern(setID)); ok {
		ruleHandler = content.ParseRuleHandler(f.Bytes)
	}

	return LayoutSet{
		ID: setID, Layouts: layouts, Settings: settings,
		RuleConfiguration: ruleConfig, RuleHandler: ruleHandler,
	}
}
