package query

import (
	"sort"
	"strings"

	"altinnaudit.dev/app"
	"altinnaudit.dev/iter"
)

const groupKeySep = "\x1f"

// AppGroup is the result of GroupBy: an Apps-typed container tagged
// with its grouping tuple, carrying the same stage set as Pipeline plus
// materializers (spec.md §4.8).
type AppGroup struct {
	Pipeline
	// Tuple is the grouping column values, e.g. {"env": "prod"}.
	Tuple map[string]string
	// Selected holds scalar values attached by SelectGroups, e.g. a
	// "Count" computed as this group's length.
	Selected map[string]interface{}
}

// Get resolves indexing by string: first against the grouping tuple,
// then against a selector output name (spec.md §4.8: "Indexing by
// string resolves first against groupings, then selector outputs"),
// matching the group["Count"] sugar.
func (g *AppGroup) Get(name string) interface{} {
	if v, ok := g.Tuple[name]; ok {
		return v
	}
	if v, ok := g.Selected[name]; ok {
		return v
	}
	return nil
}

// GroupBy partitions the pipeline by one or more named columns,
// emitting AppGroups in ascending composite-key order (spec.md §5:
// "group_by emits groups in ascending key order").
func (p *Pipeline) GroupBy(columns map[string]func(*app.App) string) *iter.Seq[*AppGroup] {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	keyFn := func(a *app.App) string {
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = guardString(a, columns[name])
		}
		return strings.Join(parts, groupKeySep)
	}

	build := func(k string, items *iter.Seq[*app.App]) *AppGroup {
		values := strings.Split(k, groupKeySep)
		tuple := make(map[string]string, len(names))
		for i, name := range names {
			if i < len(values) {
				tuple[name] = values[i]
			}
		}
		return &AppGroup{Pipeline: Pipeline{seq: items}, Tuple: tuple}
	}

	return iter.GroupBy(p.seq, keyFn, build)
}

// SelectGroups attaches scalar projections to a stream of AppGroups
// (spec.md §8 scenario 4: `.group_by(...).select({n: length})`), where
// each projection is a function of the group itself — e.g. `func(g
// *AppGroup) interface{} { return g.Length() }` for "length".
func SelectGroups(groups *iter.Seq[*AppGroup], projections map[string]func(*AppGroup) interface{}) *iter.Seq[*AppGroup] {
	return iter.Map(groups, func(g *AppGroup) *AppGroup {
		selected := make(map[string]interface{}, len(projections))
		for name, fn := range projections {
			selected[name] = fn(g)
		}
		return &AppGroup{Pipeline: g.Pipeline, Tuple: g.Tuple, Selected: selected}
	})
}

// OrderByGroups stably sorts a stream of AppGroups by a string key
// derived from each group (typically one of its Tuple values).
func OrderByGroups(groups *iter.Seq[*AppGroup], key func(*AppGroup) string, reverse bool) *iter.Seq[*AppGroup] {
	return groups.SortBy(key, reverse)
}

// Length is a convenience alias for group-level selector functions
// (`select({n: length})`), returning the number of apps in the group.
func Length(g *AppGroup) interface{} { return g.Pipeline.Length() }
