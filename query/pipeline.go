// Package query implements the fluent pipeline over the App corpus
// described in spec.md §4.8: where/select/order_by/group_by/map_reduce
// over a lazy sequence of Apps, each stage wrapping user callbacks in
// an open-session guard so a predicate or projection that touches
// archive content never leaks a file handle, and an App whose archive
// cannot be opened degrades to false/""/nil. A panic raised inside a
// callback is not recovered.
package query

import (
	"strings"

	"altinnaudit.dev/app"
	"altinnaudit.dev/iter"
)

// Pipeline wraps a lazy sequence of *app.App with the query stages.
type Pipeline struct {
	seq *iter.Seq[*app.App]
}

// New builds a Pipeline from a materialized slice of apps (the corpus
// loaded from the lock store at startup).
func New(apps []*app.App) *Pipeline {
	return &Pipeline{seq: iter.New(apps)}
}

// FromSeq wraps an already-lazy sequence of apps.
func FromSeq(seq *iter.Seq[*app.App]) *Pipeline {
	return &Pipeline{seq: seq}
}

// WithPool attaches a worker pool so where/select/order_by dispatch
// per-app work concurrently (spec.md §5: "Query uses a fixed-size
// worker pool").
func (p *Pipeline) WithPool(pool *iter.Pool) *Pipeline {
	return &Pipeline{seq: p.seq.WithPool(pool)}
}

// List materializes the pipeline.
func (p *Pipeline) List() []*app.App { return p.seq.List() }

// Length is a terminal operation.
func (p *Pipeline) Length() int { return p.seq.Length() }

// guardBool runs fn inside an open-session guard; any corpus usage or
// content error is treated as false (spec.md §7: "a failing predicate
// on one app is equivalent to false").
func guardBool(a *app.App, fn func(*app.App) bool) bool {
	v, err := app.With(a, func(a *app.App) (bool, error) { return fn(a), nil })
	if err != nil {
		return false
	}
	return v
}

// guardString runs fn inside an open-session guard; any error yields
// "", which sorts lowest.
func guardString(a *app.App, fn func(*app.App) string) string {
	v, err := app.With(a, func(a *app.App) (string, error) { return fn(a), nil })
	if err != nil {
		return ""
	}
	return v
}

// guardValue runs fn inside an open-session guard; any error yields
// nil.
func guardValue(a *app.App, fn func(*app.App) interface{}) interface{} {
	v, err := app.With(a, func(a *app.App) (interface{}, error) { return fn(a), nil })
	if err != nil {
		return nil
	}
	return v
}

// Where retains apps for which pred returns true, run inside an
// open-session guard.
func (p *Pipeline) Where(pred func(*app.App) bool) *Pipeline {
	return &Pipeline{seq: p.seq.Filter(func(a *app.App) bool { return guardBool(a, pred) })}
}

// Select attaches a data projection to a shallow copy of each App
// (spec.md §4.8: "attaches a data mapping to a shallow copy of each
// App. Copy while open is an error" — Select itself performs the copy
// only after closing the session, so that invariant never fires here).
func (p *Pipeline) Select(projections map[string]func(*app.App) interface{}) *Pipeline {
	mapped := iter.Map(p.seq, func(a *app.App) *app.App {
		values := make(map[string]interface{}, len(projections))
		for name, fn := range projections {
			values[name] = guardValue(a, fn)
		}
		clone, err := a.Clone()
		if err != nil {
			// Should not happen: guardValue above always closes the
			// session before we reach here. Fall back to the original
			// descriptor rather than losing the app from the corpus.
			clone = a
		}
		if clone.Data == nil {
			clone.Data = make(map[string]interface{}, len(values))
		}
		for k, v := range values {
			clone.Data[k] = v
		}
		return clone
	})
	return &Pipeline{seq: mapped}
}

// OrderBy stably sorts by key (evaluated inside an open-session guard),
// optionally reversed.
func (p *Pipeline) OrderBy(key func(*app.App) string, reverse bool) *Pipeline {
	sorted := p.seq.SortBy(func(a *app.App) string { return guardString(a, key) }, reverse)
	return &Pipeline{seq: sorted}
}

// MapReduce is terminal: per-app map (guarded) then a left reduce.
// Returns ok=false on an empty corpus.
func MapReduce(p *Pipeline, mapFn func(*app.App) interface{}, reduceFn func(acc, cur interface{}) interface{}) (interface{}, bool) {
	mapped := iter.Map(p.seq, func(a *app.App) interface{} { return guardValue(a, mapFn) })
	return mapped.Reduce(reduceFn)
}

// envPreference ranks Environment for UniqueRepos' deterministic
// tie-break: prod outranks tt02.
func envPreference(env string) int {
	if env == "prod" {
		return 0
	}
	return 1
}

// UniqueRepos returns apps distinct by (org, app), preferring the prod
// entry when both env variants exist (spec.md §4.8).
func (p *Pipeline) UniqueRepos() *Pipeline {
	ranked := p.seq.SortBy(func(a *app.App) string {
		return fmtKey(a.Org, a.AppName) + "\x00" + itoa(envPreference(a.Env))
	}, false)
	unique := ranked.Unique(func(a *app.App) string { return fmtKey(a.Org, a.AppName) })
	return &Pipeline{seq: unique}
}

func fmtKey(parts ...string) string { return strings.Join(parts, "/") }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	return "1"
}
