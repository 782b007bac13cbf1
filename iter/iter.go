// Package iter implements the lazy, tee-able, worker-pool-backed
// sequence described in spec.md §4.5. It is the engine underneath the
// query frontend: map/filter/sort/group/unique/reduce compose lazily,
// and re-materializing a sequence replays cached results instead of
// re-running upstream stages.
//
// The bounded parallel dispatch here descends from the teacher's
// worker/pool.go job-queue idiom, generalized from named queues of jobs
// into an anonymous, ordered element pipeline: a Pool caps how many
// goroutines an errgroup runs at once, and results are written back by
// input index instead of being queue-order-arbitrary.
package iter

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the concurrency available to Seq's parallel stages
// (map/filter/sort-key evaluation). A nil Pool makes every stage run on
// the consumer goroutine, matching "stages without a pool degrade to
// sequential" in spec.md §9.
type Pool struct {
	limit int
}

// NewPool returns a Pool capping concurrent element work at limit.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = 1
	}
	return &Pool{limit: limit}
}

// dispatch runs fn(i) for i in [0, n) with at most p.limit concurrent
// invocations (or sequentially if p is nil), returning results
// ordered by input index.
func dispatch[T any](p *Pool, n int, fn func(i int) T) []T {
	out := make([]T, n)
	if p == nil || n <= 1 {
		for i := 0; i < n; i++ {
			out[i] = fn(i)
		}
		return out
	}

	g := new(errgroup.Group)
	g.SetLimit(p.limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			out[i] = fn(i)
			return nil
		})
	}
	_ = g.Wait() // fn never returns an error; element-level errors are T-typed
	return out
}

// Seq is a lazy, re-iterable sequence of T. Every operation that
// consumes a Seq first "tees" it — forcing materialization once and
// caching the result on this Seq — so a Seq can be iterated any number
// of times without re-running upstream work or double-consuming a
// one-shot source.
type Seq[T any] struct {
	pool     *Pool
	produce  func() []T
	once     sync.Once
	cached   []T
}

// New wraps a fully materialized slice as a Seq.
func New[T any](items []T) *Seq[T] {
	return &Seq[T]{produce: func() []T { return items }}
}

// FromFunc builds a Seq from a producer function, evaluated at most once
// across the Seq's lifetime (and all Seqs derived from it that share
// this producer), regardless of how many times List/First/etc are
// called.
func FromFunc[T any](produce func() []T) *Seq[T] {
	return &Seq[T]{produce: produce}
}

// WithPool attaches a worker pool used by Map/Filter/SortBy on this Seq.
func (s *Seq[T]) WithPool(p *Pool) *Seq[T] {
	s.pool = p
	return s
}

// List materializes and caches the sequence; subsequent calls (directly
// or through any other terminal/lazy op) reuse the cached slice, which
// is the "tee" contract spec.md §4.5/§9 requires.
func (s *Seq[T]) List() []T {
	s.once.Do(func() {
		s.cached = s.produce()
	})
	return s.cached
}

// Length is a terminal operation returning len(List()).
func (s *Seq[T]) Length() int { return len(s.List()) }

// IsEmpty is a terminal operation.
func (s *Seq[T]) IsEmpty() bool { return s.Length() == 0 }

// First returns the first element and true, or the zero value and false
// on an empty sequence.
func (s *Seq[T]) First() (T, bool) {
	items := s.List()
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[0], true
}

// FirstOrDefault returns the first element, or def on an empty sequence.
func (s *Seq[T]) FirstOrDefault(def T) T {
	if v, ok := s.First(); ok {
		return v
	}
	return def
}

// Slice returns a new, lazy Seq over List()[a:b]. Out-of-range bounds
// are clamped rather than panicking.
func (s *Seq[T]) Slice(a, b int) *Seq[T] {
	return FromFunc(func() []T {
		items := s.List()
		if a < 0 {
			a = 0
		}
		if b > len(items) {
			b = len(items)
		}
		if b < 0 {
			b = 0
		}
		if a > b {
			a = b
		}
		return items[a:b]
	}).WithPool(s.pool)
}

// Map lazily transforms every element with f. When a Pool is attached,
// element evaluation is dispatched across it and reassembled in input
// order.
func Map[T, U any](s *Seq[T], f func(T) U) *Seq[U] {
	return FromFunc(func() []U {
		items := s.List()
		return dispatch(s.pool, len(items), func(i int) U { return f(items[i]) })
	}).WithPool(s.pool)
}

// Filter lazily retains elements for which f returns true.
func (s *Seq[T]) Filter(f func(T) bool) *Seq[T] {
	return FromFunc(func() []T {
		items := s.List()
		keep := dispatch(s.pool, len(items), func(i int) bool { return f(items[i]) })
		out := make([]T, 0, len(items))
		for i, k := range keep {
			if k {
				out = append(out, items[i])
			}
		}
		return out
	}).WithPool(s.pool)
}

// FlatMap lazily concatenates f's results; nil/empty results are
// skipped.
func FlatMap[T, U any](s *Seq[T], f func(T) []U) *Seq[U] {
	return FromFunc(func() []U {
		items := s.List()
		chunks := dispatch(s.pool, len(items), func(i int) []U { return f(items[i]) })
		var out []U
		for _, c := range chunks {
			out = append(out, c...)
		}
		return out
	}).WithPool(s.pool)
}

// SortBy performs a stable sort by key, optionally reversed. Key
// evaluation may be dispatched in parallel; the sort itself is eager on
// first materialization but still lazy in the sense that it does not run
// until the Seq is consumed.
func (s *Seq[T]) SortBy(key func(T) string, reverse bool) *Seq[T] {
	return FromFunc(func() []T {
		items := s.List()
		keys := dispatch(s.pool, len(items), func(i int) string { return key(items[i]) })

		idx := make([]int, len(items))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			if reverse {
				return keys[idx[i]] > keys[idx[j]]
			}
			return keys[idx[i]] < keys[idx[j]]
		})

		out := make([]T, len(items))
		for i, srcIdx := range idx {
			out[i] = items[srcIdx]
		}
		return out
	}).WithPool(s.pool)
}

// Unique retains the first-seen element for each key, preserving source
// order.
func (s *Seq[T]) Unique(key func(T) string) *Seq[T] {
	return FromFunc(func() []T {
		items := s.List()
		seen := make(map[string]struct{}, len(items))
		out := make([]T, 0, len(items))
		for _, item := range items {
			k := key(item)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, item)
		}
		return out
	}).WithPool(s.pool)
}

// Group is one adjacent-equal run produced by GroupBy.
type Group[T any] struct {
	Key   string
	Items *Seq[T]
}

// GroupBy eagerly sorts by key, then partitions into adjacent-equal
// runs, calling build with each key and its member sequence. Groups are
// emitted in ascending key order (spec.md §5: "group_by emits groups in
// ascending key order").
func GroupBy[T, G any](s *Seq[T], key func(T) string, build func(k string, items *Seq[T]) G) *Seq[G] {
	return FromFunc(func() []G {
		sorted := s.SortBy(key, false).List()
		var groups []G
		i := 0
		for i < len(sorted) {
			j := i + 1
			k := key(sorted[i])
			for j < len(sorted) && key(sorted[j]) == k {
				j++
			}
			groups = append(groups, build(k, New(sorted[i:j])))
			i = j
		}
		return groups
	})
}

// Reduce is eager; it returns the zero value and false on an empty Seq.
func (s *Seq[T]) Reduce(f func(acc, cur T) T) (T, bool) {
	items := s.List()
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	acc := items[0]
	for _, item := range items[1:] {
		acc = f(acc, item)
	}
	return acc, true
}

// MapReduce runs map over every element then left-reduces the mapped
// values. Returns the zero value and false on an empty Seq.
func MapReduce[T, U any](s *Seq[T], mapFn func(T) U, reduceFn func(acc, cur U) U) (U, bool) {
	mapped := Map(s, mapFn)
	return mapped.Reduce(reduceFn)
}

// Some short-circuits as soon as f returns true for any element.
func (s *Seq[T]) Some(f func(T) bool) bool {
	for _, item := range s.List() {
		if f(item) {
			return true
		}
	}
	return false
}

// Every short-circuits as soon as f returns false for any element.
func (s *Seq[T]) Every(f func(T) bool) bool {
	for _, item := range s.List() {
		if !f(item) {
			return false
		}
	}
	return true
}
