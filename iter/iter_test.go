package iter

import (
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapFilter(t *testing.T) {
	s := New([]int{1, 2, 3, 4, 5})
	doubled := Map(s, func(i int) int { return i * 2 })
	evens := doubled.Filter(func(i int) bool { return i%4 == 0 })
	assert.Equal(t, []int{4, 8}, evens.List())
}

func TestFlatMapSkipsEmpty(t *testing.T) {
	s := New([]int{1, 2, 3})
	out := FlatMap(s, func(i int) []int {
		if i == 2 {
			return nil
		}
		return []int{i, i}
	})
	assert.Equal(t, []int{1, 1, 3, 3}, out.List())
}

func TestSortByStableAndReverse(t *testing.T) {
	type item struct {
		key string
		seq int
	}
	items := []item{{"b", 1}, {"a", 1}, {"a", 2}, {"c", 1}}
	s := New(items)
	sorted := s.SortBy(func(i item) string { return i.key }, false).List()
	assert.Equal(t, []item{{"a", 1}, {"a", 2}, {"b", 1}, {"c", 1}}, sorted)

	rev := s.SortBy(func(i item) string { return i.key }, true).List()
	assert.Equal(t, "c", rev[0].key)
}

func TestUniqueFirstSeenWins(t *testing.T) {
	s := New([]string{"a", "b", "a", "c", "b"})
	out := s.Unique(func(x string) string { return x }).List()
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

func TestGroupByAscendingKeyOrderAndIsomorphism(t *testing.T) {
	// V7: every app appears in exactly one group and counts sum to total.
	type app struct {
		env   string
		major int
	}
	apps := []app{{"prod", 4}, {"prod", 4}, {"prod", 3}}
	s := New(apps)

	type bucket struct {
		key   string
		count int
	}
	groups := GroupBy(s, func(a app) string { return fmt.Sprintf("%d", a.major) }, func(k string, items *Seq[app]) bucket {
		return bucket{key: k, count: items.Length()}
	}).List()

	sort.Slice(groups, func(i, j int) bool { return groups[i].key < groups[j].key })
	assert.Equal(t, []bucket{{"3", 1}, {"4", 2}}, groups)

	total := 0
	for _, g := range groups {
		total += g.count
	}
	assert.Equal(t, len(apps), total)

	// ascending key order as produced (before our test's own re-sort)
	raw := GroupBy(s, func(a app) string { return fmt.Sprintf("%d", a.major) }, func(k string, items *Seq[app]) bucket {
		return bucket{key: k, count: items.Length()}
	}).List()
	assert.True(t, sort.SliceIsSorted(raw, func(i, j int) bool { return raw[i].key < raw[j].key }))
}

func TestReduceEmptyReturnsFalse(t *testing.T) {
	s := New([]int{})
	_, ok := s.Reduce(func(a, b int) int { return a + b })
	assert.False(t, ok)
}

func TestReduceSum(t *testing.T) {
	s := New([]int{1, 2, 3, 4})
	sum, ok := s.Reduce(func(a, b int) int { return a + b })
	require.True(t, ok)
	assert.Equal(t, 10, sum)
}

func TestMapReduce(t *testing.T) {
	s := New([]int{1, 2, 3})
	sum, ok := MapReduce(s, func(i int) int { return i * i }, func(a, b int) int { return a + b })
	require.True(t, ok)
	assert.Equal(t, 14, sum)
}

func TestSomeEvery(t *testing.T) {
	s := New([]int{2, 4, 6})
	assert.True(t, s.Every(func(i int) bool { return i%2 == 0 }))
	assert.False(t, s.Some(func(i int) bool { return i > 10 }))
}

func TestSlice(t *testing.T) {
	s := New([]int{0, 1, 2, 3, 4})
	assert.Equal(t, []int{1, 2, 3}, s.Slice(1, 4).List())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.Slice(-1, 100).List())
}

func TestTeeReplaysWithoutRerunningProducer(t *testing.T) {
	var calls int32
	s := FromFunc(func() []int {
		atomic.AddInt32(&calls, 1)
		return []int{1, 2, 3}
	})
	_ = s.List()
	_ = s.Length()
	_, _ = s.First()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParallelMapPreservesOrder(t *testing.T) {
	s := New([]int{1, 2, 3, 4, 5, 6, 7, 8}).WithPool(NewPool(3))
	out := Map(s, func(i int) int { return i * 10 })
	assert.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80}, out.List())
}

func TestEmptyOrdering(t *testing.T) {
	s := New([]int{})
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Length())
	_, ok := s.First()
	assert.False(t, ok)
	assert.Equal(t, 42, s.FirstOrDefault(42))
}
