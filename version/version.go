// Package version implements the nullable, partially-ordered semantic
// version used to pin lock entries and to compare frontend/backend
// package versions discovered inside application archives.
//
// Ordering is deliberately not pure semver: a missing component outranks
// any present one, because a missing minor/patch/preview represents a
// floating, unconstrained lock while a present one is a fixed pin.
package version

import (
	"regexp"
	"strconv"
)

var pattern = regexp.MustCompile(`^(\d+)(\.(\d+))?(\.(\d+))?(-(.+))?$`)

// Version is a nullable {major, minor, patch, preview} tuple parsed from
// a version string. A Version that failed to parse retains the raw
// string and compares equal only to itself.
type Version struct {
	raw     string
	ok      bool
	major   int
	minor   *int
	patch   *int
	preview *string
}

// Parse parses s according to ^(\d+)(\.(\d+))?(\.(\d+))?(-(.+))?$.
// Components absent from the string are left null. A string that does
// not match the pattern yields a Version that fails all comparisons
// except equality with an identical raw string.
func Parse(s string) Version {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Version{raw: s, ok: false}
	}
	v := Version{raw: s, ok: true}
	v.major, _ = strconv.Atoi(m[1])
	if m[3] != "" {
		n, _ := strconv.Atoi(m[3])
		v.minor = &n
	}
	if m[5] != "" {
		n, _ := strconv.Atoi(m[5])
		v.patch = &n
	}
	if m[7] != "" {
		p := m[7]
		v.preview = &p
	}
	return v
}

// String returns the original string the Version was parsed from.
func (v Version) String() string { return v.raw }

// Valid reports whether v parsed successfully.
func (v Version) Valid() bool { return v.ok }

// Major returns the parsed major component, or 0 if v failed to parse.
func (v Version) Major() int { return v.major }

// MajorString returns the major component rendered as a string, used
// as a group_by key when bucketing apps by frontend major version.
func (v Version) MajorString() string { return strconv.Itoa(v.major) }

// Equal reports string-identity equality: two Versions are equal only
// when their raw strings match exactly, even if their parsed tuples are
// numerically identical (so "4.0" != "4.0.0"). This pins an ambiguity
// left open in the original design; see DESIGN.md.
func (v Version) Equal(other Version) bool {
	return v.raw == other.raw
}

// EqualString coerces s through Parse and compares by Equal.
func (v Version) EqualString(s string) bool {
	return v.Equal(Parse(s))
}

// Compare returns -1, 0, or 1 for v <, ==, > other under the ordering
// defined in the package doc: missing minor/patch/preview sort greater
// than any present value. Compare is only meaningful when both values
// parsed; prefer Less/Greater outside this package since they fail soft.
func (v Version) Compare(other Version) int {
	if c := compareInt(v.major, other.major); c != 0 {
		return c
	}
	if c := compareOptionalInt(v.minor, other.minor); c != 0 {
		return c
	}
	if c := compareOptionalInt(v.patch, other.patch); c != 0 {
		return c
	}
	return compareOptionalPreview(v.preview, other.preview)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareOptionalInt treats a missing pointer as greater than any present
// value (a floating lock outranks a fixed one).
func compareOptionalInt(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return compareInt(*a, *b)
	}
}

func compareOptionalPreview(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts strictly before other. Fails soft to
// false when either Version failed to parse.
func (v Version) Less(other Version) bool {
	if !v.ok || !other.ok {
		return false
	}
	return v.Compare(other) < 0
}

// Greater reports whether v sorts strictly after other. Fails soft to
// false when either Version failed to parse.
func (v Version) Greater(other Version) bool {
	if !v.ok || !other.ok {
		return false
	}
	return v.Compare(other) > 0
}

// LessString coerces s through Parse and compares by Less.
func (v Version) LessString(s string) bool { return v.Less(Parse(s)) }

// GreaterString coerces s through Parse and compares by Greater.
func (v Version) GreaterString(s string) bool { return v.Greater(Parse(s)) }
