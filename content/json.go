// Package content implements the capability-set content adapters from
// spec.md §4.7: JSON, XML, source-code AST, and plain-text regex, each
// sharing the family contract (a) an empty adapter compares unequal to
// every value, another empty one included, (b) Exists, (c) a
// human-readable render, (d) pass-through
// comparison that fails to false when either side is missing.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/gjson"

	"altinnaudit.dev/iter"
)

// JSON is a permissively-parsed JSON document. A JSON value for which
// parsing failed (or which was never given any bytes) is "empty": it
// Exists() == false and compares unequal to every JSON value, another
// empty one included.
type JSON struct {
	clean  []byte
	doc    interface{}
	parsed bool
}

var (
	jsonLineComment  = regexp.MustCompile(`//[^\n]*`)
	jsonBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	jsonTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripBOMAndComments tolerates a UTF-8 BOM, // and /* */ comments, and
// trailing commas before array/object closers — none of which
// encoding/json accepts, and none of which the pack's JSON libraries
// (PaesslerAG/jsonpath, gjson) tolerate either, so this pre-pass has to
// be hand-rolled (see DESIGN.md).
func stripBOMAndComments(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = jsonBlockComment.ReplaceAll(data, nil)
	data = jsonLineComment.ReplaceAll(data, nil)
	for {
		stripped := jsonTrailingComma.ReplaceAll(data, []byte("$1"))
		if bytes.Equal(stripped, data) {
			break
		}
		data = stripped
	}
	return data
}

// ParseJSON parses data permissively. A hard parse failure never
// surfaces as an error to the caller — it yields an empty adapter
// (Exists() == false), per spec.md §7.
func ParseJSON(data []byte) JSON {
	clean := stripBOMAndComments(data)
	var doc interface{}
	if err := json.Unmarshal(clean, &doc); err != nil {
		return JSON{}
	}
	return JSON{clean: clean, doc: doc, parsed: true}
}

// EmptyJSON is the canonical absent-document value.
var EmptyJSON = JSON{}

// Exists reports whether this adapter holds parsed content.
func (j JSON) Exists() bool { return j.parsed }

// String renders a human-readable form of the document.
func (j JSON) String() string {
	if !j.parsed {
		return "<empty JSON>"
	}
	b, err := json.MarshalIndent(j.doc, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", j.doc)
	}
	return string(b)
}

// Equal passes comparison through to the underlying decoded value,
// returning false when either side is missing (family contract (d)).
func (j JSON) Equal(other JSON) bool {
	if !j.parsed || !other.parsed {
		return false
	}
	return reflect.DeepEqual(j.doc, other.doc)
}

// Query evaluates a JSONPath expression (the path-query DSL named in
// spec.md §4.7) and returns a lazy sequence of matching nodes.
func (j JSON) Query(path string) *iter.Seq[interface{}] {
	return iter.FromFunc(func() []interface{} {
		if !j.parsed {
			return nil
		}
		result, err := jsonpath.Get(path, j.doc)
		if err != nil {
			return nil
		}
		if items, ok := result.([]interface{}); ok {
			return items
		}
		return []interface{}{result}
	})
}

// At returns the first query match, or nil (indexing sugar: a bare
// path string).
func (j JSON) At(path string) interface{} {
	if !j.parsed {
		return nil
	}
	// gjson works directly off the cleaned bytes and is considerably
	// cheaper than a full jsonpath evaluation for a single lookup.
	r := gjson.GetBytes(j.clean, path)
	if r.Exists() {
		return r.Value()
	}
	if v, ok := j.Query(path).First(); ok {
		return v
	}
	return nil
}

// AtIndex returns the n-th query match, or nil.
func (j JSON) AtIndex(path string, n int) interface{} {
	items := j.Query(path).List()
	if n < 0 || n >= len(items) {
		return nil
	}
	return items[n]
}

// AtSlice returns query matches [a:b), clamped to bounds.
func (j JSON) AtSlice(path string, a, b int) []interface{} {
	return j.Query(path).Slice(a, b).List()
}

// Raw returns the cleaned JSON bytes backing this document, or nil.
func (j JSON) Raw() []byte { return j.clean }
