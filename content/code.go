package content

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/javascript"

	"altinnaudit.dev/iter"
)

// Lang identifies which grammar a Code adapter was parsed with.
type Lang int

const (
	// LangCSharp parses App/logic/*.cs (Program.cs, process task handlers).
	LangCSharp Lang = iota
	// LangJavaScript parses rule handler scripts (RuleHandler.js).
	LangJavaScript
)

func (l Lang) grammar() *sitter.Language {
	if l == LangJavaScript {
		return javascript.GetLanguage()
	}
	return csharp.GetLanguage()
}

// Capture is one named node matched by a Query.
type Capture struct {
	Name string
	Text string
	Node *sitter.Node
}

// Code is a source file parsed into a tree-sitter AST, queried with
// tree-sitter's s-expression query language (spec.md §4.7). Compiled
// queries are cached per (lang, query string) pair since construction
// is the expensive half of every query call.
type Code struct {
	lang   Lang
	source []byte
	tree   *sitter.Tree
	parsed bool
}

var queryCache sync.Map // map[queryCacheKey]*sitter.Query

type queryCacheKey struct {
	lang Lang
	expr string
}

// ParseCode parses source as lang. A hard parse failure (tree-sitter
// essentially never fails outright — it produces ERROR nodes instead —
// so this only triggers on an empty/nil source) yields an empty
// adapter.
func ParseCode(source []byte, lang Lang) Code {
	if len(source) == 0 {
		return Code{}
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang.grammar())
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return Code{}
	}
	return Code{lang: lang, source: source, tree: tree, parsed: true}
}

// EmptyCode is the canonical absent-document value.
var EmptyCode = Code{}

// Exists reports whether this adapter holds a parsed document.
func (c Code) Exists() bool { return c.parsed }

// String renders the original source text.
func (c Code) String() string {
	if !c.parsed {
		return "<empty Code>"
	}
	return string(c.source)
}

// Equal passes comparison through to the source text, returning false
// when either side is missing.
func (c Code) Equal(other Code) bool {
	if !c.parsed || !other.parsed {
		return false
	}
	return string(c.source) == string(other.source)
}

func compiledQuery(lang Lang, expr string) (*sitter.Query, error) {
	key := queryCacheKey{lang: lang, expr: expr}
	if v, ok := queryCache.Load(key); ok {
		return v.(*sitter.Query), nil
	}
	q, err := sitter.NewQuery([]byte(expr), lang.grammar())
	if err != nil {
		return nil, err
	}
	queryCache.Store(key, q)
	return q, nil
}

// Query runs a tree-sitter s-expression query and returns a lazy
// sequence of every named capture across every match.
func (c Code) Query(expr string) *iter.Seq[Capture] {
	return iter.FromFunc(func() []Capture {
		if !c.parsed {
			return nil
		}
		q, err := compiledQuery(c.lang, expr)
		if err != nil {
			return nil
		}
		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, c.tree.RootNode())

		var out []Capture
		for {
			m, ok := cursor.NextMatch()
			if !ok {
				break
			}
			m = cursor.FilterPredicates(m, c.source)
			for _, cap := range m.Captures {
				out = append(out, Capture{
					Name: q.CaptureNameForId(cap.Index),
					Text: cap.Node.Content(c.source),
					Node: cap.Node,
				})
			}
		}
		return out
	})
}

// Match is one query match, keyed by capture name.
type Match map[string]Capture

// Matches runs a tree-sitter query and returns each match's captures
// grouped together, for queries whose captures need to be correlated
// (e.g. a declaration's name alongside its value's node range).
func (c Code) Matches(expr string) []Match {
	if !c.parsed {
		return nil
	}
	q, err := compiledQuery(c.lang, expr)
	if err != nil {
		return nil
	}
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, c.tree.RootNode())

	var out []Match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, c.source)
		if len(m.Captures) == 0 {
			continue
		}
		match := make(Match, len(m.Captures))
		for _, cap := range m.Captures {
			name := q.CaptureNameForId(cap.Index)
			match[name] = Capture{Name: name, Text: cap.Node.Content(c.source), Node: cap.Node}
		}
		out = append(out, match)
	}
	return out
}

// named filters a capture sequence down to captures bound to a single
// name, since a query with several @bindings otherwise yields one
// Capture per binding per match.
func named(s *iter.Seq[Capture], name string) *iter.Seq[Capture] {
	return s.Filter(func(c Capture) bool { return c.Name == name })
}

// nodeWithinRange reports whether inner's byte range falls within
// outer's byte range (outer's declaration, e.g. the `rules` object
// literal, containing inner's pair key).
func nodeWithinRange(inner, outer *sitter.Node) bool {
	return inner.StartByte() >= outer.StartByte() && inner.EndByte() <= outer.EndByte()
}

// Classes returns every class_declaration (C#) as a Capture.
func (c Code) Classes() *iter.Seq[Capture] {
	return named(c.Query(`(class_declaration) @class`), "class")
}

// Methods returns every method_declaration (C#) as a Capture.
func (c Code) Methods() *iter.Seq[Capture] {
	return named(c.Query(`(method_declaration) @method`), "method")
}

// ObjectCreations returns every `new Type(...)` expression (C#), the
// captured text being the type name.
func (c Code) ObjectCreations() *iter.Seq[Capture] {
	return named(c.Query(`(object_creation_expression type: (_) @type)`), "type")
}

// ObjectDeclarations returns every object literal bound by a variable
// declarator, at any scope and whatever the declaration keyword
// (JavaScript rule handlers: rules, ruleHelpers, conditionalRules,
// conditionalRuleHelpers), captured as the bound name.
func (c Code) ObjectDeclarations() *iter.Seq[Capture] {
	return named(c.Query(`(variable_declarator name: (identifier) @name value: (object))`), "name")
}
