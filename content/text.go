package content

import "regexp"

// Text is a plain-text document queried by regular expression — the
// simplest of the content family, used for files that carry no
// structured grammar at all (README.md, raw policy notes, etc).
type Text struct {
	raw    string
	exists bool
}

// ParseText wraps data as a Text document. Unlike JSON/XML/Code, plain
// text has no failure mode: any bytes at all produce an existing
// document, and only a nil/empty input is "empty".
func ParseText(data []byte) Text {
	if len(data) == 0 {
		return Text{}
	}
	return Text{raw: string(data), exists: true}
}

// EmptyText is the canonical absent-document value.
var EmptyText = Text{}

// Exists reports whether this adapter holds any content.
func (t Text) Exists() bool { return t.exists }

// String renders the raw text.
func (t Text) String() string {
	if !t.exists {
		return "<empty Text>"
	}
	return t.raw
}

// Equal passes comparison through to the raw text, returning false
// when either side is missing.
func (t Text) Equal(other Text) bool {
	if !t.exists || !other.exists {
		return false
	}
	return t.raw == other.raw
}

// Matches returns every match of pattern against the text.
func (t Text) Matches(pattern *regexp.Regexp) []string {
	if !t.exists {
		return nil
	}
	return pattern.FindAllString(t.raw, -1)
}

// MatchesAny reports whether pattern matches anywhere in the text.
func (t Text) MatchesAny(pattern *regexp.Regexp) bool {
	return t.exists && pattern.MatchString(t.raw)
}
