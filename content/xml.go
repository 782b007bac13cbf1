package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"

	"altinnaudit.dev/iter"
)

// xmlNamespaces maps the prefixes used by Altinn's BPMN process
// definitions and XACML policy documents to their namespace URIs. None
// of the example pack's XML tooling ships a namespace-aware XPath
// evaluator, so queries against these documents are rewritten from
// "prefix:local" into a local-name() predicate before being handed to
// xmlquery/xpath (see DESIGN.md).
var xmlNamespaces = map[string]string{
	"bpmn":     "http://www.omg.org/spec/BPMN/20100524/MODEL",
	"bpmndi":   "http://www.omg.org/spec/BPMN/20100524/DI",
	"altinn":   "http://altinn.no/process",
	"xacml":    "urn:oasis:names:tc:xacml:3.0:core:schema:wd-17",
	"xacml3":   "urn:oasis:names:tc:xacml:3.0:core:schema:wd-17",
	"dsig":     "http://www.w3.org/2000/09/xmldsig#",
}

var qnameComponent = regexp.MustCompile(`(^|/|::)([A-Za-z_][\w.-]*):([A-Za-z_][\w.-]*)`)

// rewriteNamespacedPath turns "bpmn:process/bpmn:task" into the
// namespace-agnostic "*[local-name()='process']/*[local-name()='task']"
// form xmlquery's XPath engine actually supports, for every prefix in
// known (the fixed xmlNamespaces map merged with the document's own
// xmlns declarations). Unknown prefixes are left untouched.
func rewriteNamespacedPath(path string, known map[string]string) string {
	return qnameComponent.ReplaceAllStringFunc(path, func(m string) string {
		sub := qnameComponent.FindStringSubmatch(m)
		prefix, local := sub[2], sub[3]
		if _, ok := known[prefix]; !ok {
			return m
		}
		return sub[1] + fmt.Sprintf("*[local-name()='%s']", local)
	})
}

// documentNamespaces returns the xmlns:prefix declarations found on
// root's document element, so a document binding its own prefixes (a
// BPMN extension namespace, a document-specific XACML profile) resolves
// the same way the fixed xmlNamespaces prefixes do (spec.md §4.7: "a
// fixed default map... merged with the document's own namespaces").
func documentNamespaces(root *xmlquery.Node) map[string]string {
	ns := map[string]string{}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		for _, a := range c.Attr {
			if a.Name.Space == "xmlns" {
				ns[a.Name.Local] = a.Value
			}
		}
		break
	}
	return ns
}

// XML is a parsed XML document queried by XPath (spec.md §4.7). As with
// JSON, a document that fails to parse is "empty" rather than an error.
type XML struct {
	root       *xmlquery.Node
	parsed     bool
	namespaces map[string]string
}

// ParseXML parses data. A hard parse failure yields an empty adapter.
func ParseXML(data []byte) XML {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return XML{}
	}
	return XML{root: root, parsed: true, namespaces: documentNamespaces(root)}
}

// EmptyXML is the canonical absent-document value.
var EmptyXML = XML{}

// Exists reports whether this adapter holds a parsed document.
func (x XML) Exists() bool { return x.parsed }

// String renders the document back to XML text.
func (x XML) String() string {
	if !x.parsed {
		return "<empty XML>"
	}
	return x.root.OutputXML(true)
}

// Equal passes comparison through to the rendered XML text, returning
// false when either side is missing.
func (x XML) Equal(other XML) bool {
	if !x.parsed || !other.parsed {
		return false
	}
	return x.String() == other.String()
}

// Query evaluates an XPath expression, with BPMN/XACML namespace
// prefixes resolved via xmlNamespaces, and returns a lazy sequence of
// matching nodes.
func (x XML) Query(path string) *iter.Seq[*xmlquery.Node] {
	return iter.FromFunc(func() []*xmlquery.Node {
		if !x.parsed {
			return nil
		}
		nodes, err := xmlquery.QueryAll(x.root, rewriteNamespacedPath(path, x.knownNamespaces()))
		if err != nil {
			return nil
		}
		return nodes
	})
}

// knownNamespaces merges the fixed BPMN/XACML prefixes with whatever
// xmlns declarations this document binds itself.
func (x XML) knownNamespaces() map[string]string {
	known := make(map[string]string, len(xmlNamespaces)+len(x.namespaces))
	for prefix, uri := range xmlNamespaces {
		known[prefix] = uri
	}
	for prefix, uri := range x.namespaces {
		known[prefix] = uri
	}
	return known
}

// At returns the first query match's inner text, or "" if none.
func (x XML) At(path string) string {
	nodes := x.Query(path).List()
	if len(nodes) == 0 {
		return ""
	}
	return strings.TrimSpace(nodes[0].InnerText())
}

// Attr returns a named attribute of the first query match.
func (x XML) Attr(path, name string) string {
	nodes := x.Query(path).List()
	if len(nodes) == 0 {
		return ""
	}
	return nodes[0].SelectAttr(name)
}

// Texts maps every query match to its trimmed inner text.
func (x XML) Texts(path string) []string {
	nodes := x.Query(path).List()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = strings.TrimSpace(n.InnerText())
	}
	return out
}
