package content

// RuleHandler wraps an App's RuleHandler.js as a JavaScript Code
// adapter and exposes its four conventional top-level bindings (spec.md
// §4.7): rules, ruleHelpers, conditionalRules, conditionalRuleHelpers.
// Each is found with a variable_declarator query run through
// Code.Matches, matching the teacher-idiom choice to express "find the object literal
// named X" as a tree-sitter query rather than a bespoke string scan.
type RuleHandler struct {
	code Code
}

// ParseRuleHandler parses a RuleHandler.js source file.
func ParseRuleHandler(source []byte) RuleHandler {
	return RuleHandler{code: ParseCode(source, LangJavaScript)}
}

// Exists reports whether the underlying source parsed.
func (r RuleHandler) Exists() bool { return r.code.Exists() }

// String renders the original source text.
func (r RuleHandler) String() string { return r.code.String() }

// Equal passes comparison through to the underlying source text.
func (r RuleHandler) Equal(other RuleHandler) bool { return r.code.Equal(other.code) }

// declarationNamed returns the `value` Capture (the object literal
// node) for the top-level binding named name, or ok=false if absent.
func (r RuleHandler) declarationNamed(name string) (Capture, bool) {
	for _, m := range r.code.Matches(`(variable_declarator name: (identifier) @name value: (object) @value)`) {
		if m["name"].Text == name {
			return m["value"], true
		}
	}
	return Capture{}, false
}

// HasRules reports whether a top-level `rules` object is declared.
func (r RuleHandler) HasRules() bool {
	_, ok := r.declarationNamed("rules")
	return ok
}

// HasRuleHelpers reports whether a top-level `ruleHelpers` object is
// declared.
func (r RuleHandler) HasRuleHelpers() bool {
	_, ok := r.declarationNamed("ruleHelpers")
	return ok
}

// HasConditionalRules reports whether a top-level `conditionalRules`
// object is declared.
func (r RuleHandler) HasConditionalRules() bool {
	_, ok := r.declarationNamed("conditionalRules")
	return ok
}

// HasConditionalRuleHelpers reports whether a top-level
// `conditionalRuleHelpers` object is declared.
func (r RuleHandler) HasConditionalRuleHelpers() bool {
	_, ok := r.declarationNamed("conditionalRuleHelpers")
	return ok
}

// FunctionNames returns the property names bound to arrow-function
// values anywhere within the named object literal's source range (e.g.
// every rule function name under `rules`). Pairs inside nested objects
// are included; properties holding `function` expressions or method
// shorthand are not returned.
func (r RuleHandler) FunctionNames(declaration string) []string {
	decl, ok := r.declarationNamed(declaration)
	if !ok {
		return nil
	}
	pairs := r.code.Query(`(pair key: (property_identifier) @key value: (arrow_function))`).List()
	var out []string
	for _, p := range pairs {
		if p.Name != "key" {
			continue
		}
		if nodeWithinRange(p.Node, decl.Node) {
			out = append(out, p.Text)
		}
	}
	return out
}
