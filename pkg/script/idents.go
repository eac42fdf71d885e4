package script

import (
	"github.com/walteh/sfc-typer/pkg/position"
)

// Reference is an identifier in an expression that resolves outside of it.
type Reference struct {
	Name string
	Span position.Span
	// Shorthand marks `{ name }` object properties, which need the key kept
	// when the reference is rewritten.
	Shorthand bool
}

var keywords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true, "continue": true,
	"debugger": true, "default": true, "delete": true, "do": true, "else": true, "export": true,
	"extends": true, "finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "return": true, "super": true, "switch": true,
	"this": true, "throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true, "await": true,
	"async": true, "of": true, "as": true, "satisfies": true, "null": true, "true": true,
	"false": true, "undefined": true, "NaN": true, "Infinity": true, "arguments": true,
}

var globals = map[string]bool{
	"Math": true, "Date": true, "JSON": true, "console": true, "Number": true, "String": true,
	"Array": true, "Object": true, "Boolean": true, "Symbol": true, "BigInt": true, "Map": true,
	"Set": true, "WeakMap": true, "WeakSet": true, "Promise": true, "RegExp": true, "Error": true,
	"Intl": true, "parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,
	"encodeURI": true, "encodeURIComponent": true, "decodeURI": true, "decodeURIComponent": true,
	"window": true, "document": true, "globalThis": true, "$event": true,
}

func IsKeyword(name string) bool { return keywords[name] }

// IsGlobal reports names that are always resolved globally in template
// expressions.
func IsGlobal(name string) bool { return globals[name] }

// References lists the identifiers of the expression in src[span] that are
// neither property names, object keys, keywords nor parameters of an arrow
// function inside the expression.
func References(src string, span position.Span) []Reference {
	return references(Tokens(Tokenize(src, span)))
}

type arrowScope struct {
	params     [2]int
	body       [2]int
	names      map[string]bool
	blockBrace int
}

func references(ts Tokens) []Reference {
	scopes := arrowScopes(ts)

	var out []Reference
	type frame struct {
		open  Token
		block bool
	}
	var stack []frame
	for i, t := range ts {
		switch {
		case t.opens():
			block := false
			for _, s := range scopes {
				if s.blockBrace == i {
					block = true
				}
			}
			stack = append(stack, frame{open: t, block: block})
			continue
		case t.closes():
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		case t.Kind != Ident || keywords[t.Text]:
			continue
		}

		if inParams(scopes, i) || isLocal(scopes, i, t.Text) {
			continue
		}
		var prev, next Token
		if i > 0 {
			prev = ts[i-1]
		}
		if i+1 < len(ts) {
			next = ts[i+1]
		}
		if prev.IsPunct(".") || prev.IsPunct("?.") || prev.IsIdent("as") {
			continue
		}
		inObject := len(stack) > 0 && stack[len(stack)-1].open.IsPunct("{") && !stack[len(stack)-1].block
		atKey := inObject && (prev.IsPunct("{") || prev.IsPunct(","))
		if atKey && (next.IsPunct(":") || next.IsPunct("(")) {
			continue
		}
		out = append(out, Reference{
			Name:      t.Text,
			Span:      t.Span,
			Shorthand: atKey && (next.IsPunct(",") || next.IsPunct("}")),
		})
	}
	return out
}

// arrowScopes finds every arrow function and the token ranges of its
// parameters and body.
func arrowScopes(ts Tokens) []arrowScope {
	var out []arrowScope
	for k, t := range ts {
		if !t.IsPunct("=>") || k == 0 {
			continue
		}
		s := arrowScope{names: map[string]bool{}, blockBrace: -1}
		if ts[k-1].Kind == Ident {
			s.params = [2]int{k - 1, k}
			s.names[ts[k-1].Text] = true
		} else if ts[k-1].IsPunct(")") {
			open := matchBack(ts, k-1)
			if open < 0 {
				continue
			}
			s.params = [2]int{open, k}
			for _, p := range ts[open+1 : k-1].Split(",", false) {
				for _, b := range PatternBindings(p) {
					s.names[b.Name] = true
				}
			}
		} else {
			continue
		}
		end := len(ts)
		depth := 0
	scan:
		for j := k + 1; j < len(ts); j++ {
			switch {
			case ts[j].opens():
				depth++
			case ts[j].closes():
				depth--
				if depth < 0 {
					end = j
					break scan
				}
			case depth == 0 && (ts[j].IsPunct(",") || ts[j].IsPunct(";")):
				end = j
				break scan
			}
		}
		s.body = [2]int{k + 1, end}
		if k+1 < len(ts) && ts[k+1].IsPunct("{") {
			s.blockBrace = k + 1
		}
		out = append(out, s)
	}
	return out
}

func matchBack(ts Tokens, close int) int {
	depth := 0
	for j := close; j >= 0; j-- {
		switch {
		case ts[j].closes():
			depth++
		case ts[j].opens():
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func inParams(scopes []arrowScope, i int) bool {
	for _, s := range scopes {
		if i >= s.params[0] && i < s.params[1] {
			return true
		}
	}
	return false
}

func isLocal(scopes []arrowScope, i int, name string) bool {
	for _, s := range scopes {
		if i >= s.body[0] && i < s.body[1] && s.names[name] {
			return true
		}
	}
	return false
}
