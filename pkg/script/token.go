package script

import (
	"strconv"
	"strings"

	"github.com/walteh/sfc-typer/pkg/position"
)

type Kind int

const (
	Other Kind = iota
	Ident
	String
	Number
	Punct
	Regex
	TemplateOpen
	TemplateClose
	TemplateText
	TemplateExprOpen
	TemplateExprClose
)

func (k Kind) String() string {
	switch k {
	case Ident:
		return "ident"
	case String:
		return "string"
	case Number:
		return "number"
	case Punct:
		return "punct"
	case Regex:
		return "regex"
	case TemplateOpen:
		return "template-open"
	case TemplateClose:
		return "template-close"
	case TemplateText:
		return "template-text"
	case TemplateExprOpen:
		return "template-expr-open"
	case TemplateExprClose:
		return "template-expr-close"
	default:
		return "other"
	}
}

type Token struct {
	Kind          Kind
	Text          string
	Span          position.Span
	NewlineBefore bool
}

func (t Token) IsPunct(text string) bool {
	return t.Kind == Punct && t.Text == text
}

func (t Token) IsIdent(text string) bool {
	return t.Kind == Ident && t.Text == text
}

// opens reports whether t increases bracket depth.
func (t Token) opens() bool {
	switch t.Kind {
	case Punct:
		return t.Text == "(" || t.Text == "[" || t.Text == "{"
	case TemplateOpen, TemplateExprOpen:
		return true
	}
	return false
}

func (t Token) closes() bool {
	switch t.Kind {
	case Punct:
		return t.Text == ")" || t.Text == "]" || t.Text == "}"
	case TemplateClose, TemplateExprClose:
		return true
	}
	return false
}

// StringValue unquotes a string literal token, returning the raw text without
// quotes when the literal uses escapes strconv does not understand.
func (t Token) StringValue() string {
	if t.Kind != String || len(t.Text) < 2 {
		return t.Text
	}
	body := t.Text[1 : len(t.Text)-1]
	if t.Text[0] == '"' {
		if v, err := strconv.Unquote(t.Text); err == nil {
			return v
		}
		return body
	}
	if !strings.Contains(body, `\`) {
		return body
	}
	if v, err := strconv.Unquote(`"` + strings.ReplaceAll(strings.ReplaceAll(body, `\'`, `'`), `"`, `\"`) + `"`); err == nil {
		return v
	}
	return body
}

// Tokens is a slice of significant tokens with bracket-aware helpers.
type Tokens []Token

// Span covers the first through the last token. Empty slices return an empty
// span at fallback.
func (ts Tokens) Span(fallback int) position.Span {
	if len(ts) == 0 {
		return position.NewSpan(fallback, fallback)
	}
	return position.NewSpan(ts[0].Span.Start, ts[len(ts)-1].Span.End)
}

// Text slices the source text covered by the tokens.
func (ts Tokens) Text(src string) string {
	if len(ts) == 0 {
		return ""
	}
	return ts.Span(0).Text(src)
}

// Match returns the index of the token closing the bracket opened at i, or -1.
func (ts Tokens) Match(i int) int {
	depth := 0
	for j := i; j < len(ts); j++ {
		if ts[j].opens() {
			depth++
		} else if ts[j].closes() {
			depth--
			if depth == 0 {
				return j
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

// MatchAngle returns the index of the `>` closing the type argument list
// opened by the `<` at i, or -1. Brackets nested inside are skipped; a `;`
// or a closer that would unbalance the list ends the search.
func (ts Tokens) MatchAngle(i int) int {
	angle, depth := 0, 0
	for j := i; j < len(ts); j++ {
		t := ts[j]
		switch {
		case t.opens():
			depth++
		case t.closes():
			depth--
			if depth < 0 {
				return -1
			}
		case depth == 0 && t.IsPunct(";"):
			return -1
		case depth == 0 && t.IsPunct("<"):
			angle++
		case depth == 0 && (t.IsPunct(">") || t.IsPunct(">=")):
			angle--
			if angle == 0 {
				return j
			}
		}
	}
	return -1
}

// Split divides the tokens at top-level occurrences of the separator
// punctuation. When angles is set, `<` / `>` pairs also nest, which is only
// safe inside type positions.
func (ts Tokens) Split(sep string, angles bool) []Tokens {
	var out []Tokens
	depth, angle, start := 0, 0, 0
	for j, t := range ts {
		switch {
		case t.opens():
			depth++
		case t.closes():
			depth--
		case angles && depth == 0 && t.IsPunct("<"):
			angle++
		case angles && depth == 0 && t.IsPunct(">") && angle > 0:
			angle--
		case depth == 0 && angle == 0 && t.IsPunct(sep):
			out = append(out, ts[start:j])
			start = j + 1
		}
	}
	if start < len(ts) {
		out = append(out, ts[start:])
	}
	return out
}

// IndexTop returns the index of the first top-level token matching pred.
func (ts Tokens) IndexTop(pred func(Token) bool, angles bool) int {
	depth, angle := 0, 0
	for j, t := range ts {
		if depth == 0 && angle == 0 && pred(t) {
			return j
		}
		switch {
		case t.opens():
			depth++
		case t.closes():
			depth--
		case angles && depth == 0 && t.IsPunct("<"):
			angle++
		case angles && depth == 0 && t.IsPunct(">") && angle > 0:
			angle--
		}
	}
	return -1
}

// Balanced reports the first token that breaks bracket balance. ok is false
// when a closer has no opener, a bracket kind mismatches, or openers remain.
func (ts Tokens) Balanced() (bad int, ok bool) {
	var stack []int
	for j, t := range ts {
		if t.opens() {
			stack = append(stack, j)
			continue
		}
		if !t.closes() {
			continue
		}
		if len(stack) == 0 || !pairs(ts[stack[len(stack)-1]], t) {
			return j, false
		}
		stack = stack[:len(stack)-1]
	}
	if len(stack) > 0 {
		return stack[len(stack)-1], false
	}
	return -1, true
}

func pairs(open, close Token) bool {
	switch open.Kind {
	case TemplateOpen:
		return close.Kind == TemplateClose
	case TemplateExprOpen:
		return close.Kind == TemplateExprClose
	}
	switch open.Text {
	case "(":
		return close.IsPunct(")")
	case "[":
		return close.IsPunct("]")
	case "{":
		return close.IsPunct("}")
	}
	return false
}
