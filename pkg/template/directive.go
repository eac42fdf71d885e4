package template

import (
	"strings"

	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

// Attr is an attribute with its directive parts split out. Directive is
// empty for static attributes; shorthands are normalized, so `:x` is "bind",
// `@x` is "on" and `#x` is "slot".
type Attr struct {
	sfc.Attribute

	Directive  string
	Arg        string
	ArgSpan    position.Span
	DynamicArg bool
	Modifiers  []string
}

func (a *Attr) HasModifier(name string) bool {
	for _, m := range a.Modifiers {
		if m == name {
			return true
		}
	}
	return false
}

func parseAttr(raw sfc.Attribute) *Attr {
	a := &Attr{Attribute: raw}
	name := raw.Name
	base := raw.Span.Start

	var rest string
	at := 0
	switch {
	case strings.HasPrefix(name, "v-"):
		end := strings.IndexAny(name, ":.")
		if end < 0 {
			end = len(name)
		}
		a.Directive = name[2:end]
		rest, at = name[end:], end
		if strings.HasPrefix(rest, ":") {
			rest, at = rest[1:], at+1
		}
	case strings.HasPrefix(name, ":"):
		a.Directive, rest, at = "bind", name[1:], 1
	case strings.HasPrefix(name, "@"):
		a.Directive, rest, at = "on", name[1:], 1
	case strings.HasPrefix(name, "#"):
		a.Directive, rest, at = "slot", name[1:], 1
	case strings.HasPrefix(name, ".") && len(name) > 1:
		a.Directive, rest, at = "bind", name[1:], 1
		a.Modifiers = append(a.Modifiers, "prop")
	default:
		return a
	}
	if rest == "" || strings.HasPrefix(rest, ".") {
		a.Modifiers = append(a.Modifiers, modifiers(rest)...)
		return a
	}

	argEnd := strings.IndexByte(rest, '.')
	if strings.HasPrefix(rest, "[") {
		if close := strings.IndexByte(rest, ']'); close > 0 {
			a.DynamicArg = true
			a.Arg = rest[1:close]
			a.ArgSpan = position.NewSpan(base+at+1, base+at+close)
			a.Modifiers = append(a.Modifiers, modifiers(rest[close+1:])...)
			return a
		}
	}
	if argEnd < 0 {
		argEnd = len(rest)
	}
	a.Arg = rest[:argEnd]
	a.ArgSpan = position.NewSpan(base+at, base+at+argEnd)
	a.Modifiers = append(a.Modifiers, modifiers(rest[argEnd:])...)
	return a
}

func modifiers(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ".") {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
