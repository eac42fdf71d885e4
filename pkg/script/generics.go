package script

import (
	"strings"

	"github.com/walteh/sfc-typer/pkg/position"
)

// GenericParameter is one entry of a block's `generic="..."` attribute.
type GenericParameter struct {
	Name       string
	Constraint string
	Default    string
	Index      int
	Span       position.Span
}

// Declaration renders the parameter as it appears in a type parameter list.
func (g GenericParameter) Declaration() string {
	var sb strings.Builder
	sb.WriteString(g.Name)
	if g.Constraint != "" {
		sb.WriteString(" extends ")
		sb.WriteString(g.Constraint)
	}
	if g.Default != "" {
		sb.WriteString(" = ")
		sb.WriteString(g.Default)
	}
	return sb.String()
}

type GenericParameters []GenericParameter

// Declaration renders `<T extends X, U = Y>`, or "" for no parameters.
func (gs GenericParameters) Declaration() string {
	if len(gs) == 0 {
		return ""
	}
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = g.Declaration()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// Arguments renders `<T, U>`, or "" for no parameters.
func (gs GenericParameters) Arguments() string {
	if len(gs) == 0 {
		return ""
	}
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = g.Name
	}
	return "<" + strings.Join(names, ", ") + ">"
}

func (gs GenericParameters) Names() []string {
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = g.Name
	}
	return names
}

// ParseGenerics parses the type parameter list in src[span], the value of a
// `generic` attribute without surrounding angle brackets. Variance and const
// modifiers are dropped; entries without a name are skipped.
func ParseGenerics(src string, span position.Span) GenericParameters {
	var out GenericParameters
	for _, part := range Tokens(Tokenize(src, span)).Split(",", true) {
		for len(part) > 1 && part[1].Kind == Ident && (part[0].IsIdent("const") || part[0].IsIdent("in") || part[0].IsIdent("out")) {
			part = part[1:]
		}
		if len(part) == 0 || part[0].Kind != Ident {
			continue
		}
		g := GenericParameter{Name: part[0].Text, Index: len(out), Span: part.Span(0)}
		rest := part[1:]
		eq := rest.IndexTop(func(t Token) bool { return t.IsPunct("=") }, true)
		constraint := rest
		if eq >= 0 {
			constraint = rest[:eq]
			g.Default = rest[eq+1:].Text(src)
		}
		if len(constraint) > 1 && constraint[0].IsIdent("extends") {
			g.Constraint = constraint[1:].Text(src)
		}
		out = append(out, g)
	}
	return out
}
