package script

import (
	"github.com/walteh/sfc-typer/pkg/position"
)

type StatementKind int

const (
	StatementOther StatementKind = iota
	StatementImport
	StatementExportDefault
	StatementExportNamed
	StatementVariable
	StatementFunction
	StatementClass
	StatementEnum
	StatementType
	StatementExpression
)

func (k StatementKind) String() string {
	switch k {
	case StatementImport:
		return "import"
	case StatementExportDefault:
		return "export-default"
	case StatementExportNamed:
		return "export-named"
	case StatementVariable:
		return "variable"
	case StatementFunction:
		return "function"
	case StatementClass:
		return "class"
	case StatementEnum:
		return "enum"
	case StatementType:
		return "type"
	case StatementExpression:
		return "expression"
	default:
		return "other"
	}
}

// Program is a shallow parse of one script region.
type Program struct {
	Source     string
	Span       position.Span
	Tokens     Tokens
	Statements []*Statement
}

// Statement is one top-level statement. Span includes the terminating
// semicolon when there is one; Tokens never do.
type Statement struct {
	Kind     StatementKind
	Span     position.Span
	Tokens   Tokens
	Exported bool
	Declare  bool
	Name     string
	NameSpan position.Span
	Import   *ImportDecl
	Variable *VariableDecl
	Expr     *Expr
}

// Binding is a name introduced into scope together with where it is declared.
type Binding struct {
	Name string
	Span position.Span
}

type ImportDecl struct {
	Source     string
	SourceSpan position.Span
	TypeOnly   bool
	SideEffect bool
	Specifiers []ImportSpecifier
}

// ImportSpecifier is one imported name. Imported is "default" for default
// imports and "*" for namespace imports.
type ImportSpecifier struct {
	Imported  string
	Local     string
	LocalSpan position.Span
	TypeOnly  bool
	Span      position.Span
}

type VariableDecl struct {
	Keyword     string
	Declarators []*Declarator
}

type Declarator struct {
	Span     position.Span
	Pattern  position.Span
	ID       string
	IDSpan   position.Span
	Bindings []Binding
	Type     position.Span
	HasType  bool
	Init     *Expr
}

// Parse tokenizes src[span] and splits it into top-level statements.
func Parse(src string, span position.Span) *Program {
	toks := Tokens(Tokenize(src, span))
	return &Program{
		Source:     src,
		Span:       span,
		Tokens:     toks,
		Statements: ParseStatements(src, toks),
	}
}

// ParseStatements splits an already tokenized statement list, such as the
// body of a function, into statements.
func ParseStatements(src string, toks Tokens) []*Statement {
	var out []*Statement
	for _, raw := range splitStatements(toks) {
		if st := parseStatement(src, raw.tokens, raw.semi); st != nil {
			out = append(out, st)
		}
	}
	return out
}

// ExportDefault returns the `export default` statement, if any.
func (p *Program) ExportDefault() *Statement {
	for _, st := range p.Statements {
		if st.Kind == StatementExportDefault {
			return st
		}
	}
	return nil
}

// SetupBody returns the body tokens of the setup function for
// `export default { setup() {} }` and `export default defineComponent({ setup() {} })`.
// Any other shape reports false.
func (p *Program) SetupBody() (Tokens, bool) {
	st := p.ExportDefault()
	if st == nil || st.Expr == nil {
		return nil, false
	}
	obj := st.Expr.Object
	if st.Expr.Kind == ExprCall && st.Expr.Call.Callee == "defineComponent" && len(st.Expr.Call.Args) > 0 {
		obj = st.Expr.Call.Args[0].Object
	}
	if obj == nil {
		return nil, false
	}
	prop := obj.Get("setup")
	switch {
	case prop == nil:
		return nil, false
	case prop.Method:
		return prop.Body, true
	case prop.Value != nil && prop.Value.Kind == ExprFunction && prop.Value.HasBody:
		return prop.Value.Body, true
	}
	return nil, false
}

// Bindings lists the value names a statement declares. Type-only imports and
// type declarations declare none.
func (s *Statement) Bindings() []Binding {
	switch s.Kind {
	case StatementVariable:
		var out []Binding
		for _, d := range s.Variable.Declarators {
			out = append(out, d.Bindings...)
		}
		return out
	case StatementFunction, StatementClass, StatementEnum:
		if s.Name != "" {
			return []Binding{{Name: s.Name, Span: s.NameSpan}}
		}
	case StatementImport:
		var out []Binding
		for _, spec := range s.Import.Specifiers {
			if !spec.TypeOnly {
				out = append(out, Binding{Name: spec.Local, Span: spec.LocalSpan})
			}
		}
		return out
	}
	return nil
}

type rawStatement struct {
	tokens Tokens
	semi   *Token
}

func splitStatements(toks Tokens) []rawStatement {
	var out []rawStatement
	start, depth := 0, 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if depth == 0 && i > start && t.NewlineBefore && !continues(toks, start, i) {
			out = append(out, rawStatement{tokens: toks[start:i]})
			start = i
		}
		switch {
		case t.opens():
			depth++
		case t.closes():
			if depth > 0 {
				depth--
			}
		case depth == 0 && t.IsPunct(";"):
			semi := t
			out = append(out, rawStatement{tokens: toks[start:i], semi: &semi})
			start = i + 1
		}
	}
	if start < len(toks) {
		out = append(out, rawStatement{tokens: toks[start:]})
	}
	return out
}

var continuationKeywords = map[string]bool{
	"new": true, "typeof": true, "instanceof": true, "in": true, "of": true, "extends": true,
	"implements": true, "keyof": true, "as": true, "satisfies": true, "import": true,
	"export": true, "const": true, "let": true, "var": true, "function": true, "class": true,
	"interface": true, "enum": true, "default": true, "else": true, "from": true,
}

var leadingKeywords = map[string]bool{
	"else": true, "catch": true, "finally": true, "as": true, "satisfies": true, "from": true,
	"extends": true, "implements": true, "instanceof": true, "in": true, "of": true,
}

var leadingOperators = map[string]bool{
	".": true, "?.": true, "?": true, ":": true, "&&": true, "||": true, "??": true, "=": true,
	"==": true, "===": true, "!=": true, "!==": true, "=>": true, "*": true, "/": true, "%": true,
	"**": true, "|": true, "&": true, "^": true, ",": true, "+": true, "-": true, "(": true,
	"[": true, "+=": true, "-=": true, "*=": true, "/=": true, "&&=": true, "||=": true, "??=": true,
}

// continues reports whether the line break before toks[i] does not end the
// statement that began at toks[start].
func continues(toks Tokens, start, i int) bool {
	prev, next := toks[i-1], toks[i]
	if prev.Kind == Punct {
		switch prev.Text {
		case ")", "]", "}", "++", "--", ">":
		default:
			return true
		}
	}
	if prev.Kind == Ident && continuationKeywords[prev.Text] {
		afterDot := i-2 >= start && (toks[i-2].IsPunct(".") || toks[i-2].IsPunct("?."))
		asConst := prev.Text == "const" && i-2 >= start && toks[i-2].IsIdent("as")
		if !afterDot && !asConst {
			return true
		}
	}
	if next.Kind == Punct && leadingOperators[next.Text] {
		return true
	}
	if next.Kind == Ident && leadingKeywords[next.Text] {
		return true
	}
	head := toks[start]
	if head.IsIdent("do") && next.IsIdent("while") {
		return true
	}
	if prev.IsPunct(")") && (head.IsIdent("if") || head.IsIdent("for") || head.IsIdent("while") || head.IsIdent("with")) {
		j := start + 1
		if j < i && toks[j].IsIdent("await") {
			j++
		}
		if j < i && toks[j].IsPunct("(") && toks[:i].Match(j) == i-1 {
			return true
		}
	}
	return false
}

var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "do": true, "switch": true, "try": true,
	"return": true, "throw": true, "break": true, "continue": true, "with": true, "debugger": true,
}

func parseStatement(src string, ts Tokens, semi *Token) *Statement {
	if len(ts) == 0 {
		return nil
	}
	st := &Statement{Kind: StatementOther, Tokens: ts, Span: ts.Span(0)}
	if semi != nil {
		st.Span = position.NewSpan(st.Span.Start, semi.Span.End)
	}

	body := ts
	if body[0].IsIdent("export") {
		st.Exported = true
		if len(body) > 1 && body[1].IsIdent("default") {
			st.Kind = StatementExportDefault
			value := body[2:]
			st.Expr = ParseExpr(src, value)
			if name, ok := declarationName(value); ok {
				st.Name, st.NameSpan = name.Text, name.Span
			}
			return st
		}
		body = body[1:]
		if len(body) == 0 || body[0].IsPunct("{") || body[0].IsPunct("*") ||
			(body[0].IsIdent("type") && len(body) > 1 && (body[1].IsPunct("{") || body[1].IsPunct("*"))) {
			st.Kind = StatementExportNamed
			return st
		}
	}
	if len(body) > 1 && body[0].IsIdent("declare") && body[1].Kind == Ident {
		st.Declare = true
		body = body[1:]
	}

	head := body[0]
	switch {
	case head.IsIdent("import") && (len(body) == 1 || (!body[1].IsPunct("(") && !body[1].IsPunct("."))):
		st.Kind = StatementImport
		st.Import = parseImport(body)
	case head.IsIdent("const") && len(body) > 1 && body[1].IsIdent("enum"):
		st.Kind = StatementEnum
		setName(st, body[2:])
	case head.IsIdent("enum"):
		st.Kind = StatementEnum
		setName(st, body[1:])
	case isVariableKeyword(body):
		st.Kind = StatementVariable
		st.Variable = parseVariable(src, body)
	case head.IsIdent("function") || (head.IsIdent("async") && len(body) > 1 && body[1].IsIdent("function")):
		st.Kind = StatementFunction
		if name, ok := declarationName(body); ok {
			st.Name, st.NameSpan = name.Text, name.Span
		}
	case head.IsIdent("class") || (head.IsIdent("abstract") && len(body) > 1 && body[1].IsIdent("class")):
		st.Kind = StatementClass
		if name, ok := declarationName(body); ok {
			st.Name, st.NameSpan = name.Text, name.Span
		}
	case head.IsIdent("interface") && len(body) > 1 && body[1].Kind == Ident:
		st.Kind = StatementType
		st.Name, st.NameSpan = body[1].Text, body[1].Span
	case head.IsIdent("type") && len(body) > 2 && body[1].Kind == Ident && (body[2].IsPunct("=") || body[2].IsPunct("<")):
		st.Kind = StatementType
		st.Name, st.NameSpan = body[1].Text, body[1].Span
	case (head.IsIdent("namespace") || head.IsIdent("module") || head.IsIdent("global")) && len(body) > 1 && !body[1].IsPunct("=") && !body[1].IsPunct("."):
		st.Kind = StatementType
	case head.Kind == Ident && controlKeywords[head.Text], head.IsPunct("{"):
		st.Kind = StatementOther
	case !st.Exported && !st.Declare:
		st.Kind = StatementExpression
		st.Expr = ParseExpr(src, body)
	}
	return st
}

func setName(st *Statement, rest Tokens) {
	if len(rest) > 0 && rest[0].Kind == Ident {
		st.Name, st.NameSpan = rest[0].Text, rest[0].Span
	}
}

func isVariableKeyword(ts Tokens) bool {
	if len(ts) < 2 {
		return false
	}
	switch {
	case ts[0].IsIdent("const"), ts[0].IsIdent("var"):
		return true
	case ts[0].IsIdent("let"):
		return ts[1].Kind == Ident || ts[1].IsPunct("{") || ts[1].IsPunct("[")
	}
	return false
}

// declarationName finds the name of a function or class declaration.
func declarationName(ts Tokens) (Token, bool) {
	for i := 0; i < len(ts); i++ {
		t := ts[i]
		switch {
		case t.IsIdent("async"), t.IsIdent("abstract"), t.IsPunct("*"):
			continue
		case t.IsIdent("function"), t.IsIdent("class"):
			if i+1 < len(ts) && ts[i+1].IsPunct("*") {
				i++
			}
			if i+1 < len(ts) && ts[i+1].Kind == Ident && !ts[i+1].IsIdent("extends") && !ts[i+1].IsIdent("implements") {
				return ts[i+1], true
			}
			return Token{}, false
		default:
			return Token{}, false
		}
	}
	return Token{}, false
}

func parseImport(ts Tokens) *ImportDecl {
	d := &ImportDecl{}
	rest := ts[1:]
	if len(rest) > 0 && rest[0].Kind == String {
		d.Source, d.SourceSpan, d.SideEffect = rest[0].StringValue(), rest[0].Span, true
		return d
	}
	if len(rest) > 1 && rest[0].IsIdent("type") && !rest[1].IsPunct(",") &&
		!(rest[1].IsIdent("from") && len(rest) > 2 && rest[2].Kind == String) {
		d.TypeOnly = true
		rest = rest[1:]
	}

	clause := rest
	if from := rest.IndexTop(func(t Token) bool { return t.IsIdent("from") }, false); from >= 0 {
		clause = rest[:from]
		if from+1 < len(rest) && rest[from+1].Kind == String {
			d.Source, d.SourceSpan = rest[from+1].StringValue(), rest[from+1].Span
		}
	}

	for _, part := range clause.Split(",", false) {
		switch {
		case len(part) == 0:
		case part[0].IsPunct("{"):
			end := part.Match(0)
			if end < 0 {
				end = len(part)
			}
			for _, spec := range part[1:end].Split(",", false) {
				if s, ok := parseImportSpecifier(spec); ok {
					s.TypeOnly = s.TypeOnly || d.TypeOnly
					d.Specifiers = append(d.Specifiers, s)
				}
			}
		case part[0].IsPunct("*"):
			if len(part) >= 3 && part[1].IsIdent("as") && part[2].Kind == Ident {
				d.Specifiers = append(d.Specifiers, ImportSpecifier{
					Imported: "*", Local: part[2].Text, LocalSpan: part[2].Span,
					TypeOnly: d.TypeOnly, Span: part.Span(0),
				})
			}
		case part[0].Kind == Ident:
			d.Specifiers = append(d.Specifiers, ImportSpecifier{
				Imported: "default", Local: part[0].Text, LocalSpan: part[0].Span,
				TypeOnly: d.TypeOnly, Span: part[0].Span,
			})
		}
	}
	return d
}

func parseImportSpecifier(spec Tokens) (ImportSpecifier, bool) {
	if len(spec) == 0 {
		return ImportSpecifier{}, false
	}
	s := ImportSpecifier{Span: spec.Span(0)}
	if len(spec) > 1 && spec[0].IsIdent("type") && (spec[1].Kind == Ident || spec[1].Kind == String) && !spec[1].IsIdent("as") {
		s.TypeOnly = true
		spec = spec[1:]
	}
	switch spec[0].Kind {
	case Ident:
		s.Imported = spec[0].Text
	case String:
		s.Imported = spec[0].StringValue()
	default:
		return ImportSpecifier{}, false
	}
	s.Local, s.LocalSpan = s.Imported, spec[0].Span
	if len(spec) >= 3 && spec[1].IsIdent("as") && spec[2].Kind == Ident {
		s.Local, s.LocalSpan = spec[2].Text, spec[2].Span
	}
	return s, true
}

func parseVariable(src string, ts Tokens) *VariableDecl {
	v := &VariableDecl{Keyword: ts[0].Text}
	for _, part := range splitDeclarators(ts[1:]) {
		if d := parseDeclarator(src, part); d != nil {
			v.Declarators = append(v.Declarators, d)
		}
	}
	return v
}

// splitDeclarators splits at top-level commas. Angle brackets nest in the
// binding's type annotation and around the type arguments of generic calls in
// the initializer.
func splitDeclarators(ts Tokens) []Tokens {
	var out []Tokens
	depth, angle, start := 0, 0, 0
	inInit := false
	for j := 0; j < len(ts); j++ {
		t := ts[j]
		switch {
		case t.opens():
			depth++
		case t.closes():
			depth--
		case depth == 0 && inInit && t.IsPunct("<") && j > 0 && ts[j-1].Kind == Ident:
			if m := ts.MatchAngle(j); m > 0 && m+1 < len(ts) && ts[m+1].IsPunct("(") {
				j = m
			}
		case depth == 0 && !inInit && t.IsPunct("<"):
			angle++
		case depth == 0 && !inInit && t.IsPunct(">") && angle > 0:
			angle--
		case depth == 0 && angle == 0 && t.IsPunct("="):
			inInit = true
		case depth == 0 && angle == 0 && t.IsPunct(","):
			out = append(out, ts[start:j])
			start, inInit = j+1, false
		}
	}
	if start < len(ts) {
		out = append(out, ts[start:])
	}
	return out
}

func parseDeclarator(src string, ts Tokens) *Declarator {
	if len(ts) == 0 {
		return nil
	}
	d := &Declarator{Span: ts.Span(0)}
	end := 1
	if ts[0].IsPunct("{") || ts[0].IsPunct("[") {
		if m := ts.Match(0); m > 0 {
			end = m + 1
		} else {
			end = len(ts)
		}
	} else if ts[0].Kind == Ident {
		d.ID, d.IDSpan = ts[0].Text, ts[0].Span
	}
	pattern := ts[:end]
	d.Pattern = pattern.Span(0)
	d.Bindings = PatternBindings(pattern)

	rest := ts[end:]
	if len(rest) > 0 && rest[0].IsPunct("!") {
		rest = rest[1:]
	}
	eq := rest.IndexTop(func(t Token) bool { return t.IsPunct("=") }, true)
	typ := rest
	if eq >= 0 {
		typ = rest[:eq]
		d.Init = ParseExpr(src, rest[eq+1:])
	}
	if len(typ) > 1 && typ[0].IsPunct(":") {
		d.HasType = true
		d.Type = typ[1:].Span(typ[0].Span.End)
	}
	return d
}

// PatternBindings lists the names bound by a binding pattern: a plain
// identifier, an object or array destructuring pattern, or a rest element.
// Defaults and type annotations are skipped.
func PatternBindings(ts Tokens) []Binding {
	if len(ts) == 0 {
		return nil
	}
	switch {
	case ts[0].Kind == Ident:
		return []Binding{{Name: ts[0].Text, Span: ts[0].Span}}
	case ts[0].IsPunct("..."):
		return PatternBindings(ts[1:])
	case ts[0].IsPunct("{"):
		var out []Binding
		for _, prop := range innerOf(ts).Split(",", false) {
			if len(prop) == 0 {
				continue
			}
			if prop[0].IsPunct("...") {
				out = append(out, PatternBindings(prop[1:])...)
				continue
			}
			if colon := prop.IndexTop(func(t Token) bool { return t.IsPunct(":") }, false); colon >= 0 {
				out = append(out, PatternBindings(prop[colon+1:])...)
				continue
			}
			out = append(out, PatternBindings(prop)...)
		}
		return out
	case ts[0].IsPunct("["):
		var out []Binding
		for _, el := range innerOf(ts).Split(",", false) {
			out = append(out, PatternBindings(el)...)
		}
		return out
	}
	return nil
}

// innerOf returns the tokens between ts[0] and its matching closer, or
// everything after ts[0] when the bracket is never closed.
func innerOf(ts Tokens) Tokens {
	end := ts.Match(0)
	if end < 0 {
		return ts[1:]
	}
	return ts[1:end]
}
