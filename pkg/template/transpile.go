package template

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Context struct {
	// Bindings are the names visible on the context object. Component tags
	// resolve against them.
	Bindings []string
	Prefix   string
}

var (
	simpleMemberRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*(?:\s*(?:\?\.|\.)\s*[A-Za-z_$][\w$]*|\[[^\]]+\])*$`)
)

// Transpile turns the node tree rooted at root into an emission.
func Transpile(ctx context.Context, src string, root *Node, c Context) *Emission {
	if c.Prefix == "" {
		c.Prefix = "__sfc_"
	}
	e := &emitter{
		src:      src,
		prefix:   c.Prefix,
		bindings: map[string]bool{},
	}
	for _, b := range c.Bindings {
		e.bindings[b] = true
	}

	em := &Emission{Source: src, Prefix: c.Prefix}
	em.Root = e.group(NodeRoot, root.Span, func() { e.node(root, nil) })

	zerolog.Ctx(ctx).Debug().
		Int("idents", len(em.Idents())).
		Msg("transpiled template")
	return em
}

type scope struct {
	parent *scope
	names  map[string]bool
}

func (s *scope) with(bs []script.Binding) *scope {
	next := &scope{parent: s, names: map[string]bool{}}
	for _, b := range bs {
		next.names[b.Name] = true
	}
	return next
}

func (s *scope) has(name string) bool {
	for ; s != nil; s = s.parent {
		if s.names[name] {
			return true
		}
	}
	return false
}

type emitter struct {
	src      string
	prefix   string
	bindings map[string]bool
	cur      *Chunk
}

func (e *emitter) add(c *Chunk) {
	e.cur.Children = append(e.cur.Children, c)
}

func (e *emitter) text(s string) {
	e.add(&Chunk{Kind: ChunkText, Text: s})
}

func (e *emitter) copy(span position.Span) {
	if !span.IsEmpty() {
		e.add(&Chunk{Kind: ChunkCopy, Span: span})
	}
}

// group collects what fn emits into a new group without attaching it.
func (e *emitter) group(kind NodeKind, span position.Span, fn func()) *Chunk {
	g := &Chunk{Kind: ChunkGroup, Node: kind, Span: span}
	prev := e.cur
	e.cur = g
	fn()
	e.cur = prev
	return g
}

func (e *emitter) node(n *Node, sc *scope) {
	switch n.Kind {
	case NodeRoot:
		e.list(n.Children, sc)
	case NodeElement:
		e.element(n, sc)
	case NodeText:
		if text := strings.Join(strings.Fields(n.Content.Text(e.src)), " "); text != "" {
			e.text(strconv.Quote(text))
		}
	case NodeInterpolation:
		e.expression(n.Content, sc)
	case NodeComment:
	case NodeIf:
		e.conditional(n, sc)
	case NodeFor:
		e.loop(n, sc)
	case NodeSlotOutlet:
		e.slotOutlet(n, sc)
	}
}

// list emits `[a, b, c]`, skipping children that emit nothing.
func (e *emitter) list(nodes []*Node, sc *scope) {
	e.text("[")
	n := 0
	for _, child := range nodes {
		g := e.group(child.Kind, child.Span, func() { e.node(child, sc) })
		if len(g.Children) == 0 {
			continue
		}
		if n > 0 {
			e.text(", ")
		}
		e.add(g)
		n++
	}
	e.text("]")
}

func (e *emitter) child(n *Node, sc *scope) {
	e.add(e.group(n.Kind, n.Span, func() { e.node(n, sc) }))
}

// conditional emits `(a) ? A : (b) ? B : C`; a chain without v-else ends in
// `: undefined`.
func (e *emitter) conditional(n *Node, sc *scope) {
	for _, b := range n.Branches {
		if b.IsElse() {
			e.child(b.Node, sc)
			return
		}
		e.expression(b.Attr.ValueSpan, sc)
		e.text(" ? ")
		e.child(b.Node, sc)
		e.text(" : ")
	}
	e.text("undefined")
}

// loop emits `renderList((source), (value, key, index) => body)`.
func (e *emitter) loop(n *Node, sc *scope) {
	l := n.Loop
	e.text(e.prefix + "renderList(")
	e.expression(l.Source, sc)
	e.text(", (")
	for i, a := range l.Aliases {
		if i > 0 {
			e.text(", ")
		}
		e.copy(a)
	}
	e.text(") => ")
	e.child(l.Body, sc.with(l.Bindings))
	e.text(")")
}

func (e *emitter) element(n *Node, sc *scope) {
	slot := n.Directive("slot")
	if slot != nil && n.Tag == "template" {
		e.slotFunction(slot, n.Children, sc)
		return
	}

	if name, ok := e.component(n.Tag); ok {
		e.text(e.prefix + "component(")
		if name == n.Tag {
			e.add(&Chunk{Kind: ChunkIdent, Span: n.TagSpan, Text: name})
		} else {
			e.add(&Chunk{Kind: ChunkReplace, Span: n.TagSpan, Text: e.prefix + "ctx." + name})
		}
	} else {
		e.text(e.prefix + "element(" + strconv.Quote(n.Tag))
	}
	e.text(", ")
	e.attributes(n, sc, "")
	e.text(", ")
	if slot != nil {
		e.text("[")
		e.slotFunction(slot, n.Children, sc)
		e.text("]")
	} else {
		e.list(n.Children, sc)
	}
	e.text(")")
}

// component resolves a tag to a context binding by its own, PascalCase or
// camelCase name.
func (e *emitter) component(tag string) (string, bool) {
	for _, name := range []string{tag, PascalCase(tag), camelCase(tag)} {
		if e.bindings[name] {
			return name, true
		}
	}
	return "", false
}

// slotFunction emits `slot("name", (scope) => [children])`.
func (e *emitter) slotFunction(a *Attr, children []*Node, sc *scope) {
	e.text(e.prefix + "slot(")
	switch {
	case a.DynamicArg:
		e.expression(a.ArgSpan, sc)
	case a.Arg != "":
		e.text(strconv.Quote(a.Arg))
	default:
		e.text(`"default"`)
	}
	e.text(", (")
	inner := sc
	if a.HasValue {
		value := trim(e.src, a.ValueSpan)
		e.copy(value)
		inner = sc.with(script.PatternBindings(script.Tokens(script.Tokenize(e.src, value))))
	}
	e.text(") => ")
	e.list(children, inner)
	e.text(")")
}

// slotOutlet emits `renderSlot("name", {props}, [fallback])`.
func (e *emitter) slotOutlet(n *Node, sc *scope) {
	e.text(e.prefix + "renderSlot(")
	name := `"default"`
	var dynamic *Attr
	for _, a := range n.Attrs {
		switch {
		case a.Directive == "" && a.Name == "name":
			name = strconv.Quote(a.Value)
		case a.Directive == "bind" && a.Arg == "name":
			dynamic = a
		}
	}
	if dynamic != nil {
		e.expression(dynamic.ValueSpan, sc)
	} else {
		e.text(name)
	}
	e.text(", ")
	e.attributes(n, sc, "name")
	e.text(", ")
	e.list(n.Children, sc)
	e.text(")")
}

// attributes emits the attribute object. Structural directives are left to
// the enclosing chain or loop; skip names an attribute already emitted.
func (e *emitter) attributes(n *Node, sc *scope, skip string) {
	e.text("{")
	first := true
	sep := func() {
		if !first {
			e.text(", ")
		}
		first = false
	}
	for _, a := range n.Attrs {
		switch a.Directive {
		case "if", "else-if", "else", "for", "slot":
		case "":
			if skip != "" && a.Name == skip {
				continue
			}
			sep()
			e.text(strconv.Quote(a.Name) + ": ")
			if a.HasValue {
				e.text(strconv.Quote(a.Value))
			} else {
				e.text("true")
			}
		case "bind":
			if skip != "" && a.Arg == skip {
				continue
			}
			sep()
			if a.Arg == "" {
				e.text("...")
				e.expression(a.ValueSpan, sc)
				continue
			}
			e.key(a, sc, "")
			e.text(": ")
			if a.HasValue {
				e.expression(a.ValueSpan, sc)
			} else if name := camelCase(a.Arg); name == a.Arg {
				// `:foo` binds foo
				e.ident(script.Reference{Name: name, Span: a.ArgSpan}, sc)
			} else {
				e.add(&Chunk{Kind: ChunkReplace, Span: a.ArgSpan, Text: e.prefix + "ctx." + name})
			}
		case "on":
			sep()
			e.key(a, sc, "on")
			e.text(": ")
			e.handler(a, sc)
		case "model":
			sep()
			prop := a.Arg
			if prop == "" {
				prop = "modelValue"
			}
			e.text(strconv.Quote(prop) + ": ")
			e.expression(a.ValueSpan, sc)
			e.text(", " + strconv.Quote("onUpdate:"+prop) + ": ($event: any) => (")
			e.expression(a.ValueSpan, sc)
			e.text(" = $event)")
		default:
			sep()
			e.text(strconv.Quote("v-"+a.Directive) + ": ")
			if a.HasValue {
				e.expression(a.ValueSpan, sc)
			} else {
				e.text("true")
			}
		}
	}
	e.text("}")
}

// key emits an object key for a directive argument. Event keys get the
// `on` prefix and a capitalized name.
func (e *emitter) key(a *Attr, sc *scope, prefix string) {
	if a.DynamicArg {
		e.text("[")
		if prefix != "" {
			e.text(strconv.Quote(prefix) + " + ")
		}
		e.expression(a.ArgSpan, sc)
		e.text("]")
		return
	}
	name := a.Arg
	if prefix != "" {
		name = prefix + title(camelCase(name))
	}
	e.text(strconv.Quote(name))
}

// handler emits an event handler. Member paths and function expressions are
// passed through; anything else runs inside an arrow function.
func (e *emitter) handler(a *Attr, sc *scope) {
	value := trim(e.src, a.ValueSpan)
	text := value.Text(e.src)
	toks := script.Tokens(script.Tokenize(e.src, value))
	fn := len(toks) > 0 && script.ParseExpr(e.src, toks).Kind == script.ExprFunction
	if !a.HasValue || text == "" || fn || simpleMemberRe.MatchString(text) {
		e.expression(a.ValueSpan, sc)
		return
	}
	e.text("($event: any) => {")
	e.expression(a.ValueSpan, sc)
	e.text("}")
}

// expression emits `(expr)` with free identifiers marked for qualification.
// An empty expression emits `undefined`.
func (e *emitter) expression(span position.Span, sc *scope) {
	span = trim(e.src, span)
	if span.IsEmpty() {
		e.text("undefined")
		return
	}
	e.text("(")
	at := span.Start
	for _, r := range script.References(e.src, span) {
		e.copy(position.NewSpan(at, r.Span.Start))
		e.ident(r, sc)
		at = r.Span.End
	}
	e.copy(position.NewSpan(at, span.End))
	e.text(")")
}

func (e *emitter) ident(r script.Reference, sc *scope) {
	c := &Chunk{Kind: ChunkIdent, Span: r.Span, Text: r.Name, Shorthand: r.Shorthand}
	switch {
	case sc.has(r.Name):
		c.Ignore = true
	case script.IsGlobal(r.Name):
		c.Global = true
	}
	e.add(c)
}

// PascalCase turns a kebab-case tag into its component name.
func PascalCase(tag string) string {
	parts := strings.Split(tag, "-")
	for i, p := range parts {
		parts[i] = title(p)
	}
	return strings.Join(parts, "")
}

func camelCase(name string) string {
	parts := strings.Split(name, "-")
	for i := 1; i < len(parts); i++ {
		parts[i] = title(parts[i])
	}
	return strings.Join(parts, "")
}

// title upper-cases the first letter. Casers keep state, so each call gets
// its own.
func title(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(s)
}
