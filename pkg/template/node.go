// Package template parses the template block into a node tree and transpiles
// it into an expression whose nesting mirrors the template's control flow.
//
//	<li v-for="item in items">{{ item }}</li>
//
// becomes
//
//	__sfc_renderList((__sfc_ctx.items), (item) => __sfc_element("li", {}, [(item)]))
package template

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"github.com/walteh/sfc-typer/pkg/sfc"
	"golang.org/x/net/html"
)

// NodeKind is the closed set of template node kinds. Every switch over it
// handles all of them.
type NodeKind int

const (
	NodeRoot NodeKind = iota
	NodeElement
	NodeText
	NodeInterpolation
	NodeComment
	NodeIf
	NodeFor
	NodeSlotOutlet
)

func (k NodeKind) String() string {
	switch k {
	case NodeRoot:
		return "root"
	case NodeElement:
		return "element"
	case NodeText:
		return "text"
	case NodeInterpolation:
		return "interpolation"
	case NodeComment:
		return "comment"
	case NodeIf:
		return "if"
	case NodeFor:
		return "for"
	case NodeSlotOutlet:
		return "slot-outlet"
	}
	return "unknown"
}

type Node struct {
	Kind NodeKind
	Span position.Span

	// elements and slot outlets
	Tag         string
	TagSpan     position.Span
	Attrs       []*Attr
	Children    []*Node
	SelfClosing bool

	// Content is the text of text nodes, the trimmed expression of
	// interpolations and the inner text of comments.
	Content position.Span

	Branches []*Branch
	Loop     *Loop
}

// Directive returns the first attribute carrying directive name.
func (n *Node) Directive(name string) *Attr {
	for _, a := range n.Attrs {
		if a.Directive == name {
			return a
		}
	}
	return nil
}

// Branch is one arm of a v-if / v-else-if / v-else chain.
type Branch struct {
	Attr *Attr
	Node *Node
}

// IsElse reports whether the branch has no condition.
func (b *Branch) IsElse() bool { return b.Attr.Directive == "else" }

// Loop is a parsed v-for. Aliases holds the value, key and index patterns in
// that order, as many as were declared.
type Loop struct {
	Attr     *Attr
	Aliases  []position.Span
	Bindings []script.Binding
	Source   position.Span
	Body     *Node
}

var (
	interpolationRe = regexp.MustCompile(`\{\{([\s\S]*?)\}\}`)
	forAliasRe      = regexp.MustCompile(`^\s*([\s\S]*?)\s+(?:in|of)\s+([\s\S]*?)\s*$`)

	voidElements = map[string]bool{
		"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
		"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
	}
)

type parser struct {
	src   string
	diags diagnostic.Diagnostics
}

// Parse builds the node tree of src[content]. Problems are returned as
// diagnostics; the tree always covers whatever could be recognized.
func Parse(ctx context.Context, src string, content position.Span) (*Node, diagnostic.Diagnostics) {
	p := &parser{src: src}
	root := &Node{Kind: NodeRoot, Span: content}
	stack := []*Node{root}
	top := func() *Node { return stack[len(stack)-1] }

	z := html.NewTokenizer(strings.NewReader(maskInterpolations(content.Text(src))))
	off := content.Start
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := off
		off += len(z.Raw())
		span := position.NewSpan(start, off)

		switch tt {
		case html.TextToken:
			parent := top()
			parent.Children = append(parent.Children, p.text(span)...)
		case html.CommentToken:
			inner := position.NewSpan(start+len("<!--"), off-len("-->"))
			parent := top()
			parent.Children = append(parent.Children, &Node{Kind: NodeComment, Span: span, Content: inner})
		case html.StartTagToken, html.SelfClosingTagToken:
			n := p.element(span)
			parent := top()
			parent.Children = append(parent.Children, n)
			n.SelfClosing = tt == html.SelfClosingTagToken
			if !n.SelfClosing && !voidElements[strings.ToLower(n.Tag)] {
				stack = append(stack, n)
			}
		case html.EndTagToken:
			name := tagName(span.Text(src))
			at := -1
			for i := len(stack) - 1; i > 0; i-- {
				if strings.EqualFold(stack[i].Tag, name) {
					at = i
					break
				}
			}
			if at < 0 {
				if !voidElements[strings.ToLower(name)] {
					p.report(span, "</"+name+"> has no matching open tag")
				}
				continue
			}
			for i := len(stack) - 1; i > at; i-- {
				p.report(stack[i].TagSpan, "<"+stack[i].Tag+"> is never closed")
				stack[i].Span = position.NewSpan(stack[i].Span.Start, start)
			}
			stack[at].Span = position.NewSpan(stack[at].Span.Start, off)
			stack = stack[:at]
		}
	}
	for i := len(stack) - 1; i > 0; i-- {
		p.report(stack[i].TagSpan, "<"+stack[i].Tag+"> is never closed")
		stack[i].Span = position.NewSpan(stack[i].Span.Start, content.End)
	}

	root.Children = p.structure(root.Children)

	zerolog.Ctx(ctx).Debug().
		Int("nodes", count(root)).
		Int("diagnostics", len(p.diags)).
		Msg("parsed template")

	return root, p.diags
}

// maskInterpolations blanks the inside of every {{ }} so markup characters in
// expressions are not tokenized. Offsets are unchanged; node text is always
// read back from the source.
func maskInterpolations(text string) string {
	ms := interpolationRe.FindAllStringSubmatchIndex(text, -1)
	if len(ms) == 0 {
		return text
	}
	b := []byte(text)
	for _, m := range ms {
		for i := m[2]; i < m[3]; i++ {
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}
	return string(b)
}

func (p *parser) report(span position.Span, msg string) {
	p.diags = append(p.diags, diagnostic.Diagnostic{
		Message:  msg,
		Span:     span,
		Severity: diagnostic.SeverityWarning,
		Code:     diagnostic.CodeTemplateParse,
	})
}

// text splits a text token into text and interpolation nodes.
func (p *parser) text(span position.Span) []*Node {
	raw := span.Text(p.src)
	var out []*Node
	at := 0
	for _, m := range interpolationRe.FindAllStringSubmatchIndex(raw, -1) {
		if m[0] > at {
			s := position.NewSpan(span.Start+at, span.Start+m[0])
			out = append(out, &Node{Kind: NodeText, Span: s, Content: s})
		}
		out = append(out, &Node{
			Kind:    NodeInterpolation,
			Span:    position.NewSpan(span.Start+m[0], span.Start+m[1]),
			Content: trim(p.src, position.NewSpan(span.Start+m[2], span.Start+m[3])),
		})
		at = m[1]
	}
	if at < len(raw) {
		s := position.NewSpan(span.Start+at, span.End)
		out = append(out, &Node{Kind: NodeText, Span: s, Content: s})
	}
	return out
}

func (p *parser) element(open position.Span) *Node {
	raw := open.Text(p.src)
	name := tagName(raw)
	n := &Node{
		Kind:    NodeElement,
		Span:    open,
		Tag:     name,
		TagSpan: position.NewSpan(open.Start+1, open.Start+1+len(name)),
	}
	if name == "slot" {
		n.Kind = NodeSlotOutlet
	}
	for _, a := range sfc.ParseAttributes(raw, open.Start) {
		n.Attrs = append(n.Attrs, parseAttr(a))
	}
	return n
}

// structure groups conditional chains and wraps loops. A loop sits inside the
// branch that carries it, so v-if is evaluated before v-for.
func (p *parser) structure(children []*Node) []*Node {
	var out []*Node
	var chain *Node
	for _, n := range children {
		if n.Kind == NodeElement || n.Kind == NodeSlotOutlet {
			n.Children = p.structure(n.Children)
		}
		if n.Kind == NodeComment || (n.Kind == NodeText && strings.TrimSpace(n.Content.Text(p.src)) == "") {
			if chain == nil {
				out = append(out, n)
			}
			continue
		}
		if n.Kind != NodeElement && n.Kind != NodeSlotOutlet {
			chain = nil
			out = append(out, n)
			continue
		}

		if a := n.Directive("if"); a != nil {
			chain = &Node{Kind: NodeIf, Span: n.Span, Branches: []*Branch{{Attr: a, Node: p.loop(n)}}}
			out = append(out, chain)
			continue
		}
		a := n.Directive("else-if")
		if a == nil {
			a = n.Directive("else")
		}
		if a != nil {
			if chain == nil {
				p.report(a.Span, a.Name+" has no adjacent v-if or v-else-if")
				out = append(out, p.loop(n))
				continue
			}
			chain.Branches = append(chain.Branches, &Branch{Attr: a, Node: p.loop(n)})
			chain.Span = position.NewSpan(chain.Span.Start, n.Span.End)
			if a.Directive == "else" {
				chain = nil
			}
			continue
		}
		chain = nil
		out = append(out, p.loop(n))
	}
	return out
}

func (p *parser) loop(n *Node) *Node {
	a := n.Directive("for")
	if a == nil {
		return n
	}
	l := &Loop{Attr: a, Body: n, Source: a.ValueSpan}
	m := forAliasRe.FindStringSubmatchIndex(a.Value)
	if !a.HasValue || m == nil {
		p.report(a.Span, "v-for expects an `alias in source` expression")
		return &Node{Kind: NodeFor, Span: n.Span, Loop: l}
	}
	base := a.ValueSpan.Start
	l.Source = position.NewSpan(base+m[4], base+m[5])

	aliases := trim(p.src, position.NewSpan(base+m[2], base+m[3]))
	toks := script.Tokens(script.Tokenize(p.src, aliases))
	if len(toks) > 0 && toks[0].IsPunct("(") && toks.Match(0) == len(toks)-1 {
		toks = toks[1 : len(toks)-1]
	}
	for _, part := range toks.Split(",", false) {
		if len(part) == 0 {
			continue
		}
		l.Aliases = append(l.Aliases, part.Span(0))
		l.Bindings = append(l.Bindings, script.PatternBindings(part)...)
	}
	return &Node{Kind: NodeFor, Span: n.Span, Loop: l}
}

func tagName(raw string) string {
	raw = strings.TrimPrefix(raw, "<")
	raw = strings.TrimPrefix(raw, "/")
	end := strings.IndexAny(raw, " \t\r\n\f/>")
	if end < 0 {
		return raw
	}
	return raw[:end]
}

func trim(src string, span position.Span) position.Span {
	text := span.Text(src)
	lead := len(text) - len(strings.TrimLeft(text, " \t\r\n\f"))
	trail := len(text) - len(strings.TrimRight(text, " \t\r\n\f"))
	if lead == len(text) {
		return position.NewSpan(span.Start, span.Start)
	}
	return position.NewSpan(span.Start+lead, span.End-trail)
}

func count(n *Node) int {
	total := 1
	for _, c := range n.Children {
		total += count(c)
	}
	for _, b := range n.Branches {
		total += count(b.Node)
	}
	if n.Loop != nil {
		total += count(n.Loop.Body)
	}
	return total
}
