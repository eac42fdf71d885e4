package template

import (
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/position"
)

type ChunkKind int

const (
	// ChunkGroup holds the chunks emitted for one node.
	ChunkGroup ChunkKind = iota
	// ChunkText is synthesized text.
	ChunkText
	// ChunkCopy is source text copied verbatim.
	ChunkCopy
	// ChunkReplace is synthesized text standing in for a source range.
	ChunkReplace
	// ChunkIdent is an identifier reference inside an expression.
	ChunkIdent
)

// Chunk is one piece of the emission tree. Every chunk except synthesized
// text keeps the source range it came from.
type Chunk struct {
	Kind     ChunkKind
	Node     NodeKind
	Span     position.Span
	Text     string
	Children []*Chunk

	// Ignore marks identifiers bound by an enclosing loop or slot scope;
	// they are never qualified with the context object.
	Ignore bool
	// Global marks identifiers resolved by the host's globals.
	Global    bool
	Shorthand bool
}

// Qualified reports whether the identifier is rewritten against the context.
func (c *Chunk) Qualified() bool {
	return c.Kind == ChunkIdent && !c.Ignore && !c.Global
}

type Emission struct {
	Source      string
	Prefix      string
	Root        *Chunk
	Diagnostics diagnostic.Diagnostics
}

// Context is the name of the accessor object free identifiers resolve on.
func (em *Emission) Context() string {
	return em.Prefix + "ctx"
}

// Write appends the emission to s, recording a copy for every piece of
// source text it reuses.
func (em *Emission) Write(s *mapping.Script) {
	em.write(s, em.Root)
}

func (em *Emission) write(s *mapping.Script, c *Chunk) {
	switch c.Kind {
	case ChunkGroup:
		for _, child := range c.Children {
			em.write(s, child)
		}
	case ChunkText:
		s.Insert(c.Text)
	case ChunkCopy:
		s.Copy(c.Span)
	case ChunkReplace:
		s.Overwrite(c.Span, c.Text)
	case ChunkIdent:
		switch {
		case !c.Qualified():
			s.Copy(c.Span)
		case c.Shorthand:
			s.Copy(c.Span)
			s.Insert(": " + em.Context() + ".")
			s.Copy(c.Span)
		default:
			s.Insert(em.Context() + ".")
			s.Copy(c.Span)
		}
	}
}

// String renders the emission without keeping the mapping.
func (em *Emission) String() string {
	s := mapping.NewScript(em.Source)
	em.Write(s)
	return s.Text()
}

// Idents lists every identifier chunk in emission order.
func (em *Emission) Idents() []*Chunk {
	var out []*Chunk
	var walk func(c *Chunk)
	walk = func(c *Chunk) {
		if c.Kind == ChunkIdent {
			out = append(out, c)
		}
		for _, child := range c.Children {
			walk(child)
		}
	}
	if em.Root != nil {
		walk(em.Root)
	}
	return out
}

// Groups lists the node groups whose kind is kind, outermost first.
func (em *Emission) Groups(kind NodeKind) []*Chunk {
	var out []*Chunk
	var walk func(c *Chunk)
	walk = func(c *Chunk) {
		if c.Kind == ChunkGroup && c.Node == kind {
			out = append(out, c)
		}
		for _, child := range c.Children {
			walk(child)
		}
	}
	if em.Root != nil {
		walk(em.Root)
	}
	return out
}
