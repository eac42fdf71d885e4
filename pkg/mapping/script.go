// Package mapping records how generated text was assembled from an original
// document and answers offset queries in both directions.
//
//	original:  |--copy--|xxremovedxx|--copy--|~overwritten~|
//	generated: |--copy--|++insert++|--copy--|~replacement~~~|
//
// Edits are appended in generated order while the text is being built, so the
// generated text and its edit script can never disagree.
package mapping

import (
	"fmt"
	"strings"

	"github.com/walteh/sfc-typer/pkg/position"
)

type OpKind int

const (
	OpCopy OpKind = iota
	OpInsert
	OpOverwrite
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpCopy:
		return "copy"
	case OpInsert:
		return "insert"
	case OpOverwrite:
		return "overwrite"
	case OpRemove:
		return "remove"
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// Op is one edit. Source is the original range it consumes (empty for
// inserts); Text is the generated text it produces (empty for removals).
type Op struct {
	Kind   OpKind
	Source position.Span
	Text   string
}

// Script is an edit script under construction. The zero value is not usable;
// use NewScript.
type Script struct {
	source string
	ops    []Op
	out    strings.Builder
}

func NewScript(source string) *Script {
	return &Script{source: source}
}

func (s *Script) Source() string { return s.source }

// Text returns the generated text produced so far.
func (s *Script) Text() string { return s.out.String() }

// Len is the length of the generated text produced so far.
func (s *Script) Len() int { return s.out.Len() }

func (s *Script) Ops() []Op {
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// Copy appends src[span] verbatim.
func (s *Script) Copy(span position.Span) *Script {
	span = s.clamp(span)
	if span.IsEmpty() {
		return s
	}
	text := span.Text(s.source)
	s.ops = append(s.ops, Op{Kind: OpCopy, Source: span, Text: text})
	s.out.WriteString(text)
	return s
}

// Insert appends synthesized text with no original counterpart.
func (s *Script) Insert(text string) *Script {
	if text == "" {
		return s
	}
	if n := len(s.ops); n > 0 && s.ops[n-1].Kind == OpInsert {
		s.ops[n-1].Text += text
	} else {
		s.ops = append(s.ops, Op{Kind: OpInsert, Text: text})
	}
	s.out.WriteString(text)
	return s
}

func (s *Script) Insertf(format string, args ...any) *Script {
	return s.Insert(fmt.Sprintf(format, args...))
}

// Overwrite appends text standing in for src[span].
func (s *Script) Overwrite(span position.Span, text string) *Script {
	span = s.clamp(span)
	if span.IsEmpty() {
		return s.Insert(text)
	}
	if text == "" {
		return s.Remove(span)
	}
	s.ops = append(s.ops, Op{Kind: OpOverwrite, Source: span, Text: text})
	s.out.WriteString(text)
	return s
}

// Remove records that src[span] was dropped.
func (s *Script) Remove(span position.Span) *Script {
	span = s.clamp(span)
	if span.IsEmpty() {
		return s
	}
	s.ops = append(s.ops, Op{Kind: OpRemove, Source: span})
	return s
}

// Append replays another script built against the same source.
func (s *Script) Append(other *Script) *Script {
	for _, op := range other.ops {
		switch op.Kind {
		case OpCopy:
			s.Copy(op.Source)
		case OpInsert:
			s.Insert(op.Text)
		case OpOverwrite:
			s.Overwrite(op.Source, op.Text)
		case OpRemove:
			s.Remove(op.Source)
		}
	}
	return s
}

func (s *Script) clamp(span position.Span) position.Span {
	lo, hi := span.Start, span.End
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.source) {
		hi = len(s.source)
	}
	return position.NewSpan(lo, hi)
}
