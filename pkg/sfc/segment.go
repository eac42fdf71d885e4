package sfc

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
	"golang.org/x/net/html"
)

// Descriptor is the segmented form of one component file.
type Descriptor struct {
	Source      string
	Blocks      []*Block
	Comments    []position.Span
	Diagnostics diagnostic.Diagnostics
}

// Piece is either a block (Block != nil) or the gap text between blocks.
type Piece struct {
	Span  position.Span
	Block *Block
}

// Pieces returns blocks and gaps in source order. Concatenating their text
// yields the source.
func (d *Descriptor) Pieces() []Piece {
	var out []Piece
	at := 0
	for _, b := range d.Blocks {
		span := b.Span()
		if span.Start > at {
			out = append(out, Piece{Span: position.NewSpan(at, span.Start)})
		}
		out = append(out, Piece{Span: span, Block: b})
		at = span.End
	}
	if at < len(d.Source) {
		out = append(out, Piece{Span: position.NewSpan(at, len(d.Source))})
	}
	return out
}

func (d *Descriptor) first(typ BlockType) *Block {
	for _, b := range d.Blocks {
		if b.Type == typ {
			return b
		}
	}
	return nil
}

func (d *Descriptor) all(typ BlockType) []*Block {
	var out []*Block
	for _, b := range d.Blocks {
		if b.Type == typ {
			out = append(out, b)
		}
	}
	return out
}

func (d *Descriptor) Script() *Block      { return d.first(BlockScript) }
func (d *Descriptor) ScriptSetup() *Block { return d.first(BlockScriptSetup) }
func (d *Descriptor) Template() *Block    { return d.first(BlockTemplate) }
func (d *Descriptor) Styles() []*Block    { return d.all(BlockStyle) }
func (d *Descriptor) Customs() []*Block   { return d.all(BlockCustom) }
func (d *Descriptor) Empties() []*Block   { return d.all(BlockEmpty) }

// Scripts returns the normal script block followed by the setup block, each
// only when present.
func (d *Descriptor) Scripts() []*Block {
	var out []*Block
	if b := d.Script(); b != nil {
		out = append(out, b)
	}
	if b := d.ScriptSetup(); b != nil {
		out = append(out, b)
	}
	return out
}

var (
	openTagRe = regexp.MustCompile(`<([A-Za-z][\w-]*)((?:\s+[^\s"'>/=]+(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s"'>]+))?)*)\s*(/?)>`)
	attrRe    = regexp.MustCompile(`([^\s"'<>/=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+)))?`)
)

// rootTags always start a new top-level block, wherever they appear.
var rootTags = map[string]bool{"template": true, "script": true, "style": true}

// Segment splits text into blocks. It never fails: regions whose boundaries
// cannot be determined stay in the gaps and are reported as diagnostics.
func Segment(ctx context.Context, text string) *Descriptor {
	s := &segmenter{text: text, closers: map[string]*regexp.Regexp{}}
	s.structural()
	s.reconcile()

	sort.SliceStable(s.blocks, func(i, j int) bool {
		return s.blocks[i].Open.Start < s.blocks[j].Open.Start
	})
	s.reportDuplicates()

	zerolog.Ctx(ctx).Debug().
		Int("blocks", len(s.blocks)).
		Int("comments", len(s.comments)).
		Int("diagnostics", len(s.diags)).
		Msg("segmented component")

	return &Descriptor{
		Source:      text,
		Blocks:      s.blocks,
		Comments:    s.comments,
		Diagnostics: s.diags,
	}
}

type segmenter struct {
	text      string
	blocks    []*Block
	comments  []position.Span
	unmatched []position.Span // opened by a tag that is never closed
	diags     diagnostic.Diagnostics

	closers map[string]*regexp.Regexp
}

func (s *segmenter) closeTag(name string) *regexp.Regexp {
	key := strings.ToLower(name)
	re, ok := s.closers[key]
	if !ok {
		re = regexp.MustCompile(`(?i)</` + regexp.QuoteMeta(key) + `\s*>`)
		s.closers[key] = re
	}
	return re
}

// structural walks top-level markup with an HTML tokenizer. The tokenizer is
// restarted after every non-template block so block content is never
// tokenized as markup.
func (s *segmenter) structural() {
	pos := 0
	for pos < len(s.text) {
		pos = s.scanFrom(pos)
	}
}

func (s *segmenter) scanFrom(pos int) int {
	z := html.NewTokenizer(strings.NewReader(s.text[pos:]))
	off := pos
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return len(s.text)
		}
		start := off
		off += len(z.Raw())
		switch tt {
		case html.CommentToken:
			s.comments = append(s.comments, position.NewSpan(start, off))
		case html.SelfClosingTagToken:
			return off
		case html.StartTagToken:
			open := position.NewSpan(start, off)
			name := tagName(s.text[start:off])
			if strings.EqualFold(name, "template") {
				return s.template(z, name, open)
			}
			return s.rawBlock(name, open)
		}
	}
}

func (s *segmenter) template(z *html.Tokenizer, name string, open position.Span) int {
	depth := 1
	off := open.End
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return s.unclosed(name, open)
		}
		start := off
		off += len(z.Raw())
		if tt != html.StartTagToken && tt != html.EndTagToken {
			continue
		}
		if !strings.EqualFold(tagName(s.text[start:off]), "template") {
			continue
		}
		if tt == html.StartTagToken {
			depth++
			continue
		}
		depth--
		if depth == 0 {
			s.add(name, open, position.NewSpan(open.End, start), position.NewSpan(start, off))
			return off
		}
	}
}

func (s *segmenter) rawBlock(name string, open position.Span) int {
	loc := s.closeTag(name).FindStringIndex(s.text[open.End:])
	if loc == nil {
		return s.unclosed(name, open)
	}
	content := position.NewSpan(open.End, open.End+loc[0])
	close := position.NewSpan(open.End+loc[0], open.End+loc[1])
	attrs := ParseAttributes(s.text[open.Start:open.End], open.Start)
	if strings.TrimSpace(content.Text(s.text)) == "" && !hasAttr(attrs, "src") {
		// left for reconcile, which records it as an empty block
		return close.End
	}
	s.add(name, open, content, close)
	return close.End
}

func (s *segmenter) add(name string, open, content, close position.Span) {
	attrs := ParseAttributes(s.text[open.Start:open.End], open.Start)
	s.blocks = append(s.blocks, newBlock(blockTypeFor(name, attrs), name, attrs, open, content, close))
}

// unclosed reports a tag without a close and returns where scanning resumes:
// the next tag at the start of a line or the next root tag. Everything in
// between stays content.
func (s *segmenter) unclosed(name string, open position.Span) int {
	err := &diagnostic.StructuralParseError{Tag: name, Span: open, Reason: "is never closed"}
	s.diags = append(s.diags, err.Diagnostic())

	resume := len(s.text)
	for _, m := range openTagRe.FindAllStringSubmatchIndex(s.text[open.End:], -1) {
		at := open.End + m[0]
		if s.text[at-1] == '\n' || rootTags[strings.ToLower(s.text[open.End+m[2]:open.End+m[3]])] {
			resume = at
			break
		}
	}
	s.unmatched = append(s.unmatched, position.NewSpan(open.Start, resume))
	return resume
}

// reconcile scans for tag pairs the structural pass skipped. A pair outside
// every known block and comment whose content is blank, or a self-closing
// top-level tag, becomes an empty block at its exact position.
func (s *segmenter) reconcile() {
	for _, m := range openTagRe.FindAllStringSubmatchIndex(s.text, -1) {
		open := position.NewSpan(m[0], m[1])
		if s.covered(open.Start) {
			continue
		}
		name := s.text[m[2]:m[3]]
		attrs := ParseAttributes(s.text[open.Start:open.End], open.Start)
		if m[7] > m[6] {
			if s.crosses(open.Start, open.End) {
				continue
			}
			at := position.NewSpan(open.End, open.End)
			s.blocks = append(s.blocks, newBlock(BlockEmpty, name, attrs, open, at, at))
			continue
		}
		loc := s.closeTag(name).FindStringIndex(s.text[open.End:])
		if loc == nil {
			continue
		}
		content := position.NewSpan(open.End, open.End+loc[0])
		close := position.NewSpan(open.End+loc[0], open.End+loc[1])
		if s.crosses(open.Start, close.End) || strings.TrimSpace(content.Text(s.text)) != "" {
			continue
		}
		s.blocks = append(s.blocks, newBlock(BlockEmpty, name, attrs, open, content, close))
	}
}

func (s *segmenter) covered(offset int) bool {
	for _, b := range s.blocks {
		if b.Span().Contains(offset) {
			return true
		}
	}
	for _, c := range s.comments {
		if c.Contains(offset) {
			return true
		}
	}
	for _, u := range s.unmatched {
		if u.Contains(offset) {
			return true
		}
	}
	return false
}

// crosses reports whether a known block or comment starts inside (start, end).
func (s *segmenter) crosses(start, end int) bool {
	for _, b := range s.blocks {
		if b.Open.Start > start && b.Open.Start < end {
			return true
		}
	}
	for _, c := range s.comments {
		if c.Start > start && c.Start < end {
			return true
		}
	}
	for _, u := range s.unmatched {
		if u.Start > start && u.Start < end {
			return true
		}
	}
	return false
}

func (s *segmenter) reportDuplicates() {
	seen := map[BlockType]bool{}
	for _, b := range s.blocks {
		switch b.Type {
		case BlockScript, BlockScriptSetup, BlockTemplate:
		default:
			continue
		}
		if seen[b.Type] {
			err := &diagnostic.StructuralParseError{Tag: b.Tag, Span: b.Open, Reason: "duplicates an earlier " + b.Type.String() + " block and is ignored"}
			s.diags = append(s.diags, err.Diagnostic())
		}
		seen[b.Type] = true
	}
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

func hasAttr(attrs []Attribute, name string) bool {
	for _, a := range attrs {
		if strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

// ParseAttributes parses the attributes of the open tag raw, which starts at
// offset base in the document. Names keep their original case.
func ParseAttributes(raw string, base int) []Attribute {
	name := tagName(raw)
	from := strings.Index(raw, name) + len(name)
	body := strings.TrimSuffix(raw[from:], ">")
	body = strings.TrimSuffix(body, "/")

	var out []Attribute
	for _, m := range attrRe.FindAllStringSubmatchIndex(body, -1) {
		a := Attribute{
			Name: body[m[2]:m[3]],
			Span: position.NewSpan(base+from+m[0], base+from+m[1]),
		}
		for g := 4; g <= 8; g += 2 {
			if m[g] >= 0 {
				a.HasValue = true
				a.Value = body[m[g]:m[g+1]]
				a.ValueSpan = position.NewSpan(base+from+m[g], base+from+m[g+1])
				break
			}
		}
		out = append(out, a)
	}
	return out
}
