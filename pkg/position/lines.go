package position

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/apparentlymart/go-textseg/v13/textseg"
	"gitlab.com/tozd/go/errors"
)

// ColumnMode selects the unit a Place's Character is counted in.
type ColumnMode int

const (
	// ColumnUTF16 counts UTF-16 code units, the unit editors and source maps use.
	ColumnUTF16 ColumnMode = iota
	ColumnBytes
	// ColumnGraphemes counts user-perceived characters, used for terminal output.
	ColumnGraphemes
)

func ParseColumnMode(s string) (ColumnMode, error) {
	switch s {
	case "", "utf16":
		return ColumnUTF16, nil
	case "bytes":
		return ColumnBytes, nil
	case "graphemes":
		return ColumnGraphemes, nil
	}
	return ColumnUTF16, errors.Errorf("unknown column mode %q", s)
}

func (m ColumnMode) String() string {
	switch m {
	case ColumnBytes:
		return "bytes"
	case ColumnGraphemes:
		return "graphemes"
	default:
		return "utf16"
	}
}

// LineIndex converts between byte offsets and line/column places for one text.
type LineIndex struct {
	text   string
	starts []int
}

func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

func (li *LineIndex) Text() string {
	return li.text
}

func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// LineStart returns the byte offset of the first character of line.
func (li *LineIndex) LineStart(line int) int {
	line = clamp(line, 0, len(li.starts)-1)
	return li.starts[line]
}

// LineEnd returns the byte offset of the newline ending line (or the text end).
func (li *LineIndex) LineEnd(line int) int {
	line = clamp(line, 0, len(li.starts)-1)
	if line+1 < len(li.starts) {
		return li.starts[line+1] - 1
	}
	return len(li.text)
}

func (li *LineIndex) Clamp(offset int) int {
	return clamp(offset, 0, len(li.text))
}

func (li *LineIndex) lineOf(offset int) int {
	return sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
}

func (li *LineIndex) PlaceOf(offset int, mode ColumnMode) Place {
	offset = li.Clamp(offset)
	line := li.lineOf(offset)
	prefix := li.text[li.starts[line]:offset]
	return Place{Line: line, Character: columnWidth(prefix, mode)}
}

// OffsetOf converts a place back into a byte offset. Places past the end of a
// line clamp to the line end; places past the last line clamp to the text end.
func (li *LineIndex) OffsetOf(p Place, mode ColumnMode) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(li.starts) {
		return len(li.text)
	}
	start, end := li.starts[p.Line], li.LineEnd(p.Line)
	line := li.text[start:end]
	return start + byteOffsetForColumn(line, p.Character, mode)
}

func (li *LineIndex) RangeOf(span Span, mode ColumnMode) Range {
	return Range{Start: li.PlaceOf(span.Start, mode), End: li.PlaceOf(span.End, mode)}
}

func (li *LineIndex) SpanOf(r Range, mode ColumnMode) Span {
	return NewSpan(li.OffsetOf(r.Start, mode), li.OffsetOf(r.End, mode))
}

func columnWidth(prefix string, mode ColumnMode) int {
	switch mode {
	case ColumnBytes:
		return len(prefix)
	case ColumnGraphemes:
		n, err := textseg.TokenCount([]byte(prefix), textseg.ScanGraphemeClusters)
		if err != nil {
			return utf8.RuneCountInString(prefix)
		}
		return n
	default:
		n := 0
		for _, r := range prefix {
			n += utf16Len(r)
		}
		return n
	}
}

func byteOffsetForColumn(line string, col int, mode ColumnMode) int {
	if col <= 0 {
		return 0
	}
	switch mode {
	case ColumnBytes:
		return clamp(col, 0, len(line))
	case ColumnGraphemes:
		clusters, err := textseg.AllTokens([]byte(line), textseg.ScanGraphemeClusters)
		if err != nil {
			return clamp(col, 0, len(line))
		}
		off := 0
		for i := 0; i < col && i < len(clusters); i++ {
			off += len(clusters[i])
		}
		return off
	default:
		units := 0
		for i, r := range line {
			if units >= col {
				return i
			}
			units += utf16Len(r)
		}
		return len(line)
	}
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
