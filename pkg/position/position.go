package position

import (
	"fmt"
)

// Place is a zero-based line / character pair.
type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Span is a half-open byte range [Start, End) in a source text.
type Span struct {
	Start int
	End   int
}

func NewSpan(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: start, End: end}
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains reports whether offset falls inside the span. The end offset is
// exclusive, except for empty spans which contain their own start.
func (s Span) Contains(offset int) bool {
	if s.IsEmpty() {
		return offset == s.Start
	}
	return offset >= s.Start && offset < s.End
}

func (s Span) ContainsSpan(other Span) bool {
	return other.Start >= s.Start && other.End <= s.End
}

// Overlaps reports whether the spans share a byte. An empty span overlaps a
// span it touches.
func (s Span) Overlaps(other Span) bool {
	switch {
	case s.IsEmpty():
		return s.Start >= other.Start && s.Start <= other.End
	case other.IsEmpty():
		return other.Start >= s.Start && other.Start <= s.End
	}
	return other.Start < s.End && other.End > s.Start
}

func (s Span) Shift(delta int) Span {
	return Span{Start: s.Start + delta, End: s.End + delta}
}

// Text slices the span out of src, clamping to the bounds of src.
func (s Span) Text(src string) string {
	start, end := clamp(s.Start, 0, len(src)), clamp(s.End, 0, len(src))
	if end < start {
		return ""
	}
	return src[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
