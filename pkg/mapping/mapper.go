package mapping

import (
	"sort"

	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
)

// Segment pairs an original range with the generated range produced from it.
// Inserts have an empty Original.
type Segment struct {
	Kind      OpKind
	Original  position.Span
	Generated position.Span
}

// Mapper answers offset queries for one generated text. It is immutable and
// safe for concurrent use.
type Mapper struct {
	source    string
	generated string

	// every copy, overwrite and insert, in generated order
	segments []Segment
	// indexes into segments of copies and overwrites, ordered by original start
	byOriginal []int
	// maxEnd[i] is the largest Original.End among byOriginal[:i+1]
	maxEnd []int
}

func NewMapper(s *Script) *Mapper {
	m := &Mapper{source: s.source, generated: s.Text()}
	gen := 0
	for _, op := range s.ops {
		switch op.Kind {
		case OpRemove:
			continue
		case OpInsert:
			m.segments = append(m.segments, Segment{
				Kind:      OpInsert,
				Original:  position.NewSpan(0, 0),
				Generated: position.NewSpan(gen, gen+len(op.Text)),
			})
		default:
			m.segments = append(m.segments, Segment{
				Kind:      op.Kind,
				Original:  op.Source,
				Generated: position.NewSpan(gen, gen+len(op.Text)),
			})
			m.byOriginal = append(m.byOriginal, len(m.segments)-1)
		}
		gen += len(op.Text)
	}

	sort.SliceStable(m.byOriginal, func(i, j int) bool {
		return m.segments[m.byOriginal[i]].Original.Start < m.segments[m.byOriginal[j]].Original.Start
	})
	m.maxEnd = make([]int, len(m.byOriginal))
	for i, idx := range m.byOriginal {
		end := m.segments[idx].Original.End
		if i > 0 && m.maxEnd[i-1] > end {
			end = m.maxEnd[i-1]
		}
		m.maxEnd[i] = end
	}
	return m
}

func (m *Mapper) Source() string    { return m.source }
func (m *Mapper) Generated() string { return m.generated }

// Segments returns the mapped (copy and overwrite) segments in generated order.
func (m *Mapper) Segments() []Segment {
	var out []Segment
	for _, s := range m.segments {
		if s.Kind != OpInsert {
			out = append(out, s)
		}
	}
	return out
}

// ToGenerated maps an original offset into the generated text. Offsets
// outside every copied or overwritten range are clamped to the nearest
// generated boundary and reported with ok == false.
func (m *Mapper) ToGenerated(o int) (g int, ok bool) {
	if o < 0 || o > len(m.source) {
		g, _ = m.ToGenerated(clampInt(o, 0, len(m.source)))
		return g, false
	}

	best := -1
	hi := sort.Search(len(m.byOriginal), func(i int) bool {
		return m.segments[m.byOriginal[i]].Original.Start > o
	}) - 1
	for j := hi; j >= 0 && m.maxEnd[j] >= o; j-- {
		idx := m.byOriginal[j]
		if m.segments[idx].Original.End < o {
			continue
		}
		if best < 0 || m.prefer(idx, best, o) {
			best = idx
		}
	}
	if best >= 0 {
		s := m.segments[best]
		delta := o - s.Original.Start
		if s.Kind == OpOverwrite && delta > s.Generated.Len() {
			delta = s.Generated.Len()
		}
		return s.Generated.Start + delta, true
	}
	return m.nearestGenerated(o), false
}

// prefer reports whether segment a is a better answer than b for offset o:
// strict containment beats touching the end, copies beat overwrites, and
// earlier generated text wins ties.
func (m *Mapper) prefer(a, b int, o int) bool {
	sa, sb := m.segments[a], m.segments[b]
	ca, cb := o < sa.Original.End, o < sb.Original.End
	if ca != cb {
		return ca
	}
	if (sa.Kind == OpCopy) != (sb.Kind == OpCopy) {
		return sa.Kind == OpCopy
	}
	return sa.Generated.Start < sb.Generated.Start
}

func (m *Mapper) nearestGenerated(o int) int {
	bestDist, best := -1, 0
	for _, idx := range m.byOriginal {
		s := m.segments[idx]
		var dist, g int
		switch {
		case o < s.Original.Start:
			dist, g = s.Original.Start-o, s.Generated.Start
		default:
			dist, g = o-s.Original.End, s.Generated.End
		}
		if bestDist < 0 || dist < bestDist {
			bestDist, best = dist, g
		}
	}
	return best
}

// ToOriginal maps a generated offset back into the original text. Offsets
// inside synthesized text are clamped to the end of the closest preceding
// mapped range and reported with ok == false.
func (m *Mapper) ToOriginal(g int) (o int, ok bool) {
	if g < 0 || g > len(m.generated) {
		o, _ = m.ToOriginal(clampInt(g, 0, len(m.generated)))
		return o, false
	}

	i := sort.Search(len(m.segments), func(i int) bool {
		return m.segments[i].Generated.End > g
	})
	if i < len(m.segments) && m.segments[i].Generated.Start <= g {
		s := m.segments[i]
		switch s.Kind {
		case OpCopy:
			return s.Original.Start + g - s.Generated.Start, true
		case OpOverwrite:
			delta := g - s.Generated.Start
			if delta > s.Original.Len() {
				delta = s.Original.Len()
			}
			return s.Original.Start + delta, true
		}
	}
	if i > 0 {
		if prev := m.segments[i-1]; prev.Kind != OpInsert && prev.Generated.End == g {
			return prev.Original.End, true
		}
	}
	for j := i - 1; j >= 0; j-- {
		if m.segments[j].Kind != OpInsert {
			return m.segments[j].Original.End, false
		}
	}
	for j := i; j < len(m.segments); j++ {
		if m.segments[j].Kind != OpInsert {
			return m.segments[j].Original.Start, false
		}
	}
	return 0, false
}

// ToOriginalSpan maps a generated range back; ok is false when either end
// was clamped.
func (m *Mapper) ToOriginalSpan(span position.Span) (position.Span, bool) {
	start, ok := m.ToOriginal(span.Start)
	if span.IsEmpty() {
		return position.NewSpan(start, start), ok
	}
	last, okEnd := m.ToOriginal(span.End - 1)
	return position.NewSpan(start, last+1), ok && okEnd
}

// ToGeneratedSpan maps an original range forward; ok is false when either
// end was clamped.
func (m *Mapper) ToGeneratedSpan(span position.Span) (position.Span, bool) {
	start, ok := m.ToGenerated(span.Start)
	if span.IsEmpty() {
		return position.NewSpan(start, start), ok
	}
	last, okEnd := m.ToGenerated(span.End - 1)
	return position.NewSpan(start, last+1), ok && okEnd
}

// TranslateToOriginal maps a generated offset back and describes a clamped
// query as a MappingOutOfRangeError.
func (m *Mapper) TranslateToOriginal(g int) (int, error) {
	o, ok := m.ToOriginal(g)
	if !ok {
		return o, &diagnostic.MappingOutOfRangeError{Direction: "toOriginal", Offset: g, Clamped: o}
	}
	return o, nil
}

func (m *Mapper) TranslateToGenerated(o int) (int, error) {
	g, ok := m.ToGenerated(o)
	if !ok {
		return g, &diagnostic.MappingOutOfRangeError{Direction: "toGenerated", Offset: o, Clamped: g}
	}
	return g, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
