package mapping

import (
	"encoding/json"
	"strings"

	"github.com/walteh/sfc-typer/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// SourceMap is a revision 3 source map with UTF-16 columns.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

func (sm *SourceMap) JSON() ([]byte, error) {
	out, err := json.Marshal(sm)
	if err != nil {
		return nil, errors.Errorf("marshalling source map: %w", err)
	}
	return out, nil
}

type mapPoint struct {
	gen, orig int
	mapped    bool
}

// SourceMap builds a line/column source map. Copies get a mapping at their
// start and at every generated line they continue onto; overwrites map their
// start; inserts get an unmapped marker so the previous mapping does not
// extend over synthesized text.
func (m *Mapper) SourceMap(file, sourceName string, includeContent bool) *SourceMap {
	var points []mapPoint
	for _, s := range m.segments {
		switch s.Kind {
		case OpInsert:
			points = append(points, mapPoint{gen: s.Generated.Start})
		case OpOverwrite:
			points = append(points, mapPoint{gen: s.Generated.Start, orig: s.Original.Start, mapped: true})
		case OpCopy:
			points = append(points, mapPoint{gen: s.Generated.Start, orig: s.Original.Start, mapped: true})
			text := m.generated[s.Generated.Start:s.Generated.End]
			for i := 0; i < len(text)-1; i++ {
				if text[i] == '\n' {
					points = append(points, mapPoint{gen: s.Generated.Start + i + 1, orig: s.Original.Start + i + 1, mapped: true})
				}
			}
		}
	}

	genLines := position.NewLineIndex(m.generated)
	origLines := position.NewLineIndex(m.source)

	var sb strings.Builder
	line, prevGenCol, prevOrigLine, prevOrigCol := 0, 0, 0, 0
	first := true
	for _, p := range points {
		gp := genLines.PlaceOf(p.gen, position.ColumnUTF16)
		for line < gp.Line {
			sb.WriteByte(';')
			line++
			prevGenCol = 0
			first = true
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		writeVLQ(&sb, gp.Character-prevGenCol)
		prevGenCol = gp.Character
		if !p.mapped {
			continue
		}
		op := origLines.PlaceOf(p.orig, position.ColumnUTF16)
		writeVLQ(&sb, 0)
		writeVLQ(&sb, op.Line-prevOrigLine)
		writeVLQ(&sb, op.Character-prevOrigCol)
		prevOrigLine, prevOrigCol = op.Line, op.Character
	}

	sm := &SourceMap{
		Version:  3,
		File:     file,
		Sources:  []string{sourceName},
		Names:    []string{},
		Mappings: sb.String(),
	}
	if includeContent {
		sm.SourcesContent = []string{m.source}
	}
	return sm
}

const base64Digits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

func writeVLQ(sb *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = (-v << 1) | 1
	}
	for {
		digit := u & 31
		u >>= 5
		if u > 0 {
			digit |= 32
		}
		sb.WriteByte(base64Digits[digit])
		if u == 0 {
			return
		}
	}
}

// EncodeVLQ returns the base64 VLQ encoding of v.
func EncodeVLQ(v int) string {
	var sb strings.Builder
	writeVLQ(&sb, v)
	return sb.String()
}
