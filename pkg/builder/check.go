package builder

import (
	"sort"
	"strconv"
	"strings"

	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
)

// Check verifies that the text synthesized for an artifact keeps its brackets
// balanced. Text copied from the source is skipped: the user's own mistakes
// are the type checker's to report, not a generation failure.
func Check(kind Kind, s *mapping.Script) error {
	type piece struct{ at, gen int }
	var (
		sb     strings.Builder
		pieces []piece
		gen    int
	)
	for _, op := range s.Ops() {
		switch op.Kind {
		case mapping.OpInsert, mapping.OpOverwrite:
			pieces = append(pieces, piece{at: sb.Len(), gen: gen})
			sb.WriteString(op.Text)
			sb.WriteByte('\n')
			gen += len(op.Text)
		case mapping.OpCopy:
			gen += len(op.Text)
		}
	}

	text := sb.String()
	toks := script.Tokens(script.Tokenize(text, position.NewSpan(0, len(text))))
	bad, ok := toks.Balanced()
	if ok {
		return nil
	}

	at := toks[bad].Span.Start
	i := sort.Search(len(pieces), func(i int) bool { return pieces[i].at > at }) - 1
	off := 0
	if i >= 0 {
		off = pieces[i].gen + at - pieces[i].at
	}
	return &diagnostic.HostIntegrationError{
		Kind:    string(kind),
		Offset:  off,
		Reason:  "unbalanced " + strconv.Quote(toks[bad].Text),
		Excerpt: excerpt(s.Text(), off),
	}
}

func excerpt(text string, off int) string {
	lo, hi := max(off-20, 0), min(off+20, len(text))
	if lo > hi {
		return ""
	}
	return text[lo:hi]
}
