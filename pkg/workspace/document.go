// Package workspace keeps the open component documents and the artifacts
// generated from them. Each document version is analyzed once, and each
// artifact kind is generated at most once per version.
package workspace

import (
	"strings"

	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

// SourceDocument is one version of an open document. It is immutable; an edit
// produces a new SourceDocument with a greater version.
type SourceDocument struct {
	URI     string
	Version int32
	Text    string
	// Descriptor is the segmented text, set by Registry.Get.
	Descriptor *sfc.Descriptor
}

// TextEdit replaces Range with NewText. A nil Range replaces the whole text.
type TextEdit struct {
	Range   *position.Range
	NewText string
}

// ApplyEdits applies edits in order, each against the text the previous one
// produced. Characters are counted in mode; positions past a line or past the
// text clamp to its end.
func ApplyEdits(text string, edits []TextEdit, mode position.ColumnMode) string {
	for _, e := range edits {
		if e.Range == nil {
			text = e.NewText
			continue
		}
		span := position.NewLineIndex(text).SpanOf(*e.Range, mode)
		text = text[:span.Start] + e.NewText + text[span.End:]
	}
	return text
}

func normalizeURI(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
