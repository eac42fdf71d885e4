package workspace

import (
	"path"

	"github.com/google/uuid"
	"github.com/walteh/sfc-typer/pkg/builder"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/position"
)

// Artifact is a generated artifact bound to the document version it was
// built from. Text, mapping and imports always belong to the same generation.
type Artifact struct {
	*builder.Artifact

	URI         string
	Version     int32
	VirtualPath string
	// Generation identifies one regeneration; a cache hit returns the same
	// generation.
	Generation uuid.UUID
	Mapper     *mapping.Mapper
}

// VirtualPath is the file name the type-checking host sees for an artifact:
// `Comp.vue` becomes `Comp.vue.options.ts`.
func VirtualPath(uri string, kind builder.Kind) string {
	return uri + "." + string(kind) + ".ts"
}

// OptionsModule is the import specifier of a document's options artifact,
// relative to its sibling artifacts.
func OptionsModule(uri string) string {
	return "./" + path.Base(uri) + "." + string(builder.KindOptions)
}

// Translate maps a diagnostic the host reported against the artifact text
// back onto the original document. Ends that land in synthesized text are
// clamped and described by an extra mapping hint.
func (a *Artifact) Translate(d diagnostic.Diagnostic) diagnostic.Diagnostics {
	start, startErr := a.Mapper.TranslateToOriginal(d.Span.Start)
	end, endErr := start, error(nil)
	if !d.Span.IsEmpty() {
		last, err := a.Mapper.TranslateToOriginal(d.Span.End - 1)
		end, endErr = last+1, err
	}

	d.Span = position.NewSpan(start, end)
	out := diagnostic.Diagnostics{d}
	for _, err := range []error{startErr, endErr} {
		if hint, ok := diagnostic.From(err); ok {
			out = append(out, hint)
		}
	}
	return out
}
