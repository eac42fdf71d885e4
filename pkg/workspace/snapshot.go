package workspace

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sfc-typer/pkg/builder"
	"github.com/walteh/sfc-typer/pkg/macro"
	"github.com/walteh/sfc-typer/pkg/sfc"
	"github.com/walteh/sfc-typer/pkg/template"
)

// Snapshot is everything the artifact kinds share for one document version.
// It is never modified after Analyze returns, so kinds can be assembled from
// it concurrently.
type Snapshot struct {
	Source     string
	Descriptor *sfc.Descriptor
	Resolution *macro.Resolution
	// Emission is nil when the document has no template.
	Emission *template.Emission
}

// Analyze runs the shared front of the pipeline: segmenting, macro
// resolution and template transpilation.
func Analyze(ctx context.Context, text string, opts macro.Options) *Snapshot {
	log := zerolog.Ctx(ctx)
	start := time.Now()

	d := sfc.Segment(ctx, text)
	segmented := time.Now()

	res := macro.Resolve(ctx, macro.InputFor(d, opts))
	resolved := time.Now()

	s := &Snapshot{Source: text, Descriptor: d, Resolution: res}
	if tb := d.Template(); tb != nil {
		names := make([]string, 0, len(res.Bindings))
		for _, b := range res.Bindings {
			names = append(names, b.Name)
		}
		root, diags := template.Parse(ctx, text, tb.Content)
		s.Emission = template.Transpile(ctx, text, root, template.Context{Bindings: names, Prefix: res.Prefix})
		s.Emission.Diagnostics = append(s.Emission.Diagnostics, diags...)
	}

	log.Debug().
		Dur("segment", segmented.Sub(start)).
		Dur("resolve", resolved.Sub(segmented)).
		Dur("template", time.Since(resolved)).
		Int("blocks", len(d.Blocks)).
		Msg("analyzed document")

	return s
}

// Assemble builds one artifact kind from the snapshot.
func (s *Snapshot) Assemble(ctx context.Context, kind builder.Kind, opts builder.Options) (*builder.Artifact, error) {
	return builder.Assemble(ctx, builder.Input{
		Source:     s.Source,
		Descriptor: s.Descriptor,
		Resolution: s.Resolution,
		Generics:   s.Resolution.Generics,
		Emission:   s.Emission,
		Kind:       kind,
		Options:    opts,
	})
}
