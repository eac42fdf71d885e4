// Package builder assembles the generated artifacts of a component from its
// resolved script items and transpiled template.
//
// Every artifact is written through a mapping.Script, so the generated text and
// the record of where each piece came from are produced together.
package builder

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/macro"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"github.com/walteh/sfc-typer/pkg/sfc"
	"github.com/walteh/sfc-typer/pkg/template"
	"gitlab.com/tozd/go/errors"
)

type Kind string

const (
	// KindOptions is the component definition built from the script blocks.
	KindOptions Kind = "options"
	// KindRender type checks the template against the component instance.
	KindRender Kind = "render"
	// KindBundle holds only the declared props, emits and slots types.
	KindBundle Kind = "bundle"
)

// Kinds lists every artifact kind in generation order.
var Kinds = []Kind{KindOptions, KindRender, KindBundle}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown artifact kind %q", s)
}

const (
	DefaultRuntimeModule = "vue"
	DefaultOptionsModule = "./component.vue.options"
	DefaultIndent        = "\t"
)

type Options struct {
	// RuntimeModule provides defineComponent and the compile-time macros.
	RuntimeModule string
	// OptionsModule is the import specifier the render and bundle artifacts
	// use to reach the options artifact.
	OptionsModule string
	Indent        string
}

func (o Options) withDefaults() Options {
	if o.RuntimeModule == "" {
		o.RuntimeModule = DefaultRuntimeModule
	}
	if o.OptionsModule == "" {
		o.OptionsModule = DefaultOptionsModule
	}
	if o.Indent == "" {
		o.Indent = DefaultIndent
	}
	return o
}

type Input struct {
	Source     string
	Descriptor *sfc.Descriptor
	Resolution *macro.Resolution
	// Generics defaults to the resolution's generic parameters.
	Generics script.GenericParameters
	// Emission is the transpiled template, if the component has one.
	Emission *template.Emission
	Kind     Kind
	Options  Options
}

type Artifact struct {
	Kind        Kind
	Text        string
	Script      *mapping.Script
	Imports     []Import
	Diagnostics diagnostic.Diagnostics
}

// Assemble builds one artifact. Problems in the user's code are reported as
// diagnostics on the artifact; the only error is a *diagnostic.HostIntegrationError
// for generated text that is not well formed.
func Assemble(ctx context.Context, in Input) (*Artifact, error) {
	if in.Resolution == nil {
		return nil, errors.New("assemble: missing resolution")
	}
	if in.Generics == nil {
		in.Generics = in.Resolution.Generics
	}
	a := &assembler{
		in:     in,
		opts:   in.Options.withDefaults(),
		res:    in.Resolution,
		src:    in.Source,
		prefix: in.Resolution.Prefix,
		s:      mapping.NewScript(in.Source),
	}
	if a.prefix == "" {
		a.prefix = macro.DefaultPrefix
	}

	var diags diagnostic.Diagnostics
	if in.Descriptor != nil {
		diags = append(diags, in.Descriptor.Diagnostics...)
	}
	diags = append(diags, in.Resolution.Diagnostics...)
	switch in.Kind {
	case KindOptions:
		a.options()
	case KindRender:
		a.render()
		if in.Emission != nil {
			diags = append(diags, in.Emission.Diagnostics...)
		}
	case KindBundle:
		a.bundle()
	default:
		return nil, errors.Errorf("assemble: unknown artifact kind %q", in.Kind)
	}

	if err := Check(in.Kind, a.s); err != nil {
		return nil, err
	}

	art := &Artifact{
		Kind:        in.Kind,
		Text:        a.s.Text(),
		Script:      a.s,
		Imports:     a.imports.list,
		Diagnostics: diags.Sorted(),
	}

	zerolog.Ctx(ctx).Debug().
		Str("kind", string(in.Kind)).
		Int("bytes", len(art.Text)).
		Int("imports", len(art.Imports)).
		Int("diagnostics", len(art.Diagnostics)).
		Msg("assembled artifact")

	return art, nil
}

type assembler struct {
	in      Input
	opts    Options
	res     *macro.Resolution
	src     string
	prefix  string
	s       *mapping.Script
	imports importSet
}

func (a *assembler) name(n string) string { return a.prefix + n }

func (a *assembler) line(depth int, text string) {
	a.s.Insert(strings.Repeat(a.opts.Indent, depth) + text + "\n")
}

// typeParams writes the generic parameter list, copying it from the generic
// attribute when there is one.
func (a *assembler) typeParams() {
	if len(a.in.Generics) == 0 {
		return
	}
	if b := a.genericOwner(); b != nil && slices.Equal(a.in.Generics.Names(), a.res.Generics.Names()) {
		a.s.Insert("<")
		a.s.Copy(b.GenericSpan)
		a.s.Insert(">")
		return
	}
	a.s.Insert(a.in.Generics.Declaration())
}

func (a *assembler) typeArgs() string {
	return a.in.Generics.Arguments()
}

func (a *assembler) genericOwner() *sfc.Block {
	for _, s := range []*macro.Script{a.res.Setup(), a.res.Plain()} {
		if s != nil && s.Block.HasGeneric() {
			return s.Block
		}
	}
	return nil
}

// cut is a source range replaced while a statement is copied.
type cut struct {
	span position.Span
	text string
}

// copyWith copies span, writing each cut in place of the range it covers.
// Overlapping cuts after the first are ignored.
func (a *assembler) copyWith(span position.Span, cuts []cut) {
	sort.SliceStable(cuts, func(i, j int) bool { return cuts[i].span.Start < cuts[j].span.Start })
	at := span.Start
	for _, c := range cuts {
		if c.span.Start < at || c.span.End > span.End {
			continue
		}
		a.s.Copy(position.NewSpan(at, c.span.Start))
		a.s.Overwrite(c.span, c.text)
		at = c.span.End
	}
	a.s.Copy(position.NewSpan(at, span.End))
}

// terminate ends a copied statement, adding the semicolon it may lack.
func (a *assembler) terminate(span position.Span) {
	if !strings.HasSuffix(strings.TrimSpace(span.Text(a.src)), ";") {
		a.s.Insert(";")
	}
	a.s.Insert("\n")
}

// writeType writes an item's type, copying it when it came from the source.
func (a *assembler) writeType(it *macro.Item) {
	if it.HasTypeSpan {
		a.s.Copy(it.TypeSpan)
		return
	}
	a.s.Insert(it.Type)
}
