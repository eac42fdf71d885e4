package macro

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

const (
	DefaultPrefix       = "__sfc_"
	DefaultFallbackType = "any"
	DefaultModelName    = "modelValue"
)

type Options struct {
	// Prefix starts every synthesized identifier.
	Prefix string
	// FallbackType replaces a declared type that cannot be located.
	FallbackType string
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.FallbackType == "" {
		o.FallbackType = DefaultFallbackType
	}
	return o
}

type Input struct {
	Source string
	// Scripts holds the normal script block and the setup block, either of
	// which may be missing.
	Scripts  []*sfc.Block
	Template *sfc.Block
	Generics script.GenericParameters
	Options  Options
}

// InputFor builds the resolver input for a segmented document. The generic
// parameters come from the setup block, or the normal script block when
// there is no setup block.
func InputFor(d *sfc.Descriptor, opts Options) Input {
	in := Input{Source: d.Source, Scripts: d.Scripts(), Template: d.Template(), Options: opts}
	owner := d.ScriptSetup()
	if owner == nil {
		owner = d.Script()
	}
	if owner != nil && owner.HasGeneric() {
		in.Generics = script.ParseGenerics(d.Source, owner.GenericSpan)
	}
	return in
}

// Script is one parsed script block. Body is the statement list that was
// searched for macros: the top level, or the body of the setup function.
type Script struct {
	Block           *sfc.Block
	Program         *script.Program
	Body            []*script.Statement
	InSetupFunction bool
}

type Resolution struct {
	Items       []*Item
	Bindings    []Binding
	Generics    script.GenericParameters
	Scripts     []*Script
	Diagnostics diagnostic.Diagnostics

	// Prefix is the reserved prefix actually used, extended past any user
	// identifier that already starts with the configured one.
	Prefix       string
	FallbackType string

	// HasAwait is set when the setup block awaits at its top level.
	HasAwait bool
}

// Setup returns the setup block's script, or nil.
func (r *Resolution) Setup() *Script {
	for _, s := range r.Scripts {
		if s.Block.Type == sfc.BlockScriptSetup {
			return s
		}
	}
	return nil
}

// Plain returns the normal script block's script, or nil.
func (r *Resolution) Plain() *Script {
	for _, s := range r.Scripts {
		if s.Block.Type == sfc.BlockScript {
			return s
		}
	}
	return nil
}

func (r *Resolution) ItemsOf(kind ItemKind) []*Item {
	var out []*Item
	for _, it := range r.Items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// ItemsFor returns the non-generated items that originate in st.
func (r *Resolution) ItemsFor(st *script.Statement) []*Item {
	var out []*Item
	for _, it := range r.Items {
		if !it.Generated && it.Statement == st {
			out = append(out, it)
		}
	}
	return out
}

// Resolve walks the script blocks and produces the ordered location items.
// It never fails; unexpected shapes are recorded as diagnostics and resolved
// with the fallback type.
func Resolve(ctx context.Context, in Input) *Resolution {
	opts := in.Options.withDefaults()
	r := &resolver{
		src:      in.Source,
		fallback: opts.FallbackType,
		counters: map[string]int{},
		res: &Resolution{
			Generics:     in.Generics,
			FallbackType: opts.FallbackType,
		},
	}

	for _, b := range in.Scripts {
		if b != nil {
			r.res.Scripts = append(r.res.Scripts, parseScript(in.Source, b))
		}
	}
	r.prefix = r.reservePrefix(opts.Prefix, in.Template, in.Generics)
	r.res.Prefix = r.prefix

	var entries []*entry
	for i := range in.Generics {
		g := &in.Generics[i]
		r.res.Items = append(r.res.Items, &Item{Kind: ItemGeneric, Span: g.Span, Name: g.Name, Generic: g})
	}
	for _, s := range r.res.Scripts {
		entries = append(entries, r.walk(s)...)
		r.collectBindings(s)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].item.Span.Start < entries[j].item.Span.Start
	})
	macros := 0
	for _, e := range entries {
		r.res.Items = append(r.res.Items, e.item)
		r.res.Items = append(r.res.Items, e.derived...)
		if e.item.Kind != ItemImport && e.item.Kind != ItemDeclaration && e.item.Kind != ItemExport {
			macros++
		}
	}
	if macros == 0 {
		r.res.Items = append(r.res.Items, &Item{Kind: ItemOptions, Generated: true, Runtime: "{}"})
	}
	if in.Template != nil {
		r.res.Items = append(r.res.Items, &Item{Kind: ItemTemplate, Span: in.Template.Span(), Block: in.Template})
	}

	if s := r.res.Setup(); s != nil {
		r.res.HasAwait = hasTopLevelAwait(s.Program.Statements)
	}

	zerolog.Ctx(ctx).Debug().
		Int("items", len(r.res.Items)).
		Int("bindings", len(r.res.Bindings)).
		Int("diagnostics", len(r.res.Diagnostics)).
		Str("prefix", r.prefix).
		Msg("resolved script blocks")

	return r.res
}

type resolver struct {
	src      string
	prefix   string
	fallback string
	counters map[string]int
	res      *Resolution
}

// entry is a source item and the generated items derived from it, which
// directly follow it in the final order.
type entry struct {
	item    *Item
	derived []*Item
}

func parseScript(src string, b *sfc.Block) *Script {
	prog := script.Parse(src, b.Content)
	s := &Script{Block: b, Program: prog, Body: prog.Statements}
	if b.Type == sfc.BlockScript {
		if body, ok := prog.SetupBody(); ok {
			s.Body = script.ParseStatements(src, body)
			s.InSetupFunction = true
		}
	}
	return s
}

func (r *resolver) walk(s *Script) []*entry {
	var out []*entry
	for _, st := range s.Program.Statements {
		switch st.Kind {
		case script.StatementImport:
			out = append(out, &entry{item: &Item{
				Kind: ItemImport, Span: st.Span, Block: s.Block, Statement: st,
				Import: st.Import, Bindings: st.Bindings(),
			}})
		case script.StatementExportDefault:
			it := &Item{Kind: ItemExport, Span: st.Span, Block: s.Block, Statement: st, Name: st.Name}
			if st.Expr != nil {
				it.Runtime, it.RuntimeSpan, it.HasRuntime = st.Expr.Text(r.src), st.Expr.Span, true
			}
			out = append(out, &entry{item: it})
		}
	}

	calls := r.findCalls(s)
	inMacro := map[*script.Declarator]bool{}
	for _, c := range calls {
		if c.decl != nil {
			inMacro[c.decl] = true
		}
	}
	if !s.InSetupFunction {
		for _, st := range s.Body {
			if it := declarationItem(s, st, inMacro); it != nil {
				out = append(out, &entry{item: it})
			}
		}
	} else {
		for _, st := range s.Program.Statements {
			if it := declarationItem(s, st, nil); it != nil {
				out = append(out, &entry{item: it})
			}
		}
	}

	return append(out, r.resolveCalls(s, calls)...)
}

func declarationItem(s *Script, st *script.Statement, inMacro map[*script.Declarator]bool) *Item {
	it := &Item{Kind: ItemDeclaration, Span: st.Span, Block: s.Block, Statement: st, Name: st.Name}
	switch st.Kind {
	case script.StatementVariable:
		plain := 0
		for _, d := range st.Variable.Declarators {
			if inMacro[d] {
				continue
			}
			plain++
			it.Bindings = append(it.Bindings, d.Bindings...)
		}
		if plain == 0 {
			return nil
		}
		if len(it.Bindings) > 0 {
			it.Name = it.Bindings[0].Name
		}
	case script.StatementFunction, script.StatementClass, script.StatementEnum, script.StatementType:
		it.Bindings = st.Bindings()
	default:
		return nil
	}
	return it
}

func (r *resolver) collectBindings(s *Script) {
	source := BindingScript
	if s.Block.Type == sfc.BlockScriptSetup {
		source = BindingSetup
	}
	seen := map[string]bool{}
	for _, b := range r.res.Bindings {
		seen[b.Name] = true
	}
	for _, st := range s.Program.Statements {
		from := source
		if st.Kind == script.StatementImport {
			from = BindingImport
		}
		for _, b := range st.Bindings() {
			if seen[b.Name] {
				continue
			}
			seen[b.Name] = true
			r.res.Bindings = append(r.res.Bindings, Binding{Name: b.Name, Span: b.Span, Source: from})
		}
	}
}

func (r *resolver) synthetic(kind string) string {
	n := r.counters[kind]
	r.counters[kind] = n + 1
	return r.prefix + kind + "_" + strconv.Itoa(n)
}

func (r *resolver) report(macro string, span position.Span, reason string, fallback bool) {
	err := &diagnostic.MacroResolutionError{Macro: macro, Span: span, Reason: reason}
	if fallback {
		err.Fallback = r.fallback
	}
	r.res.Diagnostics = append(r.res.Diagnostics, err.Diagnostic())
}

// hasTopLevelAwait reports an `await` outside every nested function body.
func hasTopLevelAwait(stmts []*script.Statement) bool {
	for _, st := range stmts {
		ts := st.Tokens
		for i := 0; i < len(ts); i++ {
			t := ts[i]
			switch {
			case t.IsIdent("await"):
				return true
			case t.IsPunct("=>"):
				i = skipArrowBody(ts, i+1)
			case t.IsIdent("function"):
				for j := i + 1; j < len(ts); j++ {
					if ts[j].IsPunct("{") {
						if m := ts.Match(j); m > 0 {
							i = m
						} else {
							i = len(ts)
						}
						break
					}
				}
			}
		}
	}
	return false
}

// skipArrowBody returns the index of the last token of the arrow body that
// starts at i.
func skipArrowBody(ts script.Tokens, i int) int {
	if i >= len(ts) {
		return i
	}
	if ts[i].IsPunct("{") {
		if m := ts.Match(i); m > 0 {
			return m
		}
		return len(ts)
	}
	depth := 0
	for j := i; j < len(ts); j++ {
		switch {
		case ts[j].IsPunct("(") || ts[j].IsPunct("[") || ts[j].IsPunct("{"):
			depth++
		case ts[j].IsPunct(")") || ts[j].IsPunct("]") || ts[j].IsPunct("}"):
			if depth == 0 {
				return j - 1
			}
			depth--
		case depth == 0 && ts[j].IsPunct(","):
			return j - 1
		}
	}
	return len(ts)
}
