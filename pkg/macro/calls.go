package macro

import (
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

const (
	DefineProps   = "defineProps"
	DefineEmits   = "defineEmits"
	DefineSlots   = "defineSlots"
	DefineModel   = "defineModel"
	DefineExpose  = "defineExpose"
	DefineOptions = "defineOptions"
	WithDefaults  = "withDefaults"
)

var macroKinds = map[string]ItemKind{
	DefineProps:   ItemProps,
	DefineEmits:   ItemEmits,
	DefineSlots:   ItemSlots,
	DefineModel:   ItemModel,
	DefineExpose:  ItemExpose,
	DefineOptions: ItemOptions,
}

// IsMacro reports whether name is a recognized compile-time declaration.
func IsMacro(name string) bool {
	_, ok := macroKinds[name]
	return ok || name == WithDefaults
}

// call is one recognized macro invocation.
type call struct {
	macro string
	st    *script.Statement
	decl  *script.Declarator
	call  *script.Call
	// outer is the withDefaults call wrapping a defineProps call.
	outer *script.Call
}

func (c *call) span() position.Span {
	if c.outer != nil {
		return c.outer.Span
	}
	return c.call.Span
}

// findCalls collects macro calls in s.Body. Calls made as expression
// statements come first, then variable initializers, each group in source
// order. Resolution walks this list and keeps the first call per macro.
func (r *resolver) findCalls(s *Script) []*call {
	var exprs, inits []*call
	for _, st := range s.Body {
		switch st.Kind {
		case script.StatementExpression:
			if c := r.asMacro(st.Expr); c != nil {
				c.st = st
				exprs = append(exprs, c)
			}
		case script.StatementVariable:
			for _, d := range st.Variable.Declarators {
				if c := r.asMacro(d.Init); c != nil {
					c.st, c.decl = st, d
					inits = append(inits, c)
				}
			}
		}
	}
	return append(exprs, inits...)
}

func (r *resolver) asMacro(e *script.Expr) *call {
	if e == nil || e.Kind != script.ExprCall {
		return nil
	}
	c := e.Call
	if c.Callee == WithDefaults {
		if len(c.Args) == 0 || c.Args[0].Kind != script.ExprCall || c.Args[0].Call.Callee != DefineProps {
			r.report(WithDefaults, c.Span, "expects a defineProps call as its first argument", false)
			return nil
		}
		return &call{macro: DefineProps, call: c.Args[0].Call, outer: c}
	}
	if _, ok := macroKinds[c.Callee]; !ok {
		return nil
	}
	return &call{macro: c.Callee, call: c}
}

func (r *resolver) resolveCalls(s *Script, calls []*call) []*entry {
	var out []*entry
	first := map[string]*call{}
	models := map[string]*call{}
	for _, c := range calls {
		if c.macro != DefineModel {
			if prev, ok := first[c.macro]; ok {
				r.report(c.macro, c.span(), "is called more than once; only the call at "+prev.span().String()+" is used", false)
				continue
			}
			first[c.macro] = c
		}

		e := r.resolveCall(s, c)
		if e == nil {
			continue
		}
		if c.macro == DefineModel {
			if prev, ok := models[e.item.Name]; ok {
				r.report(c.macro, c.span(), "declares model "+e.item.Name+" again; only the call at "+prev.span().String()+" is used", false)
				continue
			}
			models[e.item.Name] = c
		}
		out = append(out, e)
	}
	return out
}

func (r *resolver) resolveCall(s *Script, c *call) *entry {
	it := &Item{
		Kind:      macroKinds[c.macro],
		Span:      c.span(),
		Block:     s.Block,
		Statement: c.st,
		Call:      c.call,
	}
	if c.decl != nil && c.decl.ID != "" {
		it.Local, it.LocalSpan = c.decl.ID, c.decl.IDSpan
	}
	e := &entry{item: it}

	switch c.macro {
	case DefineProps:
		r.declaredType(s, it, c.macro, "props", true)
		if c.outer != nil && len(c.outer.Args) > 1 {
			d := c.outer.Args[1]
			it.Defaults, it.DefaultsSpan = d.Text(r.src), d.Span
		}
	case DefineEmits:
		r.declaredType(s, it, c.macro, "emits", true)
	case DefineSlots:
		r.slots(it)
	case DefineModel:
		r.model(s, it, e)
	case DefineExpose:
		if len(c.call.Args) > 0 {
			r.runtime(s, it, c.call.Args[0], "expose")
		}
	case DefineOptions:
		if len(c.call.Args) > 0 {
			arg := c.call.Args[0]
			it.Runtime, it.RuntimeSpan, it.HasRuntime = arg.Text(r.src), arg.Span, true
		}
		if c.call.HasTypeArgs {
			r.report(c.macro, c.call.TypeArgsSpan, "does not take type arguments", false)
		}
	}
	return e
}

// declaredType sets the item type from the call's type argument, or from its
// runtime argument through a synthetic variable. strictArgs rejects a runtime
// argument next to a type argument.
func (r *resolver) declaredType(s *Script, it *Item, macro, kind string, strictArgs bool) {
	c := it.Call
	if c.Unterminated {
		r.report(macro, c.Span, "argument list is never closed", false)
	}
	switch {
	case c.Malformed:
		r.report(macro, c.TypeArgsSpan, "type argument list is never closed", true)
		it.Type = r.fallback
	case c.HasTypeArgs && len(c.TypeArgs) == 0:
		r.report(macro, c.TypeArgsSpan, "has an empty type argument list", true)
		it.Type = r.fallback
	case c.HasTypeArgs:
		r.verbatim(it, c.TypeArgs[0])
		if strictArgs && len(c.Args) > 0 {
			r.report(macro, c.Args[0].Span, "cannot combine a type argument with a runtime declaration; the runtime declaration is ignored", false)
		}
	case len(c.Args) > 0:
		r.runtime(s, it, c.Args[0], kind)
	default:
		it.Type = "{}"
	}
}

func (r *resolver) verbatim(it *Item, span position.Span) {
	it.Type, it.TypeSpan, it.HasTypeSpan = span.Text(r.src), span, true
}

// runtime records arg as the item's runtime declaration. Inside a setup block
// the original call is kept in a synthetic variable whose type is referenced
// with typeof; elsewhere there is no statement to attach it to and the
// fallback type is used.
func (r *resolver) runtime(s *Script, it *Item, arg *script.Expr, kind string) {
	it.Runtime, it.RuntimeSpan, it.HasRuntime = arg.Text(r.src), arg.Span, true
	if s.Block.Type != sfc.BlockScriptSetup {
		it.Type = r.fallback
		return
	}
	it.Synthetic = r.synthetic(kind)
	it.Type = "typeof " + it.Synthetic
}

func (r *resolver) slots(it *Item) {
	c := it.Call
	switch {
	case c.Malformed:
		r.report(DefineSlots, c.TypeArgsSpan, "type argument list is never closed", true)
		it.Type = r.fallback
	case !c.HasTypeArgs || len(c.TypeArgs) == 0:
		r.report(DefineSlots, c.Span, "is missing its type argument", true)
		it.Type = r.fallback
	default:
		r.verbatim(it, c.TypeArgs[0])
	}
	if len(c.Args) > 0 {
		r.report(DefineSlots, c.Args[0].Span, "does not take runtime arguments", false)
	}
}

// model resolves defineModel and adds the prop and update event it implies.
func (r *resolver) model(s *Script, it *Item, e *entry) {
	c := it.Call
	args := c.Args
	it.Name = DefaultModelName
	if len(args) > 0 && args[0].Kind == script.ExprString {
		it.Name = args[0].Tokens[0].StringValue()
		args = args[1:]
	}
	var opts *script.Expr
	if len(args) > 0 {
		opts = args[0]
		it.Runtime, it.RuntimeSpan, it.HasRuntime = opts.Text(r.src), opts.Span, true
	}
	if c.Unterminated {
		r.report(DefineModel, c.Span, "argument list is never closed", false)
	}

	switch {
	case c.Malformed:
		r.report(DefineModel, c.TypeArgsSpan, "type argument list is never closed", true)
		it.Type = r.fallback
	case c.HasTypeArgs && len(c.TypeArgs) > 0:
		r.verbatim(it, c.TypeArgs[0])
	case opts != nil && s.Block.Type == sfc.BlockScriptSetup:
		it.Synthetic = r.synthetic("model")
		it.Type = r.prefix + "ModelValue<typeof " + it.Synthetic + ">"
	default:
		it.Type = r.fallback
	}

	if opts != nil && opts.Object != nil {
		if p := opts.Object.Get("required"); p != nil && p.Value != nil && p.Value.Text(r.src) == "true" {
			it.Required = true
		}
	}

	e.derived = append(e.derived,
		&Item{
			Kind: ItemProps, Span: it.Span, Generated: true, Block: it.Block, Statement: it.Statement,
			Name: it.Name, Type: it.Type, TypeSpan: it.TypeSpan, HasTypeSpan: it.HasTypeSpan, Required: it.Required,
		},
		&Item{
			Kind: ItemEmits, Span: it.Span, Generated: true, Block: it.Block, Statement: it.Statement,
			Name: "update:" + it.Name, Type: it.Type, TypeSpan: it.TypeSpan, HasTypeSpan: it.HasTypeSpan,
		},
	)
}
