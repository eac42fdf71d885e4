package builder

import (
	"strconv"
	"strings"

	"github.com/walteh/sfc-typer/pkg/macro"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
)

// options writes the component definition:
//
//	import { defineComponent as __sfc_defineComponent } from "vue";
//	<user imports>
//	<normal script; its default export kept as __sfc_export>
//	function __sfc_setup<T>() {
//		<setup block>
//		return __sfc_defineComponent({ ...__sfc_export, props: {...}, emits: {...}, setup() {...} });
//	}
//	const __sfc_component = {} as unknown as ...;
//	export default __sfc_component;
//	export { __sfc_setup };
func (a *assembler) options() {
	users := a.userImports()
	a.runtimeImports()
	for _, u := range users {
		if !u.keep {
			a.s.Remove(u.st.Span)
			continue
		}
		a.s.Copy(u.st.Span)
		a.terminate(u.st.Span)
	}
	a.s.Insert("\n")

	a.helpers()
	exported := a.plainBody()
	a.setupFunction(exported)
	a.componentExport()
}

type userImport struct {
	st   *script.Statement
	keep bool
}

// userImports registers the import statements of both blocks. A statement
// that adds no import not already seen is dropped.
func (a *assembler) userImports() []userImport {
	var out []userImport
	for _, sc := range a.res.Scripts {
		for _, st := range sc.Program.Statements {
			if st.Kind != script.StatementImport || st.Import == nil {
				continue
			}
			fresh := false
			if len(st.Import.Specifiers) == 0 {
				fresh = a.imports.add(Import{Source: st.Import.Source})
			}
			for _, spec := range st.Import.Specifiers {
				if a.imports.add(importOf(st.Import, spec)) {
					fresh = true
				}
			}
			out = append(out, userImport{st: st, keep: fresh})
		}
	}
	return out
}

// runtimeImports writes the imports the generated code needs from the
// runtime module: defineComponent, helper types and every macro the scripts
// call without declaring it themselves.
func (a *assembler) runtimeImports() {
	rt := a.opts.RuntimeModule
	need := []Import{{Source: rt, Imported: "defineComponent", Alias: a.name("defineComponent")}}
	if a.declares(macro.ItemProps) || len(a.res.ItemsOf(macro.ItemModel)) > 0 {
		need = append(need, Import{Source: rt, Imported: "PropType", Alias: a.name("PropType"), TypeOnly: true})
	}
	if a.declares(macro.ItemSlots) {
		need = append(need, Import{Source: rt, Imported: "SlotsType", Alias: a.name("SlotsType"), TypeOnly: true})
	}

	bound := map[string]bool{}
	for _, b := range a.res.Bindings {
		bound[b.Name] = true
	}
	for _, sc := range a.res.Scripts {
		toks := sc.Program.Tokens
		for i, t := range toks {
			if t.Kind != script.Ident || !macro.IsMacro(t.Text) || bound[t.Text] {
				continue
			}
			if i > 0 && (toks[i-1].IsPunct(".") || toks[i-1].IsPunct("?.")) {
				continue
			}
			need = append(need, Import{Source: rt, Imported: t.Text})
		}
	}

	var fresh []Import
	for _, im := range need {
		if a.imports.add(im) {
			fresh = append(fresh, im)
		}
	}
	for _, line := range statements(fresh) {
		a.line(0, line)
	}
}

// declares reports a non-generated item of kind.
func (a *assembler) declares(kind macro.ItemKind) bool {
	for _, it := range a.res.ItemsOf(kind) {
		if !it.Generated {
			return true
		}
	}
	return false
}

func (a *assembler) helpers() {
	p := a.prefix
	n := 0
	if a.declares(macro.ItemProps) {
		a.line(0, "type "+p+"Props<T> = { [K in keyof T]-?: {} extends Pick<T, K> ? { type: "+p+"PropType<Exclude<T[K], undefined>>, required?: false } : { type: "+p+"PropType<T[K]>, required: true } };")
		n++
	}
	if a.declares(macro.ItemEmits) {
		a.line(0, "type "+p+"Emits<T> = T extends readonly string[] ? { [K in T[number]]: (...args: any[]) => any } : T extends (...args: any[]) => any ? Record<Parameters<T>[0] & string, (...args: any[]) => any> : { [K in keyof T]: T[K] extends any[] ? (...args: T[K]) => any : T[K] };")
		n++
	}
	for _, it := range a.res.ItemsOf(macro.ItemModel) {
		if it.Synthetic != "" {
			a.line(0, "type "+p+"ModelValue<M> = M extends { value: infer V } ? V : any;")
			n++
			break
		}
	}
	if n > 0 {
		a.s.Insert("\n")
	}
}

// plainBody copies the normal script block and reports whether its default
// export was kept for spreading into the options.
func (a *assembler) plainBody() bool {
	p := a.res.Plain()
	if p == nil {
		return false
	}
	exported, n := false, 0
	for _, st := range p.Program.Statements {
		switch {
		case st.Kind == script.StatementImport:
			continue
		case st.Kind == script.StatementExportDefault && st.Expr != nil:
			a.s.Overwrite(position.NewSpan(st.Span.Start, st.Expr.Span.Start), "const "+a.name("export")+" = ")
			a.s.Copy(position.NewSpan(st.Expr.Span.Start, st.Span.End))
			exported = true
		default:
			a.s.Copy(st.Span)
		}
		a.terminate(st.Span)
		n++
	}
	if n > 0 {
		a.s.Insert("\n")
	}
	return exported
}

func (a *assembler) setupFunction(exported bool) {
	if a.res.HasAwait {
		a.s.Insert("async ")
	}
	a.s.Insert("function " + a.name("setup"))
	a.typeParams()
	a.s.Insert("() {\n")
	if sc := a.res.Setup(); sc != nil {
		for _, st := range sc.Program.Statements {
			if st.Kind != script.StatementImport {
				a.setupStatement(st)
			}
		}
	}
	a.s.Insert(a.opts.Indent + "return " + a.name("defineComponent") + "(")
	a.componentOptions(exported)
	a.s.Insert(");\n}\n\n")
}

// setupStatement copies one statement of the setup block. Macro calls whose
// type is recovered by reference are first stored in their synthetic
// variable, and defineOptions calls move into the component options.
func (a *assembler) setupStatement(st *script.Statement) {
	var cuts []cut
	if st.Exported && len(st.Tokens) > 0 && st.Tokens[0].IsIdent("export") {
		cuts = append(cuts, cut{span: st.Tokens[0].Span})
	}
	assign := ""
	for _, it := range a.res.ItemsFor(st) {
		switch it.Kind {
		case macro.ItemOptions:
			if st.Kind == script.StatementExpression {
				a.s.Remove(st.Span)
				return
			}
		case macro.ItemExpose:
			if it.Synthetic != "" {
				a.declare(it.Synthetic, it.RuntimeSpan)
				cuts = append(cuts, cut{span: it.RuntimeSpan, text: it.Synthetic})
			}
		case macro.ItemProps, macro.ItemEmits, macro.ItemModel:
			switch {
			case it.Synthetic == "":
			case st.Kind == script.StatementExpression:
				assign = it.Synthetic
			default:
				a.declare(it.Synthetic, it.Call.Span)
				cuts = append(cuts, cut{span: it.Call.Span, text: it.Synthetic})
			}
		}
	}

	a.s.Insert(a.opts.Indent)
	if assign != "" {
		a.s.Insert("const " + assign + " = ")
	}
	a.copyWith(st.Span, cuts)
	a.terminate(st.Span)
}

func (a *assembler) declare(name string, span position.Span) {
	a.s.Insert(a.opts.Indent + "const " + name + " = ")
	a.s.Copy(span)
	a.s.Insert(";\n")
}

// componentOptions writes the object passed to defineComponent. Model props
// and update events are merged next to the explicit declarations.
func (a *assembler) componentOptions(exported bool) {
	var fields []func()
	if exported {
		fields = append(fields, func() { a.s.Insert("..." + a.name("export")) })
	}
	for _, it := range a.res.ItemsOf(macro.ItemOptions) {
		if it.Generated || !it.HasRuntime {
			continue
		}
		fields = append(fields, func() {
			a.s.Insert("...(")
			a.s.Copy(it.RuntimeSpan)
			a.s.Insert(")")
		})
	}
	if f := a.entries(macro.ItemProps, "props", a.propEntry); f != nil {
		fields = append(fields, f)
	}
	if f := a.entries(macro.ItemEmits, "emits", a.emitEntry); f != nil {
		fields = append(fields, f)
	}
	for _, it := range a.res.ItemsOf(macro.ItemSlots) {
		fields = append(fields, func() {
			a.s.Insert("slots: {} as " + a.name("SlotsType") + "<")
			a.writeType(it)
			a.s.Insert(">")
		})
		break
	}
	if a.res.Setup() != nil {
		fields = append(fields, a.setupOption)
	}

	if len(fields) == 0 {
		a.s.Insert("{}")
		return
	}
	in1, in2 := a.opts.Indent, strings.Repeat(a.opts.Indent, 2)
	a.s.Insert("{\n")
	for _, f := range fields {
		a.s.Insert(in2)
		f()
		a.s.Insert(",\n")
	}
	a.s.Insert(in1 + "}")
}

func (a *assembler) entries(kind macro.ItemKind, key string, entry func(*macro.Item)) func() {
	items := a.res.ItemsOf(kind)
	if len(items) == 0 {
		return nil
	}
	return func() {
		a.s.Insert(key + ": {")
		for i, it := range items {
			if i > 0 {
				a.s.Insert(", ")
			}
			entry(it)
		}
		a.s.Insert("}")
	}
}

func (a *assembler) propEntry(it *macro.Item) {
	if !it.Generated {
		a.s.Insert("...({} as " + a.name("Props") + "<")
		a.writeType(it)
		a.s.Insert(">)")
		return
	}
	a.s.Insert(strconv.Quote(it.Name) + ": { type: null as unknown as " + a.name("PropType") + "<")
	a.writeType(it)
	a.s.Insertf(">, required: %t }", it.Required)
}

func (a *assembler) emitEntry(it *macro.Item) {
	if !it.Generated {
		a.s.Insert("...({} as " + a.name("Emits") + "<")
		a.writeType(it)
		a.s.Insert(">)")
		return
	}
	a.s.Insert(strconv.Quote(it.Name) + ": (value: ")
	a.writeType(it)
	a.s.Insert(") => true")
}

// setupOption returns every binding of the scripts to the template.
func (a *assembler) setupOption() {
	names := make([]string, 0, len(a.res.Bindings))
	for _, b := range a.res.Bindings {
		names = append(names, b.Name)
	}
	in2, in3 := strings.Repeat(a.opts.Indent, 2), strings.Repeat(a.opts.Indent, 3)
	ret := "return {};"
	if len(names) > 0 {
		ret = "return { " + strings.Join(names, ", ") + " };"
	}
	a.s.Insert("setup() {\n" + in3 + ret + "\n" + in2 + "}")
}

// componentExport declares the default export. With generic parameters it
// is a generic constructor so each use site binds its own arguments.
func (a *assembler) componentExport() {
	instance := "Awaited<ReturnType<typeof " + a.name("setup") + a.typeArgs() + ">>"
	a.s.Insert("const " + a.name("component") + " = {} as unknown as ")
	if len(a.in.Generics) > 0 {
		a.s.Insert("new ")
		a.typeParams()
		a.s.Insert("() => InstanceType<" + instance + ">")
	} else {
		a.s.Insert(instance)
	}
	a.s.Insert(";\n")
	a.line(0, "export default "+a.name("component")+";")
	a.line(0, "export { "+a.name("setup")+" };")
}
