package builder

// render writes the template check. The context object has the type of a
// component instance, so every binding the template reads is checked
// against what the options artifact exposes.
//
//	import type { __sfc_setup } from "./Comp.vue.options";
//	declare function __sfc_element(...): unknown;
//	function __sfc_context<T>() { return {} as unknown as InstanceType<...>; }
//	export function __sfc_render<T>() {
//		const __sfc_ctx = __sfc_context<T>();
//		return [...];
//	}
func (a *assembler) render() {
	a.optionsImport()
	p := a.prefix

	a.line(0, "declare function "+p+"renderList<T, R>(source: Iterable<T> | ArrayLike<T> | Record<string, T> | number, fn: (value: T, key: any, index: number) => R): R[];")
	a.line(0, "declare function "+p+"element(tag: string, props: Record<string, unknown>, children: unknown[]): unknown;")
	a.line(0, "declare function "+p+"component<C>(component: C, props: Record<string, unknown>, children: unknown[]): unknown;")
	a.line(0, "declare function "+p+"slot<F extends (...args: any[]) => unknown>(name: string, fn: F): F;")
	a.line(0, "declare function "+p+"renderSlot(name: string, props: Record<string, unknown>, fallback: unknown[]): unknown;")
	a.s.Insert("\n")

	a.s.Insert("function " + p + "context")
	a.typeParams()
	a.s.Insert("() {\n")
	a.line(1, "return {} as unknown as "+a.instance()+";")
	a.s.Insert("}\n\n")

	a.s.Insert("export function " + p + "render")
	a.typeParams()
	a.s.Insert("() {\n")
	em := a.in.Emission
	if em == nil {
		a.line(1, "return [];")
		a.s.Insert("}\n")
		return
	}
	a.line(1, "const "+em.Context()+" = "+p+"context"+a.typeArgs()+"();")
	a.s.Insert(a.opts.Indent + "return ")
	em.Write(a.s)
	a.s.Insert(";\n}\n")
}

// optionsImport writes the type-only import of the options artifact's setup
// function.
func (a *assembler) optionsImport() {
	im := Import{Source: a.opts.OptionsModule, Imported: a.name("setup"), TypeOnly: true}
	a.imports.add(im)
	for _, line := range statements([]Import{im}) {
		a.line(0, line)
	}
	a.s.Insert("\n")
}

func (a *assembler) instance() string {
	return "InstanceType<Awaited<ReturnType<typeof " + a.name("setup") + a.typeArgs() + ">>>"
}
