package builder

// contracts are the declared shapes the bundle re-exports, by instance member.
var contracts = []struct {
	name   string
	member string
}{
	{"Props", "$props"},
	{"Emits", "$emit"},
	{"Slots", "$slots"},
}

// bundle writes type declarations only:
//
//	type __sfc_Instance<T> = InstanceType<...>;
//	export type Props<T> = __sfc_Instance<T>["$props"];
//	declare const __sfc_component: new <T>() => __sfc_Instance<T>;
//	export default __sfc_component;
func (a *assembler) bundle() {
	a.optionsImport()
	inst := a.name("Instance")

	a.s.Insert("type " + inst)
	a.typeParams()
	a.s.Insert(" = " + a.instance() + ";\n\n")

	for _, c := range contracts {
		a.s.Insert("export type " + c.name)
		a.typeParams()
		a.s.Insert(" = " + inst + a.typeArgs() + "[\"" + c.member + "\"];\n")
	}
	a.s.Insert("\n")

	a.s.Insert("declare const " + a.name("component") + ": new ")
	a.typeParams()
	a.s.Insert("() => " + inst + a.typeArgs() + ";\n")
	a.line(0, "export default "+a.name("component")+";")
}
