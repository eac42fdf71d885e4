package script_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
)

func whole(src string) position.Span {
	return position.NewSpan(0, len(src))
}

func texts(toks []script.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Text
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		want  []string
		kinds map[int]script.Kind
	}{
		{
			name: "regex after assignment",
			src:  `const re = /a\/b/g; x = a / b`,
			want: []string{"const", "re", "=", `/a\/b/g`, ";", "x", "=", "a", "/", "b"},
			kinds: map[int]script.Kind{
				3: script.Regex,
				8: script.Punct,
			},
		},
		{
			name: "template literal with nested braces",
			src:  "`a${ {b: 1}.b }c`",
			want: []string{"`", "a", "${", "{", "b", ":", "1", "}", ".", "b", "}", "c", "`"},
			kinds: map[int]script.Kind{
				0:  script.TemplateOpen,
				2:  script.TemplateExprOpen,
				3:  script.Punct,
				10: script.TemplateExprClose,
				12: script.TemplateClose,
			},
		},
		{
			name: "comments are dropped",
			src:  "a // note\n/* block */ b",
			want: []string{"a", "b"},
		},
		{
			name: "strings and numbers",
			src:  `x('it\'s', "q", 1.5e3, 0xff)`,
			want: []string{"x", "(", `'it\'s'`, ",", `"q"`, ",", "1.5e3", ",", "0xff", ")"},
			kinds: map[int]script.Kind{
				2: script.String,
				6: script.Number,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := script.Tokenize(tt.src, whole(tt.src))
			require.Equal(t, tt.want, texts(toks))
			for i, k := range tt.kinds {
				assert.Equal(t, k, toks[i].Kind, "token %d (%q)", i, toks[i].Text)
			}
			for _, tok := range toks {
				assert.Equal(t, tok.Text, tok.Span.Text(tt.src))
			}
		})
	}
}

func TestTokenizeNewlineBefore(t *testing.T) {
	src := "a\n  b c"
	toks := script.Tokenize(src, whole(src))
	require.Len(t, toks, 3)
	assert.False(t, toks[0].NewlineBefore)
	assert.True(t, toks[1].NewlineBefore)
	assert.False(t, toks[2].NewlineBefore)
}

func TestTokenizeRespectsSpan(t *testing.T) {
	src := "<script>const a = 1</script>"
	toks := script.Tokenize(src, position.NewSpan(8, 19))
	require.Equal(t, []string{"const", "a", "=", "1"}, texts(toks))
	assert.Equal(t, 8, toks[0].Span.Start)
}

func TestStringValue(t *testing.T) {
	src := `'a\'b' "c\"d" 'plain'`
	toks := script.Tokenize(src, whole(src))
	require.Len(t, toks, 3)
	assert.Equal(t, "a'b", toks[0].StringValue())
	assert.Equal(t, `c"d`, toks[1].StringValue())
	assert.Equal(t, "plain", toks[2].StringValue())
}

func TestStatements(t *testing.T) {
	src := `import { ref, type Ref } from 'vue'
import Foo from './Foo.vue'
const props = defineProps<{ foo: string }>()
const emit = defineEmits(['change'])
function inc() { count.value++ }
type Props = Record<string, number>
defineExpose({ inc })
`
	prog := script.Parse(src, whole(src))
	kinds := make([]script.StatementKind, len(prog.Statements))
	for i, st := range prog.Statements {
		kinds[i] = st.Kind
	}
	assert.Equal(t, []script.StatementKind{
		script.StatementImport,
		script.StatementImport,
		script.StatementVariable,
		script.StatementVariable,
		script.StatementFunction,
		script.StatementType,
		script.StatementExpression,
	}, kinds)

	assert.Equal(t, "inc", prog.Statements[4].Name)
	assert.Equal(t, "Props", prog.Statements[5].Name)

	decl := prog.Statements[2].Variable.Declarators[0]
	assert.Equal(t, "props", decl.ID)
	require.NotNil(t, decl.Init)
	require.Equal(t, script.ExprCall, decl.Init.Kind)
	call := decl.Init.Call
	assert.Equal(t, "defineProps", call.Callee)
	assert.True(t, call.HasTypeArgs)
	assert.Equal(t, "{ foo: string }", call.TypeArgsSpan.Text(src))
	assert.Empty(t, call.Args)

	expose := prog.Statements[6].Expr
	require.Equal(t, script.ExprCall, expose.Kind)
	require.Len(t, expose.Call.Args, 1)
	require.Equal(t, script.ExprObject, expose.Call.Args[0].Kind)
	assert.True(t, expose.Call.Args[0].Object.Properties[0].Shorthand)
}

func TestStatementSplitting(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "asi with continuation line",
			src:  "const a = 1\nconst b = a\n  + 2\nfoo()\n",
			want: []string{"const a = 1", "const b = a\n  + 2", "foo()"},
		},
		{
			name: "semicolons",
			src:  "a(); b();;c()",
			want: []string{"a();", "b();", "c()"},
		},
		{
			name: "multi-line object",
			src:  "const o = {\n  a: 1,\n  b: 2\n}\nx()",
			want: []string{"const o = {\n  a: 1,\n  b: 2\n}", "x()"},
		},
		{
			name: "if header continues onto next line",
			src:  "if (ok)\n  run()\nnext()",
			want: []string{"if (ok)\n  run()", "next()"},
		},
		{
			name: "as const ends the statement",
			src:  "const xs = [1] as const\nconst y = 2",
			want: []string{"const xs = [1] as const", "const y = 2"},
		},
		{
			name: "union type across lines",
			src:  "type A =\n  | 'a'\n  | 'b'\nlet z = 1",
			want: []string{"type A =\n  | 'a'\n  | 'b'", "let z = 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := script.Parse(tt.src, whole(tt.src))
			got := make([]string, len(prog.Statements))
			for i, st := range prog.Statements {
				got[i] = st.Span.Text(tt.src)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImports(t *testing.T) {
	src := "import Foo, { a as b, type C } from './x'\nimport type { D } from 'y'\nimport * as ns from 'z'\nimport 'side'"
	prog := script.Parse(src, whole(src))
	require.Len(t, prog.Statements, 4)

	first := prog.Statements[0].Import
	assert.Equal(t, "./x", first.Source)
	require.Len(t, first.Specifiers, 3)
	assert.Equal(t, script.ImportSpecifier{Imported: "default", Local: "Foo", LocalSpan: first.Specifiers[0].LocalSpan, Span: first.Specifiers[0].Span}, first.Specifiers[0])
	assert.Equal(t, "a", first.Specifiers[1].Imported)
	assert.Equal(t, "b", first.Specifiers[1].Local)
	assert.True(t, first.Specifiers[2].TypeOnly)

	names := []string{}
	for _, b := range prog.Statements[0].Bindings() {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"Foo", "b"}, names)

	second := prog.Statements[1].Import
	assert.True(t, second.TypeOnly)
	assert.Empty(t, prog.Statements[1].Bindings())

	ns := prog.Statements[2].Import.Specifiers[0]
	assert.Equal(t, "*", ns.Imported)
	assert.Equal(t, "ns", ns.Local)

	assert.True(t, prog.Statements[3].Import.SideEffect)
	assert.Equal(t, "side", prog.Statements[3].Import.Source)
}

func TestDestructuringBindings(t *testing.T) {
	src := "const { a, b: { c }, ...rest } = obj, [x, , y = 2] = arr"
	prog := script.Parse(src, whole(src))
	require.Len(t, prog.Statements, 1)
	var names []string
	for _, b := range prog.Statements[0].Bindings() {
		names = append(names, b.Name)
		assert.Equal(t, b.Name, b.Span.Text(src))
	}
	assert.Equal(t, []string{"a", "c", "rest", "x", "y"}, names)
}

func TestGenericCallInitializerIsOneDeclarator(t *testing.T) {
	src := "const m = useMap<string, number>(), n: Map<K, V> = new Map()"
	prog := script.Parse(src, whole(src))
	require.Len(t, prog.Statements, 1)
	decls := prog.Statements[0].Variable.Declarators
	require.Len(t, decls, 2)
	assert.Equal(t, "useMap", decls[0].Init.Call.Callee)
	assert.Len(t, decls[0].Init.Call.TypeArgs, 2)
	assert.True(t, decls[1].HasType)
	assert.Equal(t, "Map<K, V>", decls[1].Type.Text(src))
}

func TestSetupBody(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		wantOK bool
		want   []script.StatementKind
	}{
		{
			name: "method in defineComponent",
			src: `export default defineComponent({
  props: { a: String },
  setup(props) {
    const x = ref(1)
    return { x }
  }
})`,
			wantOK: true,
			want:   []script.StatementKind{script.StatementVariable, script.StatementOther},
		},
		{
			name:   "arrow setup in plain object",
			src:    "export default { setup: () => { defineExpose({}) } }",
			wantOK: true,
			want:   []script.StatementKind{script.StatementExpression},
		},
		{
			name:   "no setup",
			src:    "export default { name: 'x' }",
			wantOK: false,
		},
		{
			name:   "other call",
			src:    "export default wrap({ setup() {} })",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := script.Parse(tt.src, whole(tt.src))
			body, ok := prog.SetupBody()
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			stmts := script.ParseStatements(tt.src, body)
			got := make([]script.StatementKind, len(stmts))
			for i, st := range stmts {
				got[i] = st.Kind
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMalformedCalls(t *testing.T) {
	src := "defineSlots<{ a: string }()"
	prog := script.Parse(src, whole(src))
	require.Len(t, prog.Statements, 1)
	expr := prog.Statements[0].Expr
	require.Equal(t, script.ExprCall, expr.Kind)
	assert.True(t, expr.Call.Malformed)
	assert.False(t, expr.Call.HasTypeArgs)

	src = "defineEmits(['a'"
	prog = script.Parse(src, whole(src))
	require.Len(t, prog.Statements, 1)
	call := prog.Statements[0].Expr.Call
	require.NotNil(t, call)
	assert.True(t, call.Unterminated)
}

func TestParseGenerics(t *testing.T) {
	src := "T extends string, const U = number, in out V, W extends Record<string, T> = {}"
	gens := script.ParseGenerics(src, whole(src))
	require.Len(t, gens, 4)
	assert.Equal(t, "T", gens[0].Name)
	assert.Equal(t, "string", gens[0].Constraint)
	assert.Equal(t, "U", gens[1].Name)
	assert.Equal(t, "number", gens[1].Default)
	assert.Equal(t, "V", gens[2].Name)
	assert.Equal(t, 2, gens[2].Index)
	assert.Equal(t, "Record<string, T>", gens[3].Constraint)
	assert.Equal(t, "{}", gens[3].Default)
	assert.Equal(t, "<T, U, V, W>", gens.Arguments())
	assert.Equal(t, "<T extends string, U = number, V, W extends Record<string, T> = {}>", gens.Declaration())
}

func TestReferences(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		want      []string
		shorthand []string
	}{
		{name: "member access and arrow params", src: "items.filter(i => i.done).length + total", want: []string{"items", "total"}},
		{name: "object keys", src: "{ a, b: c, [d]: e }", want: []string{"a", "c", "d", "e"}, shorthand: []string{"a"}},
		{name: "call", src: "foo(bar, 'baz')", want: []string{"foo", "bar"}},
		{name: "ternary", src: "x ? y : z", want: []string{"x", "y", "z"}},
		{name: "template literal", src: "`${a}px`", want: []string{"a"}},
		{name: "keywords", src: "typeof v === 'string' && this.w !== null", want: []string{"v"}},
		{name: "destructured params", src: "list.map(({ id }, n) => id + n + k)", want: []string{"list", "k"}},
		{name: "arrow with block body", src: "() => { count++ }", want: []string{"count"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := script.References(tt.src, whole(tt.src))
			var got, short []string
			for _, r := range refs {
				got = append(got, r.Name)
				if r.Shorthand {
					short = append(short, r.Name)
				}
				assert.Equal(t, r.Name, r.Span.Text(tt.src))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.shorthand, short)
		})
	}
}
