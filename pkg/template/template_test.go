package template_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/mapping"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/template"
)

type shape struct {
	Kind     string
	Tag      string
	Children []shape
}

func shapeOf(n *template.Node) shape {
	s := shape{Kind: n.Kind.String(), Tag: n.Tag}
	for _, c := range n.Children {
		s.Children = append(s.Children, shapeOf(c))
	}
	for _, b := range n.Branches {
		s.Children = append(s.Children, shapeOf(b.Node))
	}
	if n.Loop != nil {
		s.Children = append(s.Children, shapeOf(n.Loop.Body))
	}
	return s
}

func parse(t *testing.T, src string) (*template.Node, diagnostic.Diagnostics) {
	t.Helper()
	return template.Parse(context.Background(), src, position.NewSpan(0, len(src)))
}

func transpile(t *testing.T, src string, bindings ...string) *template.Emission {
	t.Helper()
	root, diags := parse(t, src)
	require.Empty(t, diags)
	return template.Transpile(context.Background(), src, root, template.Context{Bindings: bindings})
}

func TestParseStructure(t *testing.T) {
	src := `<div>
  <p v-if="a">A</p>
  <!-- between -->
  <p v-else-if="b">B</p>
  <p v-else>C</p>
  <li v-for="x in xs" :key="x">{{ x }}</li>
  <br>
  <slot name="footer" />
</div>`
	root, diags := parse(t, src)
	require.Empty(t, diags)

	want := shape{Kind: "root", Children: []shape{
		{Kind: "element", Tag: "div", Children: []shape{
			{Kind: "text"},
			{Kind: "if", Children: []shape{
				{Kind: "element", Tag: "p", Children: []shape{{Kind: "text"}}},
				{Kind: "element", Tag: "p", Children: []shape{{Kind: "text"}}},
				{Kind: "element", Tag: "p", Children: []shape{{Kind: "text"}}},
			}},
			{Kind: "text"},
			{Kind: "for", Children: []shape{
				{Kind: "element", Tag: "li", Children: []shape{{Kind: "interpolation"}}},
			}},
			{Kind: "text"},
			{Kind: "element", Tag: "br"},
			{Kind: "text"},
			{Kind: "slot-outlet", Tag: "slot"},
			{Kind: "text"},
		}},
	}}
	if diff := cmp.Diff(want, shapeOf(root)); diff != "" {
		t.Errorf("unexpected tree (-want +got):\n%s", diff)
	}
}

func TestParseDirectives(t *testing.T) {
	src := `<Comp v-on:click.stop="go" :title="t" @update:model-value="set" #item="{ row }" .inner="h" :[dyn]="v" v-model.trim="m" disabled />`
	root, diags := parse(t, src)
	require.Empty(t, diags)
	require.Len(t, root.Children, 1)

	n := root.Children[0]
	assert.Equal(t, "Comp", n.Tag)
	assert.True(t, n.SelfClosing)

	type got struct {
		Directive string
		Arg       string
		Dynamic   bool
		Modifiers []string
	}
	var attrs []got
	for _, a := range n.Attrs {
		attrs = append(attrs, got{a.Directive, a.Arg, a.DynamicArg, a.Modifiers})
	}
	assert.Equal(t, []got{
		{"on", "click", false, []string{"stop"}},
		{"bind", "title", false, nil},
		{"on", "update:model-value", false, nil},
		{"slot", "item", false, nil},
		{"bind", "inner", false, []string{"prop"}},
		{"bind", "dyn", true, nil},
		{"model", "", false, []string{"trim"}},
		{"", "", false, nil},
	}, attrs)

	assert.Equal(t, "click", n.Attrs[0].ArgSpan.Text(src))
	assert.Equal(t, "dyn", n.Attrs[5].ArgSpan.Text(src))
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{name: "unclosed element", src: `<div><span>x</div>`, want: 1},
		{name: "stray close tag", src: `<div></span></div>`, want: 1},
		{name: "else without if", src: `<p v-else>x</p>`, want: 1},
		{name: "malformed loop", src: `<p v-for="items">x</p>`, want: 1},
		{name: "void elements need no close", src: `<img src="a"><input></input>`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := parse(t, tt.src)
			assert.Len(t, diags, tt.want)
			for _, d := range diags {
				assert.Equal(t, diagnostic.CodeTemplateParse, d.Code)
			}
		})
	}
}

func TestInterpolationMayContainMarkupCharacters(t *testing.T) {
	tests := []struct {
		name string
		src  string
		expr string
		want string
	}{
		{
			name: "less than without spaces",
			src:  `<p>{{ a<b }}</p>`,
			expr: "a<b",
			want: `[__sfc_element("p", {}, [(__sfc_ctx.a<__sfc_ctx.b)])]`,
		},
		{
			name: "tag-like text",
			src:  `<p>{{ x<span>y }}</p>`,
			expr: "x<span>y",
			want: `[__sfc_element("p", {}, [(__sfc_ctx.x<__sfc_ctx.span>__sfc_ctx.y)])]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, diags := parse(t, tt.src)
			require.Empty(t, diags)

			want := shape{Kind: "root", Children: []shape{
				{Kind: "element", Tag: "p", Children: []shape{{Kind: "interpolation"}}},
			}}
			if diff := cmp.Diff(want, shapeOf(root)); diff != "" {
				t.Fatalf("unexpected tree (-want +got):\n%s", diff)
			}
			interp := root.Children[0].Children[0]
			assert.Equal(t, tt.expr, interp.Content.Text(tt.src))

			em := template.Transpile(context.Background(), tt.src, root, template.Context{})
			assert.Equal(t, tt.want, em.String())
		})
	}
}

func TestLoopScopeIgnoresAliases(t *testing.T) {
	src := `<ul><li v-for="item in items">{{ item }} {{ total }}</li></ul>`
	em := transpile(t, src)

	assert.Equal(t,
		`[__sfc_element("ul", {}, [__sfc_renderList((__sfc_ctx.items), (item) => __sfc_element("li", {}, [(item), (__sfc_ctx.total)]))])]`,
		em.String())

	idents := em.Idents()
	require.Len(t, idents, 3)
	for _, id := range idents {
		switch id.Text {
		case "item":
			assert.True(t, id.Ignore, "item at %s", id.Span)
		case "items", "total":
			assert.False(t, id.Ignore, "%s at %s", id.Text, id.Span)
			assert.True(t, id.Qualified())
		default:
			t.Errorf("unexpected identifier %q", id.Text)
		}
	}
}

func TestLoopAliases(t *testing.T) {
	src := `<p v-for="({ id, name }, key, index) of list">{{ id + name + key + index + other }}</p>`
	em := transpile(t, src)

	assert.Contains(t, em.String(), `__sfc_renderList((__sfc_ctx.list), ({ id, name }, key, index) => `)
	assert.Contains(t, em.String(), `[(id + name + key + index + __sfc_ctx.other)]`)
}

func TestConditionals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "trailing else-if degrades to undefined",
			src:  `<p v-if="a">A</p><p v-else-if="b">B</p>`,
			want: `[(__sfc_ctx.a) ? __sfc_element("p", {}, ["A"]) : (__sfc_ctx.b) ? __sfc_element("p", {}, ["B"]) : undefined]`,
		},
		{
			name: "else closes the chain",
			src:  `<p v-if="a">A</p><p v-else>C</p>`,
			want: `[(__sfc_ctx.a) ? __sfc_element("p", {}, ["A"]) : __sfc_element("p", {}, ["C"])]`,
		},
		{
			name: "two chains",
			src:  `<p v-if="a">A</p><p v-if="b">B</p>`,
			want: `[(__sfc_ctx.a) ? __sfc_element("p", {}, ["A"]) : undefined, (__sfc_ctx.b) ? __sfc_element("p", {}, ["B"]) : undefined]`,
		},
		{
			name: "if wraps for",
			src:  `<p v-if="ok" v-for="x in xs">{{ x }}</p>`,
			want: `[(__sfc_ctx.ok) ? __sfc_renderList((__sfc_ctx.xs), (x) => __sfc_element("p", {}, [(x)])) : undefined]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transpile(t, tt.src).String())
		})
	}
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "static and bound",
			src:  `<a href="x" :title="t" disabled></a>`,
			want: `[__sfc_element("a", {"href": "x", "title": (__sfc_ctx.t), "disabled": true}, [])]`,
		},
		{
			name: "member handler is passed through",
			src:  `<button @click="go"></button>`,
			want: `[__sfc_element("button", {"onClick": (__sfc_ctx.go)}, [])]`,
		},
		{
			name: "statement handler is wrapped",
			src:  `<button @click="count++"></button>`,
			want: `[__sfc_element("button", {"onClick": ($event: any) => {(__sfc_ctx.count++)}}, [])]`,
		},
		{
			name: "arrow handler keeps its parameter",
			src:  `<button @click="e => go(e)"></button>`,
			want: `[__sfc_element("button", {"onClick": (e => __sfc_ctx.go(e))}, [])]`,
		},
		{
			name: "v-model",
			src:  `<input v-model="text">`,
			want: `[__sfc_element("input", {"modelValue": (__sfc_ctx.text), "onUpdate:modelValue": ($event: any) => ((__sfc_ctx.text) = $event)}, [])]`,
		},
		{
			name: "object spread and shorthand",
			src:  `<div v-bind="{ a, b: 1 }"></div>`,
			want: `[__sfc_element("div", {...({ a: __sfc_ctx.a, b: 1 })}, [])]`,
		},
		{
			name: "globals are not qualified",
			src:  `<p>{{ Math.max(a, 1) }}</p>`,
			want: `[__sfc_element("p", {}, [(Math.max(__sfc_ctx.a, 1))])]`,
		},
		{
			name: "other directives are evaluated",
			src:  `<p v-show="visible"></p>`,
			want: `[__sfc_element("p", {"v-show": (__sfc_ctx.visible)}, [])]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transpile(t, tt.src).String())
		})
	}
}

func TestComponentsAndSlots(t *testing.T) {
	src := `<my-list :items="rows"><template #row="{ row }">{{ row.name }} {{ title }}</template></my-list><slot name="footer" :n="1">fallback</slot>`
	em := transpile(t, src, "MyList")

	assert.Equal(t,
		`[__sfc_component(__sfc_ctx.MyList, {"items": (__sfc_ctx.rows)}, [__sfc_slot("row", ({ row }) => [(row.name), (__sfc_ctx.title)])]), `+
			`__sfc_renderSlot("footer", {"n": (1)}, ["fallback"])]`,
		em.String())

	for _, id := range em.Idents() {
		if id.Text == "row" {
			assert.True(t, id.Ignore)
		}
	}
}

func TestUnboundComponentIsAnElement(t *testing.T) {
	em := transpile(t, `<router-view></router-view>`)
	assert.Equal(t, `[__sfc_element("router-view", {}, [])]`, em.String())
}

func TestPascalCase(t *testing.T) {
	assert.Equal(t, "MyComp", template.PascalCase("my-comp"))
	assert.Equal(t, "MyComp", template.PascalCase("MyComp"))
	assert.Equal(t, "A", template.PascalCase("a"))
}

func TestEmissionMapsCopiedText(t *testing.T) {
	src := `<ul><li v-for="item in items" :class="item.cls">{{ item.label }} {{ total }}</li></ul>`
	em := transpile(t, src)

	s := mapping.NewScript(src)
	em.Write(s)
	m := mapping.NewMapper(s)
	gen := m.Generated()

	for _, word := range []string{"items", "item.cls", "item.label", "total"} {
		o := strings.Index(src, word)
		require.GreaterOrEqual(t, o, 0)
		g, ok := m.ToGenerated(o)
		require.True(t, ok, word)
		assert.Equal(t, word, gen[g:g+len(word)])

		back, ok := m.ToOriginal(g)
		require.True(t, ok)
		assert.Equal(t, o, back)
	}
}

func TestInterpolationGroupsKeepSpans(t *testing.T) {
	src := `<p>{{ a }}</p>`
	em := transpile(t, src)
	groups := em.Groups(template.NodeInterpolation)
	require.Len(t, groups, 1)
	assert.Equal(t, "{{ a }}", groups[0].Span.Text(src))
}
