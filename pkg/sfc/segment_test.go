package sfc_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

const component = `<script lang="ts">
export default { name: 'A' }
</script>

<script setup lang="ts" generic="T extends Array<string>">
const x = 1
</script>

<!-- <template><div/></template> -->
<template>
  <div><template v-if="ok">hi</template></div>
</template>

<style scoped>
.a { color: red }
</style>

<i18n lang="json">{"a": 1}</i18n>
<docs></docs>
<custom/>
`

func reconstruct(d *sfc.Descriptor) string {
	var sb strings.Builder
	for _, p := range d.Pieces() {
		sb.WriteString(p.Span.Text(d.Source))
	}
	return sb.String()
}

func types(d *sfc.Descriptor) []sfc.BlockType {
	out := make([]sfc.BlockType, len(d.Blocks))
	for i, b := range d.Blocks {
		out[i] = b.Type
	}
	return out
}

func TestSegment(t *testing.T) {
	d := sfc.Segment(context.Background(), component)

	assert.Equal(t, []sfc.BlockType{
		sfc.BlockScript,
		sfc.BlockScriptSetup,
		sfc.BlockTemplate,
		sfc.BlockStyle,
		sfc.BlockCustom,
		sfc.BlockEmpty,
		sfc.BlockEmpty,
	}, types(d))
	assert.Empty(t, d.Diagnostics)
	assert.Len(t, d.Comments, 1)
	assert.Equal(t, component, reconstruct(d))

	setup := d.ScriptSetup()
	require.NotNil(t, setup)
	assert.True(t, setup.Setup)
	assert.Equal(t, "ts", setup.Lang)
	assert.True(t, setup.IsTypeScript())
	assert.Equal(t, "T extends Array<string>", setup.Generic)
	assert.Equal(t, setup.Generic, setup.GenericSpan.Text(component))
	assert.Equal(t, "\nconst x = 1\n", setup.Content.Text(component))

	tmpl := d.Template()
	require.NotNil(t, tmpl)
	assert.Equal(t, "\n  <div><template v-if=\"ok\">hi</template></div>\n", tmpl.Content.Text(component))
	assert.Equal(t, "</template>", tmpl.Close.Text(component))

	customs := d.Customs()
	require.Len(t, customs, 1)
	assert.Equal(t, "i18n", customs[0].Tag)
	assert.Equal(t, "JSON", customs[0].Language())

	empties := d.Empties()
	require.Len(t, empties, 2)
	assert.Equal(t, "docs", empties[0].Tag)
	assert.Equal(t, "<docs>", empties[0].Open.Text(component))
	assert.Equal(t, "custom", empties[1].Tag)
	assert.True(t, empties[1].Content.IsEmpty())

	assert.Len(t, d.Scripts(), 2)
}

func TestSegmentEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantTypes []sfc.BlockType
		wantDiags int
		check     func(t *testing.T, d *sfc.Descriptor)
	}{
		{
			name:      "commented out block is not a block",
			text:      "<!-- <script>x</script> -->\n<script>y</script>",
			wantTypes: []sfc.BlockType{sfc.BlockScript},
			check: func(t *testing.T, d *sfc.Descriptor) {
				assert.Equal(t, "y", d.Script().Content.Text(d.Source))
			},
		},
		{
			name:      "tag-like text in a string stays inside the script",
			text:      `<script>const s = "<template></template>"</script>`,
			wantTypes: []sfc.BlockType{sfc.BlockScript},
		},
		{
			name:      "blank template is kept, blank script becomes empty",
			text:      "<template></template>\n<script setup>  </script>",
			wantTypes: []sfc.BlockType{sfc.BlockTemplate, sfc.BlockEmpty},
			check: func(t *testing.T, d *sfc.Descriptor) {
				empty := d.Empties()[0]
				assert.Equal(t, "script", empty.Tag)
				_, ok := empty.Attr("setup")
				assert.True(t, ok)
				assert.Equal(t, "  ", empty.Content.Text(d.Source))
			},
		},
		{
			name:      "script with src and no content",
			text:      `<script src="./a.ts"></script>`,
			wantTypes: []sfc.BlockType{sfc.BlockScript},
			check: func(t *testing.T, d *sfc.Descriptor) {
				assert.Equal(t, "./a.ts", d.Script().Src)
			},
		},
		{
			name:      "unclosed template is reported and left as content",
			text:      "<template>\n<script>const a = 1</script>",
			wantTypes: []sfc.BlockType{sfc.BlockScript},
			wantDiags: 1,
			check: func(t *testing.T, d *sfc.Descriptor) {
				assert.Equal(t, diagnostic.CodeStructuralParse, d.Diagnostics[0].Code)
				assert.Equal(t, "<template>", d.Diagnostics[0].Span.Text(d.Source))
			},
		},
		{
			name:      "markup inside an unclosed template stays content",
			text:      "<template>\n  <div>hi</div>\n  <span></span>\n<script setup>const a = 1</script>",
			wantTypes: []sfc.BlockType{sfc.BlockScriptSetup},
			wantDiags: 1,
			check: func(t *testing.T, d *sfc.Descriptor) {
				assert.Empty(t, d.Customs())
				assert.Empty(t, d.Empties())
				pieces := d.Pieces()
				require.Len(t, pieces, 2)
				assert.Nil(t, pieces[0].Block)
				assert.Equal(t, "<template>\n  <div>hi</div>\n  <span></span>\n", pieces[0].Span.Text(d.Source))
			},
		},
		{
			name:      "unclosed style resumes at the next tag on its own line",
			text:      "<style>\n.a{}\n<docs>hello</docs>",
			wantTypes: []sfc.BlockType{sfc.BlockCustom},
			wantDiags: 1,
			check: func(t *testing.T, d *sfc.Descriptor) {
				assert.Equal(t, "hello", d.Customs()[0].Content.Text(d.Source))
			},
		},
		{
			name:      "unclosed script",
			text:      "<script>const a = 1",
			wantTypes: []sfc.BlockType{},
			wantDiags: 1,
		},
		{
			name:      "duplicate setup script",
			text:      "<script setup>a</script><script setup>b</script>",
			wantTypes: []sfc.BlockType{sfc.BlockScriptSetup, sfc.BlockScriptSetup},
			wantDiags: 1,
			check: func(t *testing.T, d *sfc.Descriptor) {
				assert.Equal(t, "a", d.ScriptSetup().Content.Text(d.Source))
			},
		},
		{
			name:      "upper case close tag",
			text:      "<style>a{}</STYLE>",
			wantTypes: []sfc.BlockType{sfc.BlockStyle},
		},
		{
			name:      "empty document",
			text:      "",
			wantTypes: []sfc.BlockType{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sfc.Segment(context.Background(), tt.text)
			assert.Equal(t, tt.wantTypes, types(d))
			assert.Len(t, d.Diagnostics, tt.wantDiags)
			assert.Equal(t, tt.text, reconstruct(d))
			if tt.check != nil {
				tt.check(t, d)
			}
		})
	}
}

func TestParseAttributes(t *testing.T) {
	raw := `<script setup lang='ts' generic="T extends X<Y>" data-x=plain>`
	attrs := sfc.ParseAttributes(raw, 100)
	require.Len(t, attrs, 4)

	assert.Equal(t, "setup", attrs[0].Name)
	assert.False(t, attrs[0].HasValue)

	assert.Equal(t, "lang", attrs[1].Name)
	assert.Equal(t, "ts", attrs[1].Value)

	assert.Equal(t, "T extends X<Y>", attrs[2].Value)
	assert.Equal(t, attrs[2].Value, raw[attrs[2].ValueSpan.Start-100:attrs[2].ValueSpan.End-100])

	assert.Equal(t, "data-x", attrs[3].Name)
	assert.Equal(t, "plain", attrs[3].Value)
	assert.Equal(t, "data-x=plain", raw[attrs[3].Span.Start-100:attrs[3].Span.End-100])
}

func TestLanguage(t *testing.T) {
	d := sfc.Segment(context.Background(), "<template>x</template><script lang=\"ts\">y</script><style lang=\"unknownlang\">z</style>")
	assert.Equal(t, "HTML", d.Template().Language())
	assert.Equal(t, "TypeScript", d.Script().Language())
	assert.Equal(t, "unknownlang", d.Styles()[0].Language())
}
