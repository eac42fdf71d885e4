package workspace_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sfc-typer/pkg/builder"
	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/workspace"
	"gitlab.com/tozd/go/errors"
)

const counter = `<script setup lang="ts">
const count = ref(0)
</script>

<template>
  <button @click="count++">{{ count }}</button>
</template>
`

func rng(sl, sc, el, ec int) *position.Range {
	return &position.Range{
		Start: position.Place{Line: sl, Character: sc},
		End:   position.Place{Line: el, Character: ec},
	}
}

func TestApplyEdits(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		edits []workspace.TextEdit
		want  string
	}{
		{
			name:  "full replacement",
			text:  "abc",
			edits: []workspace.TextEdit{{NewText: "xyz"}},
			want:  "xyz",
		},
		{
			name:  "insert on second line",
			text:  "one\ntwo\n",
			edits: []workspace.TextEdit{{Range: rng(1, 1, 1, 1), NewText: "-"}},
			want:  "one\nt-wo\n",
		},
		{
			name:  "characters after a surrogate pair",
			text:  "a😀b\n",
			edits: []workspace.TextEdit{{Range: rng(0, 3, 0, 4), NewText: "c"}},
			want:  "a😀c\n",
		},
		{
			name: "edits apply in sequence",
			text: "hello",
			edits: []workspace.TextEdit{
				{Range: rng(0, 0, 0, 5), NewText: "hi"},
				{Range: rng(0, 2, 0, 2), NewText: " there"},
			},
			want: "hi there",
		},
		{
			name:  "delete across lines",
			text:  "a\nb\nc",
			edits: []workspace.TextEdit{{Range: rng(0, 1, 2, 0), NewText: ""}},
			want:  "ac",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := workspace.ApplyEdits(tt.text, tt.edits, position.ColumnUTF16)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).Level(zerolog.DebugLevel).WithContext(context.Background())

	r := workspace.NewRegistry(workspace.Options{})
	_, err := r.Open(ctx, "file:///a/Counter.vue", 1, counter)
	require.NoError(t, err)
	_, err = r.GetArtifact(ctx, "/a/Counter.vue", builder.KindRender)
	require.NoError(t, err)
	r.Close(ctx, "/a/Counter.vue")

	out := buf.String()
	for _, msg := range []string{"document updated", "generated artifact", "document closed"} {
		assert.Contains(t, out, `"message":"`+msg+`"`)
	}
	assert.Equal(t, 3, strings.Count(out, `"registry":`))
}

func TestVersionsMustIncrease(t *testing.T) {
	ctx := context.Background()
	r := workspace.NewRegistry(workspace.Options{})

	_, err := r.ApplyEdits(ctx, "/a.vue", 1, workspace.TextEdit{NewText: "x"})
	assert.True(t, errors.Is(err, workspace.ErrNotOpen))

	_, err = r.Open(ctx, "/a.vue", 1, counter)
	require.NoError(t, err)

	for _, v := range []int32{0, 1} {
		_, err = r.ApplyEdits(ctx, "/a.vue", v, workspace.TextEdit{NewText: "x"})
		assert.True(t, errors.Is(err, workspace.ErrStaleVersion), "version %d", v)
	}

	doc, err := r.ApplyEdits(ctx, "file:///a.vue", 2, workspace.TextEdit{NewText: "x"})
	require.NoError(t, err)
	assert.Equal(t, "/a.vue", doc.URI)
	assert.Equal(t, int32(2), doc.Version)
	assert.Equal(t, "x", doc.Text)
}

func TestGetDescribesDocument(t *testing.T) {
	ctx := context.Background()
	r := workspace.NewRegistry(workspace.Options{})
	_, err := r.Open(ctx, "/Counter.vue", 3, counter)
	require.NoError(t, err)

	doc, ok := r.Get(ctx, "/Counter.vue")
	require.True(t, ok)
	assert.Equal(t, int32(3), doc.Version)
	require.NotNil(t, doc.Descriptor)
	assert.NotNil(t, doc.Descriptor.ScriptSetup())
	assert.NotNil(t, doc.Descriptor.Template())

	r.Close(ctx, "/Counter.vue")
	_, ok = r.Get(ctx, "/Counter.vue")
	assert.False(t, ok)
	_, err = r.GetArtifact(ctx, "/Counter.vue", builder.KindOptions)
	assert.True(t, errors.Is(err, workspace.ErrNotOpen))
}

func TestArtifactsAreCachedPerVersion(t *testing.T) {
	ctx := context.Background()
	r := workspace.NewRegistry(workspace.Options{})
	_, err := r.Open(ctx, "/Counter.vue", 1, counter)
	require.NoError(t, err)

	first, err := r.GetArtifact(ctx, "/Counter.vue", builder.KindOptions)
	require.NoError(t, err)
	again, err := r.GetArtifact(ctx, "/Counter.vue", builder.KindOptions)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, int64(1), r.Generations())

	edited := strings.Replace(counter, "ref(0)", "ref(10)", 1)
	_, err = r.ApplyEdits(ctx, "/Counter.vue", 2, workspace.TextEdit{NewText: edited})
	require.NoError(t, err)

	second, err := r.GetArtifact(ctx, "/Counter.vue", builder.KindOptions)
	require.NoError(t, err)
	assert.NotEqual(t, first.Generation, second.Generation)
	assert.Equal(t, int32(2), second.Version)
	assert.Contains(t, second.Text, "ref(10)")
	assert.NotContains(t, second.Text, "ref(0)")
	assert.Equal(t, int64(2), r.Generations())

	// artifacts already handed out keep describing their own version
	assert.Contains(t, first.Text, "ref(0)")
	assert.Equal(t, int32(1), first.Version)
}

func TestConcurrentRequestsGenerateOnce(t *testing.T) {
	ctx := context.Background()
	r := workspace.NewRegistry(workspace.Options{})
	_, err := r.Open(ctx, "/Counter.vue", 1, counter)
	require.NoError(t, err)

	const n = 32
	got := make([]*workspace.Artifact, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := r.GetArtifact(ctx, "/Counter.vue", builder.KindRender)
			assert.NoError(t, err)
			got[i] = a
		}()
	}
	wg.Wait()

	for _, a := range got {
		assert.Same(t, got[0], a)
	}
	assert.Equal(t, int64(1), r.Generations())
}

func TestGetArtifactsAllKinds(t *testing.T) {
	ctx := context.Background()
	r := workspace.NewRegistry(workspace.Options{})
	_, err := r.Open(ctx, "/src/Counter.vue", 1, counter)
	require.NoError(t, err)

	arts, err := r.GetArtifacts(ctx, "/src/Counter.vue")
	require.NoError(t, err)
	require.Len(t, arts, len(builder.Kinds))

	for i, kind := range builder.Kinds {
		assert.Equal(t, kind, arts[i].Kind)
		assert.Equal(t, "/src/Counter.vue."+string(kind)+".ts", arts[i].VirtualPath)
	}
	assert.Contains(t, arts[1].Text, `from "./Counter.vue.options"`)
	assert.Contains(t, arts[2].Text, `from "./Counter.vue.options"`)
	assert.Equal(t, int64(3), r.Generations())
}

func TestGenerationIsDeterministic(t *testing.T) {
	ctx := context.Background()
	a := workspace.NewRegistry(workspace.Options{})
	b := workspace.NewRegistry(workspace.Options{})
	for _, r := range []*workspace.Registry{a, b} {
		_, err := r.Open(ctx, "/Counter.vue", 1, counter)
		require.NoError(t, err)
	}

	for _, kind := range builder.Kinds {
		x, err := a.GetArtifact(ctx, "/Counter.vue", kind)
		require.NoError(t, err)
		y, err := b.GetArtifact(ctx, "/Counter.vue", kind)
		require.NoError(t, err)

		assert.Equal(t, x.Text, y.Text, kind)
		assert.Equal(t, x.Mapper.Segments(), y.Mapper.Segments(), kind)
		assert.NotEqual(t, x.Generation, y.Generation)
	}
}

func TestTranslate(t *testing.T) {
	ctx := context.Background()
	r := workspace.NewRegistry(workspace.Options{})
	_, err := r.Open(ctx, "/Counter.vue", 1, counter)
	require.NoError(t, err)
	art, err := r.GetArtifact(ctx, "/Counter.vue", builder.KindOptions)
	require.NoError(t, err)

	g := strings.Index(art.Text, "const count") + len("const ")
	got := art.Translate(diagnostic.Diagnostic{
		Message:  "unused",
		Severity: diagnostic.SeverityWarning,
		Span:     position.NewSpan(g, g+len("count")),
	})
	require.Len(t, got, 1)
	assert.Equal(t, "count", got[0].Span.Text(counter))
	assert.Equal(t, "unused", got[0].Message)

	synthesized := art.Translate(diagnostic.Diagnostic{
		Message: "in header",
		Span:    position.NewSpan(0, len("import")),
	})
	assert.Equal(t, "in header", synthesized[0].Message)
	assert.NotEmpty(t, synthesized.WithCode(diagnostic.CodeMappingOutOfRange))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/Counter.vue", []byte(counter), 0o644))

	r := workspace.NewRegistry(workspace.Options{})
	doc, err := r.Load(ctx, fs, "/src/Counter.vue")
	require.NoError(t, err)
	assert.Equal(t, int32(1), doc.Version)

	doc, err = r.Load(ctx, fs, "/src/Counter.vue")
	require.NoError(t, err)
	assert.Equal(t, int32(1), doc.Version)

	require.NoError(t, afero.WriteFile(fs, "/src/Counter.vue", []byte(counter+"\n"), 0o644))
	doc, err = r.Load(ctx, fs, "/src/Counter.vue")
	require.NoError(t, err)
	assert.Equal(t, int32(2), doc.Version)

	_, err = r.Load(ctx, fs, "/src/Missing.vue")
	assert.Error(t, err)

	assert.Equal(t, []string{"/src/Counter.vue"}, r.URIs())
}
