package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counter = `<script setup lang="ts">
const count = ref(0)
</script>

<template>
  <button @click="count++">{{ count }}</button>
</template>
`

func setup(t *testing.T, files map[string]string) (afero.Fs, *bytes.Buffer, *Handler) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	var buf bytes.Buffer
	return fs, &buf, &Handler{root: "/project", format: "text", noColor: true, fs: fs, out: &buf}
}

func TestGenerateWritesEveryKind(t *testing.T) {
	fs, buf, h := setup(t, map[string]string{
		"/project/src/Counter.vue":   counter,
		"/project/src/notes.md":      "# notes",
		"/project/sfc-typer.yaml":    "out_dir: types\n",
		"/project/.editorconfig":     "root = true\n\n[*.vue]\nindent_style = space\nindent_size = 2\n",
		"/project/vendor/Vendor.vue": counter,
	})
	h.sourceMaps = true

	require.NoError(t, h.Run(context.Background()))
	assert.Empty(t, buf.String())

	for _, kind := range []string{"options", "render", "bundle"} {
		path := "/project/types/src/Counter.vue." + kind + ".ts"
		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err, path)
		assert.NotEmpty(t, data)

		sm, err := afero.ReadFile(fs, path+".map")
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(sm, &decoded))
		assert.EqualValues(t, 3, decoded["version"])
		assert.Equal(t, []any{"../../src/Counter.vue"}, decoded["sources"])
	}

	options, err := afero.ReadFile(fs, "/project/types/src/Counter.vue.options.ts")
	require.NoError(t, err)
	assert.Contains(t, string(options), "\n  const count = ref(0);\n")

	exists, err := afero.Exists(fs, "/project/types/vendor/Vendor.vue.options.ts")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGenerateHonorsKindsAndExcludes(t *testing.T) {
	fs, _, h := setup(t, map[string]string{
		"/project/App.vue":        counter,
		"/project/legacy/Old.vue": counter,
		"/project/sfc-typer.hcl":  "exclude = [\"legacy/**\"]\n",
	})
	h.kinds = []string{"bundle"}

	require.NoError(t, h.Run(context.Background()))

	exists := func(path string) bool {
		ok, err := afero.Exists(fs, path)
		require.NoError(t, err)
		return ok
	}
	assert.True(t, exists("/project/App.vue.bundle.ts"))
	assert.False(t, exists("/project/App.vue.options.ts"))
	assert.False(t, exists("/project/legacy/Old.vue.bundle.ts"))
}

func TestGenerateReportsDiagnostics(t *testing.T) {
	_, buf, h := setup(t, map[string]string{
		"/project/Broken.vue": "<style>\n.a { color: red }\n",
		"/project/App.vue":    counter,
	})

	require.NoError(t, h.Run(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "/project/Broken.vue:1:1:")
	assert.Contains(t, out, "[structural-parse]")
	assert.Equal(t, 1, strings.Count(out, "\n"), "each diagnostic is reported once across kinds")
}

func TestGenerateRejectsUnknownKind(t *testing.T) {
	_, _, h := setup(t, map[string]string{"/project/App.vue": counter})
	h.kinds = []string{"typings"}

	assert.Error(t, h.Run(context.Background()))
}
