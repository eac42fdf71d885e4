package debug_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/walteh/sfc-typer/pkg/debug"
)

func TestSplitFuncName(t *testing.T) {
	tests := []struct {
		name string
		pkg  string
		fn   string
	}{
		{"github.com/walteh/sfc-typer/pkg/workspace.Analyze", "github.com/walteh/sfc-typer/pkg/workspace", "Analyze"},
		{"github.com/walteh/sfc-typer/pkg/workspace.(*Registry).GetArtifact", "github.com/walteh/sfc-typer/pkg/workspace", "(*Registry).GetArtifact"},
		{"main.main", "main", "main"},
		{"github.com/walteh/sfc-typer/pkg/builder.Assemble.func1", "github.com/walteh/sfc-typer/pkg/builder", "Assemble.func1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg, fn := debug.SplitFuncName(tt.name)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.fn, fn)
		})
	}
}

func TestFormatCaller(t *testing.T) {
	got := debug.FormatCaller("pkg/workspace", "/src/pkg/workspace/registry.go", 42, false)
	assert.Equal(t, "pkg/workspace:registry.go:42", got)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := debug.NewLogger(&buf, zerolog.InfoLevel, false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("uri", "/App.vue").Msg("generated")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "generated")
	assert.Contains(t, out, "uri=/App.vue")
}

func TestNewLoggerAddsCallerAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := debug.NewLogger(&buf, zerolog.DebugLevel, false)

	logger.Debug().Msg("tracing")

	assert.Contains(t, buf.String(), "debug_test.go:")
}
