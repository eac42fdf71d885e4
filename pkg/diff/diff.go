// Package diff renders readable differences for test failures.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

const legend = "\n\nto convert ACTUAL ⏩️ EXPECTED:\n\nadd:    ➕\nremove: ➖\n\n"

// DiffExportedOnly pretty-prints both values (exported fields only) and
// diffs the output. It returns "" when they print identically.
func DiffExportedOnly[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)
	return render(diff.Diff(printer.Sprint(got), printer.Sprint(want)))
}

// DiffText diffs two generated texts line by line. It returns "" when they
// are equal.
func DiffText(want, got string) string {
	if want == got {
		return ""
	}
	return render(diff.Diff(got, want))
}

func render(d string) string {
	if d == "" {
		return ""
	}
	return legend + strings.ReplaceAll(strings.ReplaceAll(d, "\n-", "\n➖"), "\n+", "\n➕")
}
