package diagnostic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/walteh/sfc-typer/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Formatter formats diagnostics into different output formats
type Formatter interface {
	Format(uri string, text string, diagnostics Diagnostics) ([]byte, error)
}

func NewFormatter(name string, colorize bool) (Formatter, error) {
	switch name {
	case "vscode", "json":
		return NewVSCodeFormatter(), nil
	case "text", "":
		return NewTextFormatter(colorize), nil
	}
	return nil, errors.Errorf("unknown diagnostic format %q", name)
}

// VSCodeFormatter formats diagnostics into VSCode-compatible format
type VSCodeFormatter struct{}

func NewVSCodeFormatter() *VSCodeFormatter {
	return &VSCodeFormatter{}
}

type vscodePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type vscodeRange struct {
	Start vscodePosition `json:"start"`
	End   vscodePosition `json:"end"`
}

type vscodeDiagnostic struct {
	Severity int         `json:"severity"`
	Message  string      `json:"message"`
	Code     string      `json:"code"`
	Source   string      `json:"source"`
	Range    vscodeRange `json:"range"`
}

func (me Severity) lspValue() int {
	switch me {
	case SeverityError:
		return 1
	case SeverityWarning:
		return 2
	case SeverityInformation:
		return 3
	default:
		return 4
	}
}

// Format implements Formatter
func (f *VSCodeFormatter) Format(uri string, text string, diagnostics Diagnostics) ([]byte, error) {
	li := position.NewLineIndex(text)
	result := make([]vscodeDiagnostic, 0, len(diagnostics))
	for _, d := range diagnostics.Sorted() {
		r := li.RangeOf(d.Span, position.ColumnUTF16)
		result = append(result, vscodeDiagnostic{
			Severity: d.Severity.lspValue(),
			Message:  d.Message,
			Code:     string(d.Code),
			Source:   "sfc-typer",
			Range: vscodeRange{
				Start: vscodePosition{Line: r.Start.Line, Character: r.Start.Character},
				End:   vscodePosition{Line: r.End.Line, Character: r.End.Character},
			},
		})
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Errorf("marshalling diagnostics for %s: %w", uri, err)
	}
	return out, nil
}

// TextFormatter renders `file:line:col: severity: message` lines, one-based and
// counted in graphemes so they line up in a terminal.
type TextFormatter struct {
	colorize bool
}

func NewTextFormatter(colorize bool) *TextFormatter {
	return &TextFormatter{colorize: colorize}
}

func (f *TextFormatter) Format(uri string, text string, diagnostics Diagnostics) ([]byte, error) {
	li := position.NewLineIndex(text)
	var sb strings.Builder
	for _, d := range diagnostics.Sorted() {
		p := li.PlaceOf(d.Span.Start, position.ColumnGraphemes)
		sev := string(d.Severity)
		loc := fmt.Sprintf("%s:%d:%d", uri, p.Line+1, p.Character+1)
		if f.colorize {
			loc = color.New(color.Bold).Sprint(loc)
			sev = severityColor(d.Severity).Sprint(sev)
		}
		fmt.Fprintf(&sb, "%s: %s: %s [%s]\n", loc, sev, d.Message, d.Code)
	}
	return []byte(sb.String()), nil
}

func severityColor(s Severity) *color.Color {
	switch s {
	case SeverityError:
		return color.New(color.FgHiRed, color.Bold)
	case SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}
