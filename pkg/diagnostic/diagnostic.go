package diagnostic

import (
	"fmt"
	"sort"

	"github.com/walteh/sfc-typer/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "info"
	SeverityHint        Severity = "hint"
)

// Code identifies the class of problem a diagnostic reports.
type Code string

const (
	CodeStructuralParse    Code = "structural-parse"
	CodeMacroResolution    Code = "macro-resolution"
	CodeMappingOutOfRange  Code = "mapping-out-of-range"
	CodeHostIntegration    Code = "host-integration"
	CodeReservedIdentifier Code = "reserved-identifier"
	CodeTemplateParse      Code = "template-parse"
)

// Diagnostic is a single non-blocking message attached to a document or an
// artifact. Span is always expressed in original document offsets.
type Diagnostic struct {
	Message  string
	Span     position.Span
	Severity Severity
	Code     Code
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Span, d.Severity, d.Code, d.Message)
}

type Diagnostics []Diagnostic

func (me Diagnostics) HasErrors() bool {
	for _, d := range me {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (me Diagnostics) WithCode(code Code) Diagnostics {
	var out Diagnostics
	for _, d := range me {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns a copy ordered by start offset, keeping insertion order for ties.
func (me Diagnostics) Sorted() Diagnostics {
	out := make(Diagnostics, len(me))
	copy(out, me)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})
	return out
}

// Diagnoser is implemented by every recoverable error of the pipeline.
type Diagnoser interface {
	error
	Diagnostic() Diagnostic
}

// From converts a recoverable pipeline error into its diagnostic. It returns
// false for errors that must propagate, such as HostIntegrationError.
func From(err error) (Diagnostic, bool) {
	var host *HostIntegrationError
	if errors.As(err, &host) {
		return Diagnostic{}, false
	}
	var d Diagnoser
	if errors.As(err, &d) {
		return d.Diagnostic(), true
	}
	return Diagnostic{}, false
}

// StructuralParseError reports a region whose block boundaries could not be
// determined. The region is left out of the block list.
type StructuralParseError struct {
	Tag    string
	Span   position.Span
	Reason string
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("structural parse error at %s: <%s> %s", e.Span, e.Tag, e.Reason)
}

func (e *StructuralParseError) Diagnostic() Diagnostic {
	return Diagnostic{
		Message:  fmt.Sprintf("<%s> %s", e.Tag, e.Reason),
		Span:     e.Span,
		Severity: SeverityWarning,
		Code:     CodeStructuralParse,
	}
}

// MacroResolutionError reports a declarative call with an unexpected shape.
// Resolution continues with Fallback as the declared type.
type MacroResolutionError struct {
	Macro    string
	Span     position.Span
	Reason   string
	Fallback string
}

func (e *MacroResolutionError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Macro, e.Span, e.Reason)
}

func (e *MacroResolutionError) Diagnostic() Diagnostic {
	msg := fmt.Sprintf("%s: %s", e.Macro, e.Reason)
	if e.Fallback != "" {
		msg += fmt.Sprintf(" (using %s)", e.Fallback)
	}
	return Diagnostic{
		Message:  msg,
		Span:     e.Span,
		Severity: SeverityWarning,
		Code:     CodeMacroResolution,
	}
}

// MappingOutOfRangeError reports a position query outside every mapped range.
// The query still answers with Clamped. The diagnostic is placed on the
// original-side offset of the query.
type MappingOutOfRangeError struct {
	Direction string
	Offset    int
	Clamped   int
}

func (e *MappingOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: offset %d is outside mapped ranges (clamped to %d)", e.Direction, e.Offset, e.Clamped)
}

func (e *MappingOutOfRangeError) Diagnostic() Diagnostic {
	at := e.Offset
	if e.Direction == "toOriginal" {
		at = e.Clamped
	}
	return Diagnostic{
		Message:  e.Error(),
		Span:     position.NewSpan(at, at),
		Severity: SeverityHint,
		Code:     CodeMappingOutOfRange,
	}
}

// HostIntegrationError means assembly produced text the type-checking host
// cannot parse. It signals a generation defect and is never recovered.
type HostIntegrationError struct {
	Kind    string
	Offset  int
	Reason  string
	Excerpt string
}

func (e *HostIntegrationError) Error() string {
	return fmt.Sprintf("generated %s artifact is malformed at offset %d: %s near %q", e.Kind, e.Offset, e.Reason, e.Excerpt)
}
