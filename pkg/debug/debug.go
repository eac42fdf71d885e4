// Package debug builds the command-line logger.
package debug

import (
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// ModulePath is trimmed from the package shown in caller fields.
const ModulePath = "github.com/walteh/sfc-typer/"

const defaultTimeFormat = "2006-01-02T15:04:05.0000Z"

// NewLogger returns a console logger with the time and caller hooks
// installed. Caller fields are only added at debug level and below.
func NewLogger(w io.Writer, level zerolog.Level, colorize bool) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colorize,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, "caller", zerolog.MessageFieldName},
		FieldsExclude: []string{
			"caller",
		},
		FormatTimestamp: func(i interface{}) string {
			s, _ := i.(string)
			return s
		},
	}

	logger := zerolog.New(out).Level(level).Hook(CustomTimeHook{WithColor: colorize})
	if level <= zerolog.DebugLevel {
		logger = logger.Hook(CustomCallerHook{WithColor: colorize})
	}
	return logger
}

// skipFrames reads the event's unexported caller skip count so the caller
// hook reports the right frame after zerolog's own wrappers.
func skipFrames(e *zerolog.Event) int {
	v := reflect.ValueOf(e).Elem()
	field := v.FieldByName("skipFrame")
	if field.IsValid() && field.CanAddr() {
		return int(field.Int())
	}
	return 0
}

type CustomTimeHook struct {
	WithColor bool
	// Format defaults to millisecond precision without a zone.
	Format string
}

func (t CustomTimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = defaultTimeFormat
	}
	ts := time.Now().Format(format)
	if t.WithColor {
		ts = color.New(color.Faint).Sprint(ts)
	}
	e.Str(zerolog.TimestampFieldName, ts)
}

type CustomCallerHook struct {
	WithColor bool
}

func (c CustomCallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pc, file, line, ok := runtime.Caller(skipFrames(e) + 3)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	pkg, _ := SplitFuncName(fn.Name())
	e.Str("caller", FormatCaller(strings.TrimPrefix(pkg, ModulePath), file, line, c.WithColor))
}

// SplitFuncName splits a fully qualified function name, as reported by
// runtime.FuncForPC, into its package path and function. Methods keep their
// receiver: `pkg.(*T).M` yields `(*T).M`.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}
	firstDot := strings.IndexByte(name[lastSlash:], '.') + lastSlash
	if firstDot < lastSlash {
		return name, ""
	}

	pkg = name[:firstDot]
	function = name[firstDot+1:]

	if strings.Contains(pkg, ".(") {
		parts := strings.SplitN(pkg, ".(", 2)
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}
	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := fileName(path)
	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
		sep := color.New(color.Faint).Sprint(":")
		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}
	return fmt.Sprintf("%s:%s:%d", pkg, file, line)
}

func fileName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
