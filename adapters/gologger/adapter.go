// Package gologger bridges go-logger's glog contracts to log/slog so the
// integrations binary gets structured output without a concrete go-logger
// backend.
package gologger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
)

// LevelTrace sits below slog's debug level.
const LevelTrace = slog.LevelDebug - 4

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Logger implements glog.Logger and glog.FieldsLogger over a slog.Logger.
type Logger struct {
	base *slog.Logger
	ctx  context.Context
}

// New wraps base. A nil base logs JSON to stderr at info.
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &Logger{base: base, ctx: context.Background()}
}

// NewJSON builds a JSON logger writing to w at the named level
// (trace, debug, info, warn, error).
func NewJSON(w io.Writer, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: renameTrace,
	})
	return New(slog.New(handler))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// Fatal logs at error level and exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.log(slog.LevelError, msg, append(args, "fatal", true)...)
	os.Exit(1)
}

func (l *Logger) WithContext(ctx context.Context) glog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Logger{base: l.base, ctx: ctx}
}

// WithFields attaches fields in key order so output is stable.
func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return &Logger{base: l.base.With(args...), ctx: l.ctx}
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	l.base.Log(l.ctx, level, msg, args...)
}

// Provider hands out named children of one Logger.
type Provider struct {
	root *Logger
}

func NewProvider(root *Logger) *Provider {
	if root == nil {
		root = New(nil)
	}
	return &Provider{root: root}
}

func (p *Provider) GetLogger(name string) glog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.root
	}
	return &Logger{base: p.root.base.With("logger", name), ctx: p.root.ctx}
}

func renameTrace(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelTrace {
		attr.Value = slog.StringValue("TRACE")
	}
	return attr
}

var (
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
	_ glog.LoggerProvider = (*Provider)(nil)
)
