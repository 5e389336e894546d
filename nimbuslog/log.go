// Package nimbuslog wires structured logging through
// github.com/charmbracelet/log as an slog.Handler, the same shape the
// rest of the store's ambient logging uses: one named logger per
// component, with a context-carrying pair of helpers for request- or
// operation-scoped derivation. Unlike a fixed debug-everywhere logger,
// the level is configurable (nimbusconfig.LogConfig.Level) so a long
// running import doesn't drown its own progress output in per-row
// debug lines.
package nimbuslog

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a config string ("debug", "info", "warn", "error",
// case-insensitive) to a charmbracelet log level, defaulting to Info
// for anything unrecognised rather than failing startup over a typo in
// an env var.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewHandler builds the charmbracelet handler backing New, exported
// separately so callers that already have an *slog.Logger elsewhere
// can still get a matching handler.
func NewHandler(name string, level log.Level) slog.Handler {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          name,
		Level:           level,
	})
}

// New returns a named logger at the given level, e.g.
// nimbuslog.New("nimbus-logins", nimbuslog.ParseLevel(cfg.Log.Level)).
func New(name string, level log.Level) *slog.Logger {
	return slog.New(NewHandler(name, level))
}

type ctxKey struct{}

// IntoContext attaches a logger to ctx; use FromContext to retrieve
// it further down the call chain without threading it through every
// function signature.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or slog.Default() if
// ctx is nil or carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if v := ctx.Value(ctxKey{}); v != nil {
			return v.(*slog.Logger)
		}
	}
	return slog.Default()
}

// SubLogger derives a new logger from base by appending suffix to its
// existing charmbracelet prefix, for a component that wants its own
// named child logger (e.g. "nimbus-logins/import"). The child inherits
// base's level rather than resetting to Info.
func SubLogger(base *slog.Logger, suffix string) *slog.Logger {
	if cl, ok := base.Handler().(*log.Logger); ok {
		prefix := cl.GetPrefix()
		if prefix != "" {
			prefix = prefix + "/" + suffix
		} else {
			prefix = suffix
		}
		return slog.New(NewHandler(prefix, cl.GetLevel()))
	}
	return slog.New(NewHandler(suffix, log.InfoLevel))
}
