package logzer

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// SLogHandler translates slog.Record into zerolog.Event,
// used to route the SDK logger into the global zerolog logger
type SLogHandler struct {
	attrs  []slog.Attr
	groups []string

	CallerSkipFrame int
	GroupsFieldName string
}

func toZerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// Enabled implements slog.Handler interface
func (h *SLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toZerologLevel(level) >= zerolog.GlobalLevel()
}

// Handle implements slog.Handler interface
func (h *SLogHandler) Handle(_ context.Context, r slog.Record) error {
	e := zlog.WithLevel(toZerologLevel(r.Level))

	attr2e := func(attr slog.Attr) bool {
		switch attr.Value.Kind() {
		case slog.KindBool:
			e.Bool(attr.Key, attr.Value.Bool())
		case slog.KindDuration:
			e.Dur(attr.Key, attr.Value.Duration())
		case slog.KindFloat64:
			e.Float64(attr.Key, attr.Value.Float64())
		case slog.KindInt64:
			e.Int64(attr.Key, attr.Value.Int64())
		case slog.KindString:
			e.Str(attr.Key, attr.Value.String())
		case slog.KindTime:
			e.Time(attr.Key, attr.Value.Time())
		case slog.KindUint64:
			e.Uint64(attr.Key, attr.Value.Uint64())
		case slog.KindGroup:
			e.Str(attr.Key, attr.Value.String())
		default:
			e.Any(attr.Key, attr.Value.Resolve().Any())
		}
		return true
	}

	if len(h.groups) > 0 {
		name := h.GroupsFieldName
		if name == "" {
			name = "logger"
		}
		e.Strs(name, h.groups)
	}
	for _, attr := range h.attrs {
		attr2e(attr)
	}
	r.Attrs(attr2e)

	e.CallerSkipFrame(h.CallerSkipFrame).Msg(r.Message)
	return nil
}

// WithAttrs implements slog.Handler interface
func (h *SLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nested := h.clone()
	nested.attrs = append(nested.attrs, attrs...)
	return nested
}

// WithGroup implements slog.Handler interface
func (h *SLogHandler) WithGroup(name string) slog.Handler {
	nested := h.clone()
	nested.groups = append(nested.groups, name)
	return nested
}

func (h *SLogHandler) clone() *SLogHandler {
	return &SLogHandler{
		attrs:           append([]slog.Attr(nil), h.attrs...),
		groups:          append([]string(nil), h.groups...),
		CallerSkipFrame: h.CallerSkipFrame,
		GroupsFieldName: h.GroupsFieldName,
	}
}
