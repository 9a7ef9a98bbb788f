package logzer

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSLogHandler(t *testing.T) {
	logFile, _ := os.CreateTemp("", "log")
	assert.NoError(t, logFile.Close())
	defer os.Remove(logFile.Name())

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	w := NewLoggerWriter(WithLogFile(&LogFile{FilePath: logFile.Name()}), WithLevel(zerolog.InfoLevel))
	log.Logger = zerolog.New(w).
		With().Timestamp().Caller().
		Logger()

	slogger := slog.New((&SLogHandler{CallerSkipFrame: 3}).
		WithGroup("walltime.sdk").
		WithAttrs([]slog.Attr{{Key: "foo", Value: slog.StringValue("bar")}}).
		WithGroup("clock"))

	slogger.LogAttrs(context.TODO(), slog.LevelWarn, "clock moved backward",
		slog.String("previous", "1970-01-01T00:00:01.000Z"), slog.Int("i", 111))
	slogger.Debug("__hidden__ message")

	content, err := os.ReadFile(logFile.Name())
	assert.NoError(t, err)
	assert.Contains(t, string(content), `logger=["walltime.sdk","clock"]`)
	assert.Contains(t, string(content), `clock moved backward`)
	assert.Contains(t, string(content), `previous=1970-01-01T00:00:01.000Z`)
	assert.Contains(t, string(content), `foo=bar`)
	assert.NotContains(t, string(content), `__hidden__`)
}

func TestSLogHandlerEnabled(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	h := &SLogHandler{}
	assert.False(t, h.Enabled(context.TODO(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.TODO(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.TODO(), slog.LevelError))
}
