package logzer

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCondense(t *testing.T) {
	logFile, _ := os.CreateTemp("", "log")
	require.NoError(t, logFile.Close())
	defer os.Remove(logFile.Name())

	w := NewLoggerWriter(
		WithCondense(200*time.Millisecond),
		WithLevel(zerolog.DebugLevel),
		WithLogFile(&LogFile{FilePath: logFile.Name()}))
	log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logfun := func(lvl zerolog.Level, msg string) { log.WithLevel(lvl).Msg(msg) }
	logfun(zerolog.DebugLevel, "message debug")
	logfun(zerolog.InfoLevel, "message info")
	logfun(zerolog.InfoLevel, "message info") // expect condense
	logfun(zerolog.InfoLevel, "message info") // expect condense

	content, err := os.ReadFile(logFile.Name())
	assert.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(content, []byte("\n")))

	time.Sleep(time.Second) // expect condense output
	content, err = os.ReadFile(logFile.Name())
	assert.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(content, []byte("\n")))
	assert.Contains(t, string(content), `condensed 2 more entries`)
}

func TestLogRotate(t *testing.T) {
	logFile, _ := os.CreateTemp("", "log")
	require.NoError(t, logFile.Close())
	defer os.Remove(logFile.Name())
	defer os.Remove(logFile.Name() + ".1")
	defer os.Remove(logFile.Name() + ".2")

	f := &LogFile{FilePath: logFile.Name(), MaxSize: 100, Rotate: 2}
	line := []byte(strings.Repeat("x", 59) + "\n")
	for _, c := range []byte("abc") {
		line[0] = c
		n, err := f.Write(line)
		require.NoError(t, err)
		require.Equal(t, len(line), n)
	}
	require.NoError(t, f.Close())

	current, err := os.ReadFile(logFile.Name())
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(current, []byte("c")))
	rotated1, err := os.ReadFile(logFile.Name() + ".1")
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(rotated1, []byte("b")))
	rotated2, err := os.ReadFile(logFile.Name() + ".2")
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(rotated2, []byte("a")))
}

func TestLastErrors(t *testing.T) {
	w := NewLoggerWriter(WithLastErrors(3), WithLevel(zerolog.InfoLevel))
	logger := zerolog.New(w)
	for _, msg := range []string{"e1", "e2", "w3", "e4", "e5"} {
		if msg[0] == 'e' {
			logger.Error().Msg(msg)
		} else {
			logger.Warn().Msg(msg)
		}
	}

	records := LastErrors()
	require.Len(t, records, 3)
	got := []string{}
	for _, r := range records {
		b, err := r.MarshalJSON()
		require.NoError(t, err)
		got = append(got, string(b))
	}
	assert.Contains(t, got[0], `"e2"`)
	assert.Contains(t, got[2], `"e5"`)
}

func TestWriteLogBuffer(t *testing.T) {
	lb := &LogBuffer{Level: zerolog.TraceLevel, Size: 4}
	logger := zerolog.New(lb)
	logger.Debug().Msg("buffered debug")
	logger.Info().Msg("buffered info")

	var out bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	WriteLogBuffer(lb, zerolog.MultiLevelWriter(&out))
	assert.NotContains(t, out.String(), "buffered debug")
	assert.Contains(t, out.String(), "buffered info")
}

func TestLogFilter(t *testing.T) {
	logFile, _ := os.CreateTemp("", "log")
	require.NoError(t, logFile.Close())
	defer os.Remove(logFile.Name())

	w := NewLoggerWriter(
		WithLevel(zerolog.InfoLevel),
		WithLogFile(&LogFile{FilePath: logFile.Name()}))
	logger := zerolog.New(w)
	logger.Error().
		Str("pin", "1234").
		Str("configData", "controller:\n  pin: 5678\n  addr: \":8097\"\nlog:\n  token: \"TOKEN\"\n").
		RawJSON("controller", []byte(`{"addr":":8097","Pin":"4321","apiToken":"TOK\"EN"}`)).
		Msg("could not parse config")

	content, err := os.ReadFile(logFile.Name())
	require.NoError(t, err)
	records := LastErrors()
	require.NotEmpty(t, records)
	last, err := records[len(records)-1].MarshalJSON()
	require.NoError(t, err)

	for _, out := range []string{string(content), string(last)} {
		for _, secret := range []string{"1234", "5678", "4321", "TOK"} {
			assert.NotContains(t, out, secret)
		}
		assert.Contains(t, out, `"Pin":"***"`)
		assert.Contains(t, out, `"apiToken":"***"`)
		assert.Contains(t, out, `pin: ***`)
		assert.Contains(t, out, `token: ***`)
		assert.Contains(t, out, `":8097"`)
	}
	assert.Contains(t, string(last), `"pin":"***"`)
}
