// Package logzer builds the zerolog writer chain used by walltime
package logzer

import (
	"container/ring"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// errBuffer keeps the last error records across logger reconfigurations
var errBuffer = &LogBuffer{
	Level: zerolog.ErrorLevel,
	Size:  10,
}

var (
	jsonSecretRe = regexp.MustCompile(`((?i:password|token|pin)"[^:]*:[^"]*)"(?:[^\\"]*(?:\\")*[\\]*)*"`)
	yamlSecretRe = regexp.MustCompile(`((?i:password|token|pin):[ \t]*)(?:\\"[^\\]*\\"|[^\s\\"]+)`)
)

// SecretRe masks secrets in JSON fields and in YAML text logged as a string
var SecretRe = map[*regexp.Regexp][]byte{
	jsonSecretRe: []byte(`${1}"***"`),
	yamlSecretRe: []byte(`${1}***`),
}

type options struct {
	colors     bool
	condense   time.Duration
	lastErrors int
	level      *zerolog.Level
	logFile    io.WriteCloser
	timeFormat string
}

// Option defines logger option type
type Option func(*options)

// WithColors sets formatter option
func WithColors(b bool) Option {
	return func(o *options) { o.colors = b }
}

// WithCondense enables condensing similar records
func WithCondense(d time.Duration) Option {
	return func(o *options) { o.condense = d }
}

// WithLastErrors sets count of buffered error records
func WithLastErrors(n int) Option {
	return func(o *options) { o.lastErrors = n }
}

// WithLevel sets global level
func WithLevel(lvl zerolog.Level) Option {
	return func(o *options) { o.level = &lvl }
}

// WithLogFile adds file output in addition to stdout
func WithLogFile(w io.WriteCloser) Option {
	return func(o *options) { o.logFile = w }
}

// WithTimeFormat sets formatter option
func WithTimeFormat(s string) Option {
	return func(o *options) { o.timeFormat = s }
}

// NewLoggerWriter returns the writer chain:
// condenser -> filter -> console formatter (stdout and optional file) + error buffer
func NewLoggerWriter(opts ...Option) zerolog.LevelWriter {
	o := &options{lastErrors: errBuffer.Size, timeFormat: time.RFC3339}
	for _, opt := range opts {
		opt(o)
	}
	if o.level != nil {
		zerolog.SetGlobalLevel(*o.level)
	}
	if o.lastErrors != errBuffer.Size {
		lastErrors := LastErrors()
		*errBuffer = LogBuffer{Level: zerolog.ErrorLevel, Size: o.lastErrors}
		for _, p := range lastErrors {
			_, _ = errBuffer.WriteLevel(p.lvl, p.buf)
		}
	}

	var out io.Writer = os.Stdout
	if o.logFile != nil {
		out = io.MultiWriter(os.Stdout, o.logFile)
	}
	formatter := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    !o.colors,
		TimeFormat: o.timeFormat,
	}
	filter := &FilterWriter{
		LevelWriter: zerolog.MultiLevelWriter(formatter, errBuffer),
		Re:          SecretRe,
	}
	return &CondenseWriter{
		LevelWriter: filter,
		Condense:    o.condense,
	}
}

// FilterWriter sanitizes writes by Regexp map
type FilterWriter struct {
	zerolog.LevelWriter
	mu sync.Mutex
	Re map[*regexp.Regexp][]byte
}

// Write implements io.Writer interface
func (w *FilterWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter interface
func (w *FilterWriter) WriteLevel(lvl zerolog.Level, p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(p)
	for reg, repl := range w.Re {
		p = reg.ReplaceAll(p, repl)
	}
	if _, err := w.LevelWriter.WriteLevel(lvl, p); err != nil {
		return 0, err
	}
	return n, nil
}

// CondenseWriter collapses records of the same level and caller
// written within the Condense window into a single summary record
type CondenseWriter struct {
	zerolog.LevelWriter
	mu       sync.Mutex
	once     sync.Once
	cache    *cache.Cache
	callerRe *regexp.Regexp
	Condense time.Duration
}

// Write implements io.Writer interface
func (w *CondenseWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter interface
func (w *CondenseWriter) WriteLevel(lvl zerolog.Level, p []byte) (int, error) {
	if w.Condense <= 0 {
		return w.LevelWriter.WriteLevel(lvl, p)
	}
	w.once.Do(func() {
		w.cache = cache.New(w.Condense*2, w.Condense/4)
		w.cache.OnEvicted(w.flush)
		w.callerRe = regexp.MustCompile(`"` + zerolog.CallerFieldName + `":"[^"]*"`)
	})
	w.mu.Lock()
	defer w.mu.Unlock()

	ck := string(append([]byte{byte(lvl), ':'}, w.callerRe.Find(p)...))
	/* go-cache does not evict expired items on Get */
	w.cache.DeleteExpired()
	if _, ok := w.cache.Get(ck); ok {
		_ = w.cache.Increment(ck, 1)
		return len(p), nil
	}
	_ = w.cache.Add(ck, uint16(0), w.Condense)
	return w.LevelWriter.WriteLevel(lvl, p)
}

func (w *CondenseWriter) flush(ck string, i interface{}) {
	n := i.(uint16)
	if n == 0 {
		return
	}
	lvl, caller := zerolog.Level(ck[0]), ck[2:]
	buf := append(make([]byte, 0, 200), `{"`...)
	buf = append(buf, zerolog.LevelFieldName...)
	buf = append(buf, `":"`...)
	buf = append(buf, lvl.String()...)
	buf = append(buf, `","`...)
	buf = append(buf, zerolog.TimestampFieldName...)
	buf = append(buf, `":`...)
	buf = strconv.AppendInt(buf, time.Now().UnixMilli(), 10)
	if caller != "" {
		buf = append(buf, ',')
		buf = append(buf, caller...)
	}
	buf = append(buf, `,"`...)
	buf = append(buf, zerolog.MessageFieldName...)
	buf = append(buf, `":"[condensed `...)
	buf = strconv.AppendInt(buf, int64(n), 10)
	buf = append(buf, ` more entries]"}`...)
	buf = append(buf, '\n')
	_, _ = w.LevelWriter.WriteLevel(lvl, buf)
}

// LogBuffer collects writes if level passed
type LogBuffer struct {
	mu    sync.Mutex
	once  sync.Once
	ring  *ring.Ring
	Level zerolog.Level
	Size  int
}

// Records returns collected writes
func (lb *LogBuffer) Records() []LogRecord {
	lb.once.Do(lb.init)
	lb.mu.Lock()
	defer lb.mu.Unlock()
	rec := []LogRecord{}
	lb.ring.Do(func(p interface{}) {
		if p != nil {
			rec = append(rec, p.(LogRecord))
		}
	})
	return rec
}

// Write implements io.Writer interface
func (lb *LogBuffer) Write(p []byte) (int, error) {
	return lb.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter interface
func (lb *LogBuffer) WriteLevel(lvl zerolog.Level, p []byte) (int, error) {
	lb.once.Do(lb.init)
	lb.mu.Lock()
	defer lb.mu.Unlock()
	if lvl >= lb.Level && lvl != zerolog.NoLevel {
		/* store the copy as source could be updated */
		cp := make([]byte, len(p))
		copy(cp, p)
		lb.ring.Value = LogRecord{cp, lvl}
		lb.ring = lb.ring.Next()
	}
	return len(p), nil
}

func (lb *LogBuffer) init() {
	if lb.Size < 1 {
		lb.Size = 1
	}
	lb.ring = ring.New(lb.Size)
}

// LogRecord wraps JSON-like data from logger
type LogRecord struct {
	buf []byte
	lvl zerolog.Level
}

// MarshalJSON implements Marshaller interface
func (p LogRecord) MarshalJSON() ([]byte, error) { return p.buf, nil }

// LastErrors returns last error writes
func LastErrors() []LogRecord {
	return errBuffer.Records()
}

// WriteLogBuffer writes buffered data to w respecting the global level
func WriteLogBuffer(lb *LogBuffer, w zerolog.LevelWriter) {
	lvl := zerolog.GlobalLevel()
	for _, p := range lb.Records() {
		if p.lvl >= lvl {
			_, _ = w.WriteLevel(p.lvl, p.buf)
		}
	}
}
