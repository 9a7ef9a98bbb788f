// Package watchdog samples the wall clock on a schedule and reports
// when it moves backward.
package watchdog

import (
	"sync"
	"time"

	"github.com/gwos/walltime/config"
	"github.com/gwos/walltime/sdk/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Watchdog periodically samples a clock.Clock
type Watchdog struct {
	mu      sync.Mutex
	sch     *cron.Cron
	tracker *clock.Tracker

	Schedule  string
	Threshold time.Duration

	registry    *prometheus.Registry
	now         prometheus.Gauge
	step        prometheus.Gauge
	regressions prometheus.Counter
	lastRegress prometheus.Gauge
}

// New returns a stopped Watchdog over c
func New(c clock.Clock, cfg config.Watchdog) *Watchdog {
	w := &Watchdog{
		tracker:   clock.NewTracker(c),
		Schedule:  cfg.Schedule,
		Threshold: cfg.Threshold,
		registry:  prometheus.NewRegistry(),
		now: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walltime_now_milliseconds",
			Help: "Wall clock at the last sample, milliseconds since the Unix epoch.",
		}),
		step: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walltime_step_milliseconds",
			Help: "Signed distance between the last two samples, negative when the clock moved backward.",
		}),
		regressions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "walltime_regressions_total",
			Help: "Samples that were earlier than the previous sample.",
		}),
		lastRegress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "walltime_last_regression_milliseconds",
			Help: "Size of the latest backward move of the clock.",
		}),
	}
	w.registry.MustRegister(w.now, w.step, w.regressions, w.lastRegress)
	return w
}

// Registry returns the registry holding the watchdog metrics
func (w *Watchdog) Registry() *prometheus.Registry {
	return w.registry
}

// Start schedules sampling, it is a no-op if already started
func (w *Watchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sch != nil {
		log.Warn().Msg("watchdog already started")
		return nil
	}
	sch := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		),
	)
	if _, err := sch.AddFunc(w.Schedule, func() { w.Check() }); err != nil {
		log.Err(err).Str("schedule", w.Schedule).Msg("could not schedule watchdog")
		return err
	}
	sch.Start()
	w.sch = sch
	log.Info().Str("schedule", w.Schedule).Msg("watchdog started")
	return nil
}

// Stop stops scheduling and waits for a running sample
func (w *Watchdog) Stop() {
	w.mu.Lock()
	sch := w.sch
	w.sch = nil
	w.mu.Unlock()
	if sch == nil {
		return
	}
	<-sch.Stop().Done()
	log.Info().Msg("watchdog stopped")
}

// Check takes one sample and updates metrics
func (w *Watchdog) Check() clock.Reading {
	r := w.tracker.Sample()
	w.now.Set(float64(r.At.UnixMilli()))
	if !r.Regressed {
		w.step.Set(float64(r.Step.Milliseconds()))
		log.Trace().Str("at", r.At.String()).Dur("step", r.Step).Msg("clock sampled")
		return r
	}

	w.step.Set(-float64(r.Step.Milliseconds()))
	w.regressions.Inc()
	w.lastRegress.Set(float64(r.Step.Milliseconds()))
	e := log.Warn()
	if r.Step >= w.Threshold {
		e = log.Error()
	}
	e.Str("at", r.At.String()).
		Dur("by", r.Step).
		Uint64("regressions", w.tracker.Regressions()).
		Msg("wall clock moved backward")
	return r
}

// Last returns the latest reading, ok is false before the first sample
func (w *Watchdog) Last() (clock.Reading, bool) {
	return w.tracker.Last()
}

// Regressions returns how many samples went backward
func (w *Watchdog) Regressions() uint64 {
	return w.tracker.Regressions()
}
