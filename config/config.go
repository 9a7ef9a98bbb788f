package config

import (
	stdlog "log"
	"log/slog"
	"os"
	"path"
	"sync"
	"time"

	"github.com/gwos/walltime/logzer"
	sdklog "github.com/gwos/walltime/sdk/log"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	once sync.Once
	cfg  *Config
)

// LogLevel defines levels in logrus-style
type LogLevel int

// Enum levels
const (
	Error LogLevel = iota
	Warn
	Info
	Debug
	Trace
)

func (l LogLevel) String() string {
	return [...]string{"Error", "Warn", "Info", "Debug", "Trace"}[l]
}

// Controller defines the HTTP API configuration
type Controller struct {
	// Addr accepts value for combined "host:port"
	// used as `http.Server{Addr}`
	Addr     string `env:"ADDR" yaml:"addr"`
	CertFile string `env:"CERTFILE" yaml:"certFile"`
	KeyFile  string `env:"KEYFILE" yaml:"keyFile"`
	// CORSOrigins lists origins allowed to call the API from a browser,
	// empty allows all
	CORSOrigins []string `env:"CORSORIGINS" yaml:"corsOrigins"`
	// Pin is required in the X-PIN header of API calls if set
	Pin string `env:"PIN" yaml:"pin"`

	ReadTimeout  time.Duration `env:"READTIMEOUT" yaml:"readTimeout"`
	WriteTimeout time.Duration `env:"WRITETIMEOUT" yaml:"writeTimeout"`
	StopTimeout  time.Duration `env:"STOPTIMEOUT" yaml:"stopTimeout"`
}

// Watchdog defines the clock sampling configuration
type Watchdog struct {
	Enabled bool `env:"ENABLED" yaml:"enabled"`
	// Schedule accepts cron spec with seconds field, like "*/5 * * * * *"
	// or descriptors like "@every 1s"
	Schedule string `env:"SCHEDULE" yaml:"schedule"`
	// Threshold defines the regression size logged at error level,
	// smaller regressions are logged as warnings
	Threshold time.Duration `env:"THRESHOLD" yaml:"threshold"`
}

// Log defines logging configuration
type Log struct {
	// Condense accepts time duration for condensing similar records
	// if 0 turn off condensing
	Condense time.Duration `env:"CONDENSE" yaml:"condense"`
	// File accepts file path to log in addition to stdout
	File        string `env:"FILE" yaml:"file"`
	FileMaxSize int64  `env:"FILEMAXSIZE" yaml:"fileMaxSize"`
	// Log files are rotated count times before being removed.
	// If count is 0, old versions are removed rather than rotated.
	FileRotate int      `env:"FILEROTATE" yaml:"fileRotate"`
	Level      LogLevel `env:"LEVEL" yaml:"level"`
	Colors     bool     `env:"COLORS" yaml:"colors"`
	TimeFormat string   `env:"TIMEFORMAT" yaml:"timeFormat"`
}

// Config defines walltime service configuration
type Config struct {
	Controller Controller `envPrefix:"CONTROLLER_" yaml:"controller"`
	Watchdog   Watchdog   `envPrefix:"WATCHDOG_" yaml:"watchdog"`
	Log        Log        `envPrefix:"LOG_" yaml:"log"`
}

func defaults() Config {
	return Config{
		Controller: Controller{
			Addr:         ":8097",
			ReadTimeout:  time.Second * 10,
			WriteTimeout: time.Second * 20,
			StopTimeout:  time.Second * 4,
		},
		Watchdog: Watchdog{
			Enabled:   true,
			Schedule:  "@every 1s",
			Threshold: time.Second,
		},
		Log: Log{
			Condense:    0,
			FileMaxSize: 1024 * 1024 * 10, // 10MB
			FileRotate:  5,
			Level:       Info,
			Colors:      false,
			TimeFormat:  time.RFC3339,
		},
	}
}

// GetConfig implements Singleton pattern
func GetConfig() *Config {
	once.Do(func() {
		/* buffer the logging while configuring */
		logBuf := &logzer.LogBuffer{
			Level: zerolog.TraceLevel,
			Size:  16,
		}
		log.Logger = zerolog.New(logBuf).
			With().Timestamp().Caller().Logger()
		log.Info().Msgf("Build info: %s / %s", buildTag, buildTime)

		cfg = load()
		w := cfg.initLogger()
		logzer.WriteLogBuffer(logBuf, w)
	})
	return cfg
}

// load merges defaults, file, and env
func load() *Config {
	normalizeEnvNames()
	c := new(Config)
	*c = defaults()
	if data, err := os.ReadFile(c.ConfigPath()); err != nil {
		log.Warn().Err(err).
			Str("configPath", c.ConfigPath()).
			Msg("could not read config")
	} else if err := yaml.Unmarshal(data, c); err != nil {
		log.Err(err).
			Str("configData", string(data)).
			Str("configPath", c.ConfigPath()).
			Msg("could not parse config")
	}
	if err := applyEnv(c); err != nil {
		log.Warn().Err(err).
			Msg("could not apply env vars")
	}
	return c
}

// ConfigPath returns config file path
func (cfg Config) ConfigPath() string {
	configPath := os.Getenv(ConfigEnv)
	if configPath == "" {
		configPath = ConfigName
		if wd, err := os.Getwd(); err == nil {
			configPath = path.Join(wd, ConfigName)
		}
	}
	return configPath
}

func (cfg Config) initLogger() zerolog.LevelWriter {
	if cfg.Log.Level > Trace {
		cfg.Log.Level = Trace
	}
	if cfg.Log.Level < Error {
		cfg.Log.Level = Error
	}
	lvl := [...]zerolog.Level{3, 2, 1, 0, -1}[cfg.Log.Level]
	if lvl <= zerolog.DebugLevel {
		cfg.Log.Condense = 0
	}
	opts := []logzer.Option{
		logzer.WithColors(cfg.Log.Colors),
		logzer.WithCondense(cfg.Log.Condense),
		logzer.WithLastErrors(10),
		logzer.WithLevel(lvl),
		logzer.WithTimeFormat(cfg.Log.TimeFormat),
	}
	if cfg.Log.File != "" {
		opts = append(opts, logzer.WithLogFile(&logzer.LogFile{
			FilePath: cfg.Log.File,
			MaxSize:  cfg.Log.FileMaxSize,
			Rotate:   cfg.Log.FileRotate,
		}))
	}

	/* prevent writes in global logger */
	log.Logger = zerolog.Nop()
	/* instants are millisecond counts, keep log timestamps alike */
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	w := logzer.NewLoggerWriter(opts...)
	log.Logger = zerolog.New(w).
		With().Timestamp().Caller().
		Logger()
	/* adapt SDK logger */
	sdklog.Logger = slog.New(&logzer.SLogHandler{CallerSkipFrame: 3})
	/* set as standard logger output */
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return w
}
