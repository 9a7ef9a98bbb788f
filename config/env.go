package config

import (
	"errors"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

var (
	// EnvPrefix defines name prefix for environment variables
	// with struct-path selector and value, for example:
	//    WALLTIME_WATCHDOG_THRESHOLD=2s
	EnvPrefix = "WALLTIME_"
	// ConfigEnv defines environment variable for config file path, overrides the ConfigName
	ConfigEnv = "WALLTIME_CONFIG"
	// ConfigName defines default filename for look in work directory if ConfigEnv is empty
	ConfigName = "walltime_config.yaml"
)

// BindFlags adds the config selection flags to the command flag set
func BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&EnvPrefix, "env-prefix", EnvPrefix,
		`prefix for environment variables, "WALLTIME_" by default`)
	flags.StringVar(&ConfigEnv, "config-env", ConfigEnv,
		`environment variable for config file path, "WALLTIME_CONFIG" by default`)
}

// normalizeEnvNames keeps ConfigEnv under the active EnvPrefix
func normalizeEnvNames() {
	ConfigEnv = strings.TrimPrefix(ConfigEnv, "WALLTIME_")
	ConfigEnv = strings.TrimPrefix(ConfigEnv, EnvPrefix)
	ConfigEnv = EnvPrefix + ConfigEnv
}

func applyEnv(v ...interface{}) error {
	var ee []error
	for i := range v {
		if err := env.ParseWithOptions(v[i], env.Options{Prefix: EnvPrefix}); err != nil {
			ee = append(ee, err)
		}
	}
	return errors.Join(ee...)
}
