package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

const envPrefix = "QUANTSIM"

// Load reads CONFIG_PATH, or config.local.yaml at the module root. A missing default
// file is not an error: defaults and QUANTSIM_* variables still apply.
func Load() (*datamodels.QuantsimConfig, error) {
	configPath := os.Getenv("CONFIG_PATH")
	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(general.GetCurrentDir(), "..", "config.local.yaml")
	}
	if _, err := os.Stat(configPath); err != nil {
		if explicit {
			return nil, errors.Wrapf(err, "config file %s", configPath)
		}
		slog.Warn("No config file found, using defaults", "path", configPath)
		return LoadFile("")
	}
	return LoadFile(configPath)
}

// LoadFile builds the config from a single file plus defaults and environment. An
// empty path skips the file.
func LoadFile(configPath string) (*datamodels.QuantsimConfig, error) {
	v := viper.New()
	datamodels.SetConfigDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", configPath)
		}
	}

	var quantsimConfig datamodels.QuantsimConfig
	if err := v.Unmarshal(&quantsimConfig); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := quantsimConfig.Simulation.Validate(); err != nil {
		return nil, err
	}

	return &quantsimConfig, nil
}
