package pipeline

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfig reads pipeline configuration from configPath (any format
// viper supports — yaml, json, toml) layered over DefaultConfig. A bad
// config file is returned as an error for the caller to handle, not a
// panic.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("itchmd")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("pipeline: read config %q: %w", configPath, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("pipeline: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("pipeline: %w", err)
	}
	return cfg, nil
}
