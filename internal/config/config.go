package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the connection settings shared by every command.
type Config struct {
	ServerURL string        `mapstructure:"server_url"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Verbose   bool          `mapstructure:"verbose"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		ServerURL: "http://localhost:5984",
		Timeout:   30 * time.Second,
	}
}

// Load reads configuration in priority order: defaults, then the
// config file, then COUCHCTL_* environment variables. With an empty
// path the file is discovered (couchctl.yaml in the current directory
// or under $HOME/.couchctl) and its absence is fine; an explicit path
// must exist.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("server_url", def.ServerURL)
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("verbose", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("couchctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.couchctl")
	}

	v.SetEnvPrefix("COUCHCTL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
