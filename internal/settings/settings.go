// Package settings reads process settings from an optional file, the environment
// and an optional .env file.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TICKETLENS_DATA_DIR.
const EnvPrefix = "TICKETLENS"

// Settings are the process-level knobs. Analysis thresholds live in the YAML
// analysis config referenced by ConfigPath.
type Settings struct {
	DataDir      string `mapstructure:"data_dir"`
	DBPath       string `mapstructure:"db_path"`
	ConfigPath   string `mapstructure:"config_path"`
	StoplistPath string `mapstructure:"stoplist_path"`
	LogLevel     string `mapstructure:"log_level"`
	Schedule     string `mapstructure:"schedule"`
	LLM          LLM    `mapstructure:"llm"`
}

// LLM selects the optional narrative provider.
type LLM struct {
	Provider string `mapstructure:"provider"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Timeout  string `mapstructure:"timeout"`
}

// Load reads envFile (if it exists) into the environment, then the settings file at
// path (if non-empty), then TICKETLENS_* overrides.
func Load(path, envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("db_path", "")
	v.SetDefault("config_path", "")
	v.SetDefault("stoplist_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("schedule", "@every 1h")
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.api_key", "")
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}
