package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/de-tools/revenue-atlas/pkg/models/domain"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const (
	EnvPrefix              = "REVENUE_ATLAS"
	DefaultCredentialsFile = ".biodatacfg"
	DefaultTimeout         = 15 * time.Second
)

var DefaultProfile = ini.DefaultSection

type UpstreamSettings struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	Profile         string        `mapstructure:"profile"`
	CredentialsPath string        `mapstructure:"credentials_path"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type Settings struct {
	Upstream UpstreamSettings `mapstructure:"upstream"`
	// Schemas holds extra field candidates per report id, appended to the
	// built-in ones.
	Schemas map[string]domain.FieldSchema `mapstructure:"schemas"`
}

// LoadSettings reads path (yaml, json or toml) when given and applies
// REVENUE_ATLAS_* environment overrides, e.g. REVENUE_ATLAS_UPSTREAM_TIMEOUT=30s.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if cfg.Upstream.Timeout <= 0 {
		return nil, fmt.Errorf("upstream.timeout must be positive, got %s", cfg.Upstream.Timeout)
	}
	if cfg.Upstream.MaxConcurrency < 0 {
		return nil, fmt.Errorf("upstream.max_concurrency cannot be negative, got %d", cfg.Upstream.MaxConcurrency)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.timeout", DefaultTimeout)
	v.SetDefault("upstream.max_concurrency", 0)
	v.SetDefault("upstream.profile", DefaultProfile)
	v.SetDefault("upstream.credentials_path", defaultCredentialsPath())
	v.SetDefault("upstream.user_agent", "revenue-atlas")
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultCredentialsFile
	}
	return filepath.Join(home, DefaultCredentialsFile)
}
