package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"camport/internal/domain"
	apperrors "camport/internal/errors"
)

type Config struct {
	Source     string `mapstructure:"source"`
	Dest       string `mapstructure:"dest"`
	LedgerPath string `mapstructure:"ledger"`
	RunLogPath string `mapstructure:"run_log"`

	SourceSubdirs   []string `mapstructure:"source_subdirs"`
	PhotoExtensions []string `mapstructure:"photo_extensions"`
	VideoExtensions []string `mapstructure:"video_extensions"`
	MonthNames      []string `mapstructure:"month_names"`

	Workers      int           `mapstructure:"workers"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	ToolsDir    string        `mapstructure:"tools_dir"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`

	ClockSkew    time.Duration `mapstructure:"clock_skew"`
	HashMaxBytes int64         `mapstructure:"hash_max_bytes"`

	OrganizeByDate bool `mapstructure:"organize_by_date"`
	Convert        bool `mapstructure:"convert"`
	HashIdentity   bool `mapstructure:"hash_identity"`
	Verbose        bool `mapstructure:"verbose"`
}

// Load reads configuration from an optional YAML file plus CAMPORT_*
// environment variables. Validation happens separately so callers can
// layer CLI flags on top first.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("camport")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.camport")

	v.SetEnvPrefix("CAMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, apperrors.Wrap(apperrors.InvalidConfig, "read config", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.InvalidConfig, "parse config", file, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_subdirs", []string{"DCIM"})
	v.SetDefault("photo_extensions", domain.DefaultPhotoExtensions())
	v.SetDefault("video_extensions", domain.DefaultVideoExtensions())
	v.SetDefault("month_names", domain.DefaultMonthNames())
	v.SetDefault("workers", 4)
	v.SetDefault("retry_count", 3)
	v.SetDefault("retry_backoff", "500ms")
	v.SetDefault("tool_timeout", "5m")
	v.SetDefault("clock_skew", "48h")
	v.SetDefault("hash_max_bytes", int64(512<<20))
	v.SetDefault("organize_by_date", true)
	v.SetDefault("convert", false)
	v.SetDefault("hash_identity", false)
}

// Validate checks required fields and derives dependent defaults.
func (c *Config) Validate() error {
	if c.Source == "" {
		return apperrors.New(apperrors.InvalidConfig, "validate", "", "source is required")
	}
	if c.Dest == "" {
		return apperrors.New(apperrors.InvalidConfig, "validate", "", "dest is required")
	}
	if len(c.MonthNames) != 12 {
		return apperrors.New(apperrors.InvalidConfig, "validate", "", "month_names must have exactly 12 entries")
	}
	if c.Workers < 1 {
		return apperrors.New(apperrors.InvalidConfig, "validate", "", "workers must be at least 1")
	}
	if c.RetryCount < 0 {
		return apperrors.New(apperrors.InvalidConfig, "validate", "", "retry_count must not be negative")
	}
	if c.LedgerPath == "" {
		c.LedgerPath = filepath.Join(c.Dest, ".camport-ledger.jsonl")
	}
	return nil
}

func (c *Config) Extensions() domain.ExtensionSet {
	return domain.NewExtensionSet(c.PhotoExtensions, c.VideoExtensions)
}
