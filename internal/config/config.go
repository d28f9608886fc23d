// Package config holds the vibe-acmg configuration. Values come from, in
// increasing precedence: defaults, ~/.vibe-acmg.yaml, a .env file and
// VIBE_ACMG_* environment variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-acmg/internal/genome"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "VIBE_ACMG"

// FileName is the config file name looked up in the home directory.
const FileName = ".vibe-acmg.yaml"

// Config is the explicit configuration handed to the classifier and the
// outer layers at construction time.
type Config struct {
	GenomeBuild   string   `mapstructure:"genome_build"`
	Services      Services `mapstructure:"services"`
	HTTP          HTTP     `mapstructure:"http"`
	Cache         Cache    `mapstructure:"cache"`
	Panels        Panels   `mapstructure:"panels"`
	Regions       Regions  `mapstructure:"regions"`
	AlphaMissense Source   `mapstructure:"alphamissense"`
	ClinGen       Source   `mapstructure:"clingen"`
	Classify      Classify `mapstructure:"classify"`
	Server        Server   `mapstructure:"server"`
	Log           Log      `mapstructure:"log"`

	build genome.Build
}

// Services holds the annotation service base URLs.
type Services struct {
	MehariURL   string `mapstructure:"mehari_url"`
	AnnonarsURL string `mapstructure:"annonars_url"`
	DottyURL    string `mapstructure:"dotty_url"`
}

type HTTP struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// Cache configures the DuckDB response cache.
type Cache struct {
	Path    string `mapstructure:"path"`
	Enabled bool   `mapstructure:"enabled"`
}

type Panels struct {
	Path string `mapstructure:"path"` // extra TOML panel file
}

// Regions holds BED files for the repeat and protein-domain indexes.
type Regions struct {
	Repeats string `mapstructure:"repeats"`
	Domains string `mapstructure:"domains"`
}

// Source is a local data file.
type Source struct {
	Path string `mapstructure:"path"`
}

type Classify struct {
	Workers           int  `mapstructure:"workers"`
	DuplicationTandem bool `mapstructure:"duplication_tandem"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

var defaults = map[string]any{
	"genome_build":                "GRCh38",
	"services.mehari_url":         "https://reev.cubi.bihealth.org/internal/proxy/mehari",
	"services.annonars_url":       "https://reev.cubi.bihealth.org/internal/proxy/annonars",
	"services.dotty_url":          "https://reev.cubi.bihealth.org/internal/proxy/dotty",
	"http.timeout":                30 * time.Second,
	"http.retries":                3,
	"cache.path":                  "~/.vibe-acmg/cache.duckdb",
	"cache.enabled":               true,
	"panels.path":                 "",
	"regions.repeats":             "",
	"regions.domains":             "",
	"alphamissense.path":          "",
	"clingen.path":                "",
	"classify.workers":            0,
	"classify.duplication_tandem": false,
	"server.addr":                 ":8080",
	"log.level":                   "info",
	"log.development":             false,
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Keys returns the known config keys.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	return keys
}

// LoadDotEnv loads .env from the working directory if it exists.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Init sets defaults, environment binding and the config file on v and
// reads the file. cfgFile overrides ~/.vibe-acmg.yaml; a missing default
// file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	build, err := genome.ParseBuild(cfg.GenomeBuild)
	if err != nil {
		return Config{}, fmt.Errorf("genome_build: %w", err)
	}
	cfg.build = build

	if cfg.HTTP.Retries < 0 {
		return Config{}, fmt.Errorf("http.retries must not be negative, got %d", cfg.HTTP.Retries)
	}
	if cfg.Classify.Workers < 0 {
		return Config{}, fmt.Errorf("classify.workers must not be negative, got %d", cfg.Classify.Workers)
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, fmt.Errorf("log.level: %w", err)
	}

	for _, p := range []*string{
		&cfg.Cache.Path,
		&cfg.Panels.Path,
		&cfg.Regions.Repeats,
		&cfg.Regions.Domains,
		&cfg.AlphaMissense.Path,
		&cfg.ClinGen.Path,
	} {
		*p = expandHome(*p)
	}
	return cfg, nil
}

// Build returns the parsed default genome build.
func (c Config) Build() genome.Build {
	if c.build == 0 {
		return genome.GRCh38
	}
	return c.build
}

// NewLogger builds the root logger for c.
func (c Log) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
