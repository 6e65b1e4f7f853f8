// Package config loads arcmsrctl settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/pkg"
)

// Backend names.
const (
	BackendSim   = "sim"
	BackendLinux = "linux"
)

// FileName is the config file base name searched for in SearchPaths.
const FileName = "arcmsr"

// EnvPrefix prefixes every environment override, e.g. ARCMSR_LOG_LEVEL.
const EnvPrefix = "ARCMSR"

// SearchPaths are the directories searched for arcmsr.yaml, in order.
var SearchPaths = []string{".", "$HOME/.arcmsr", "/etc/arcmsr"}

// Config holds every setting arcmsrctl reads.
type Config struct {
	Backend            string        `mapstructure:"backend" json:"backend" yaml:"backend"`
	Device             string        `mapstructure:"device" json:"device" yaml:"device"`
	UIO                string        `mapstructure:"uio" json:"uio" yaml:"uio"`
	ScanInterval       time.Duration `mapstructure:"scan_interval" json:"scan_interval" yaml:"scan_interval"`
	MessageBuffer      int           `mapstructure:"message_buffer" json:"message_buffer" yaml:"message_buffer"`
	MaxOutstanding     int           `mapstructure:"max_outstanding" json:"max_outstanding" yaml:"max_outstanding"`
	FirmwareReadyTries int           `mapstructure:"firmware_ready_tries" json:"firmware_ready_tries" yaml:"firmware_ready_tries"`
	MessageWaitTries   int           `mapstructure:"message_wait_tries" json:"message_wait_tries" yaml:"message_wait_tries"`
	Debug              string        `mapstructure:"debug" json:"debug" yaml:"debug"`

	Log LogConfig `mapstructure:"log" json:"log" yaml:"log"`
	Sim SimConfig `mapstructure:"sim" json:"sim" yaml:"sim"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"file,omitempty" yaml:"file,omitempty"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// SimConfig describes the simulated adapter used by the sim backend.
type SimConfig struct {
	Model   string         `mapstructure:"model" json:"model" yaml:"model"`
	Echo    bool           `mapstructure:"echo" json:"echo" yaml:"echo"`
	Volumes []VolumeConfig `mapstructure:"volumes" json:"volumes" yaml:"volumes"`
}

// VolumeConfig attaches one unit to the simulator. File backs the unit
// with an image; otherwise Blocks sizes an in-memory disk.
type VolumeConfig struct {
	Target   int    `mapstructure:"target" json:"target" yaml:"target"`
	LUN      int    `mapstructure:"lun" json:"lun" yaml:"lun"`
	Blocks   uint64 `mapstructure:"blocks" json:"blocks,omitempty" yaml:"blocks,omitempty"`
	File     string `mapstructure:"file" json:"file,omitempty" yaml:"file,omitempty"`
	ReadOnly bool   `mapstructure:"read_only" json:"read_only,omitempty" yaml:"read_only,omitempty"`
}

func setDefaults(v *viper.Viper) {
	def := adapter.DefaultConfig()
	v.SetDefault("backend", BackendSim)
	v.SetDefault("device", "")
	v.SetDefault("uio", "")
	v.SetDefault("scan_interval", def.ScanInterval)
	v.SetDefault("message_buffer", def.MessageBufferSize)
	v.SetDefault("max_outstanding", def.MaxOutstanding)
	v.SetDefault("firmware_ready_tries", def.FirmwareReadyTries)
	v.SetDefault("message_wait_tries", def.MessageWaitTries)
	v.SetDefault("debug", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("sim.model", "")
	v.SetDefault("sim.echo", false)
}

// Load reads the config file at path, or searches SearchPaths for
// arcmsr.yaml when path is empty. A missing file in the search paths is
// not an error; the defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		for _, dir := range SearchPaths {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that the adapter does not check itself.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendLinux:
	default:
		return fmt.Errorf("%w: backend %q", pkg.ErrInvalidParameter, c.Backend)
	}
	if _, ok := pkg.ParseLogLevel(c.Log.Level); !ok {
		return fmt.Errorf("%w: log level %q", pkg.ErrInvalidParameter, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", pkg.ErrInvalidParameter, c.Log.Format)
	}
	if _, err := pkg.ParseFacets(c.Debug); err != nil {
		return err
	}
	for i, vol := range c.Sim.Volumes {
		if vol.Target < 0 || vol.Target >= adapter.MaxTargets || vol.LUN < 0 || vol.LUN >= adapter.MaxLUNs {
			return fmt.Errorf("%w: sim volume %d at %d/%d", pkg.ErrInvalidParameter, i, vol.Target, vol.LUN)
		}
		if vol.File == "" && vol.Blocks == 0 {
			return fmt.Errorf("%w: sim volume %d has no size", pkg.ErrInvalidParameter, i)
		}
	}
	return c.Adapter().Validate()
}

// Adapter returns the adapter tunables.
func (c *Config) Adapter() adapter.Config {
	cfg := adapter.DefaultConfig()
	cfg.ScanInterval = c.ScanInterval
	cfg.MessageBufferSize = c.MessageBuffer
	cfg.MaxOutstanding = c.MaxOutstanding
	cfg.FirmwareReadyTries = c.FirmwareReadyTries
	cfg.MessageWaitTries = c.MessageWaitTries
	if facets, err := pkg.ParseFacets(c.Debug); err == nil {
		cfg.CheckCDB = facets&pkg.FacetSCSI != 0
	}
	return cfg
}

// ApplyLogging installs the log level, format and debug facets process-wide.
// verbose raises the level to debug.
func (c *Config) ApplyLogging(verbose bool) error {
	level, ok := pkg.ParseLogLevel(c.Log.Level)
	if !ok {
		return fmt.Errorf("%w: log level %q", pkg.ErrInvalidParameter, c.Log.Level)
	}
	if verbose {
		level = slog.LevelDebug
	}
	facets, err := pkg.ParseFacets(c.Debug)
	if err != nil {
		return err
	}

	pkg.SetLogLevel(level)
	format := pkg.LogFormatText
	if strings.EqualFold(c.Log.Format, "json") {
		format = pkg.LogFormatJSON
	}
	pkg.SetLogFormat(os.Stderr, format)
	pkg.SetDebugFacets(facets)
	return nil
}
