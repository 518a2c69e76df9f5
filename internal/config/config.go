package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	// Launch defaults
	Defaults DefaultsConfig `mapstructure:"defaults"`

	// Timing windows for discovery and teardown
	Timings TimingsConfig `mapstructure:"timings"`
}

// DefaultsConfig holds default values for launch requests
type DefaultsConfig struct {
	WorkDir         string `mapstructure:"work_dir"`
	Board           string `mapstructure:"board"`
	SimulationCmd   string `mapstructure:"simulation_cmd"`
	PreferredServer string `mapstructure:"preferred_server"` // "openocd" or "jlink"
	WrapEnv         string `mapstructure:"wrap_env"`
}

// TimingsConfig holds the wait windows used during discovery and teardown.
// Their correct values depend on the multiplexer's and firmware's startup
// latency, so all of them are overridable.
type TimingsConfig struct {
	SettleDelay      time.Duration `mapstructure:"settle_delay"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	Stabilization    time.Duration `mapstructure:"stabilization"`
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	ReadyTimeout     time.Duration `mapstructure:"ready_timeout"`
	InterruptSpacing time.Duration `mapstructure:"interrupt_spacing"`
	RestartGrace     time.Duration `mapstructure:"restart_grace"`
	StopGrace        time.Duration `mapstructure:"stop_grace"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format: "auto",
		Defaults: DefaultsConfig{
			Board:           "sitl",
			PreferredServer: "openocd",
			WrapEnv:         "FCDBG_WRAP",
		},
		Timings: TimingsConfig{
			SettleDelay:      time.Second,
			PollInterval:     time.Second,
			Stabilization:    3 * time.Second,
			DiscoveryTimeout: 60 * time.Second,
			ReadyTimeout:     10 * time.Second,
			InterruptSpacing: time.Second,
			RestartGrace:     time.Second,
			StopGrace:        3 * time.Second,
		},
	}
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("fcdbg")
	v.SetConfigType("yaml")

	// Config paths in order of precedence, lowest first
	v.AddConfigPath("/etc/fcdbg/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "fcdbg"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".fcdbg")
	}
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("FCDBG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "FCDBG_FORMAT")
	v.BindEnv("quiet", "FCDBG_QUIET")
	v.BindEnv("verbose", "FCDBG_VERBOSE")
	v.BindEnv("defaults.work_dir", "FCDBG_WORK_DIR")
	v.BindEnv("defaults.simulation_cmd", "FCDBG_SIMULATION_CMD")

	setDefaults(v)

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("defaults.board", cfg.Defaults.Board)
	v.SetDefault("defaults.preferred_server", cfg.Defaults.PreferredServer)
	v.SetDefault("defaults.wrap_env", cfg.Defaults.WrapEnv)
	v.SetDefault("timings.settle_delay", cfg.Timings.SettleDelay)
	v.SetDefault("timings.poll_interval", cfg.Timings.PollInterval)
	v.SetDefault("timings.stabilization", cfg.Timings.Stabilization)
	v.SetDefault("timings.discovery_timeout", cfg.Timings.DiscoveryTimeout)
	v.SetDefault("timings.ready_timeout", cfg.Timings.ReadyTimeout)
	v.SetDefault("timings.interrupt_spacing", cfg.Timings.InterruptSpacing)
	v.SetDefault("timings.restart_grace", cfg.Timings.RestartGrace)
	v.SetDefault("timings.stop_grace", cfg.Timings.StopGrace)
}
