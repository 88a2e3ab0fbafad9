// Package config loads server configuration from a YAML file with
// environment variable overrides under the KAFKAVIZ_ prefix.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration tree.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Animation AnimationConfig `mapstructure:"animation"`
	Lessons   LessonsConfig   `mapstructure:"lessons"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// LoggingConfig mirrors the zap setup knobs.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AnimationConfig tunes the playback loop and frame fan-out.
type AnimationConfig struct {
	FrameInterval time.Duration `mapstructure:"frame_interval"`
	DefaultSpeed  float64       `mapstructure:"default_speed"`
	MaxSpeed      float64       `mapstructure:"max_speed"`
}

// LessonsConfig selects the lesson set served to clients.
type LessonsConfig struct {
	Dir     string `mapstructure:"dir"`
	Default string `mapstructure:"default"`
	Watch   bool   `mapstructure:"watch"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from the given file. A missing file is fine;
// defaults and KAFKAVIZ_* environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KAFKAVIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("animation.frame_interval", 50*time.Millisecond)
	v.SetDefault("animation.default_speed", 1.0)
	v.SetDefault("animation.max_speed", 4.0)

	v.SetDefault("lessons.dir", "")
	v.SetDefault("lessons.default", "producer-consumer")
	v.SetDefault("lessons.watch", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Animation.FrameInterval <= 0 {
		return fmt.Errorf("animation.frame_interval must be positive, got %s", c.Animation.FrameInterval)
	}
	if c.Animation.DefaultSpeed <= 0 {
		return fmt.Errorf("animation.default_speed must be positive, got %g", c.Animation.DefaultSpeed)
	}
	if c.Animation.MaxSpeed < c.Animation.DefaultSpeed {
		return fmt.Errorf("animation.max_speed %g is below animation.default_speed %g",
			c.Animation.MaxSpeed, c.Animation.DefaultSpeed)
	}
	if c.Lessons.Default == "" {
		return fmt.Errorf("lessons.default must name a lesson slug")
	}
	return nil
}
