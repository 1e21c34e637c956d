package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all client configuration
type Config struct {
	Remote Remote `mapstructure:"remote"`
	Cache  Cache  `mapstructure:"cache"`
	Client Client `mapstructure:"client"`
}

// Remote holds remote store endpoint configuration
type Remote struct {
	BaseURL          string        `mapstructure:"base_url"`
	WSURL            string        `mapstructure:"ws_url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
}

// Cache holds cache bounds
type Cache struct {
	MessageCapacity int `mapstructure:"message_capacity"`
}

// Client holds local client settings
type Client struct {
	MachineId uint16 `mapstructure:"machine_id"`
}

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued settings
func (c *Config) ApplyDefaults() {
	if c.Remote.RequestTimeout == 0 {
		c.Remote.RequestTimeout = 30 * time.Second
	}
	if c.Remote.DialTimeout == 0 {
		c.Remote.DialTimeout = 10 * time.Second
	}
	if c.Remote.ReconnectBackoff == 0 {
		c.Remote.ReconnectBackoff = time.Second
	}
	if c.Remote.MaxBackoff == 0 {
		c.Remote.MaxBackoff = 30 * time.Second
	}
	if c.Cache.MessageCapacity == 0 {
		c.Cache.MessageCapacity = 200
	}
	if c.Client.MachineId == 0 {
		c.Client.MachineId = 1
	}
}

// Default returns a config with all defaults applied, for tests and for
// embedding the engine without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}
