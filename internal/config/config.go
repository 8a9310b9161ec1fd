package config

import "time"

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Flodesk     FlodeskConfig     `yaml:"flodesk"`
	Redis       RedisConfig       `yaml:"redis"`
	Subscribers SubscribersConfig `yaml:"subscribers"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type FlodeskConfig struct {
	BaseURL string `yaml:"base_url"`
	// AuthScheme is how the API key is encoded into the Authorization
	// header: "bearer" or "basic". A provider contract detail, not logic.
	AuthScheme string        `yaml:"auth_scheme"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SubscribersConfig struct {
	// OnlyActive filters unsubscribed/inactive subscribers out of listings.
	OnlyActive bool `yaml:"only_active"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	// PerMinute caps requests per account over a one-minute sliding window.
	PerMinute int `yaml:"per_minute"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Flodesk: FlodeskConfig{
			BaseURL:    "https://api.flodesk.com/v1",
			AuthScheme: "bearer",
			Timeout:    15 * time.Second,
		},
		Redis: RedisConfig{
			Address:  "",
			DB:       0,
			PoolSize: 20,
		},
		Subscribers: SubscribersConfig{
			OnlyActive: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:   false,
			PerMinute: 120,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
	}
}
