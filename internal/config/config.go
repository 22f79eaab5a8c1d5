package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Service struct {
	Name          string  `yaml:"name"`
	RatePerSec    float64 `yaml:"rate_per_sec"`
	Burst         int     `yaml:"burst"`
	Workers       int     `yaml:"workers"`
	MinDelayMS    int     `yaml:"min_delay_ms"`
	QueueCapacity int     `yaml:"queue_capacity"`
}

type Observability struct {
	LogLevel       string `yaml:"log_level"`       // "debug","info","warn","error"
	MetricsAddr    string `yaml:"metrics_addr"`    // e.g. ":9109", empty disables
	PrometheusPath string `yaml:"prometheus_path"` // e.g. "/metrics"
}

type Cache struct {
	Enabled    bool `yaml:"enabled"`
	TTLSeconds int  `yaml:"ttl_seconds"`
}

type Root struct {
	Services          []Service     `yaml:"services"`
	Observability     Observability `yaml:"observability"`
	Cache             Cache         `yaml:"cache"`
	ShutdownTimeoutMS int           `yaml:"shutdown_timeout_ms"`
}

func (s Service) MinDelay() time.Duration {
	return time.Duration(s.MinDelayMS) * time.Millisecond
}

func (c Cache) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

func (r Root) ShutdownTimeout() time.Duration {
	if r.ShutdownTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.ShutdownTimeoutMS) * time.Millisecond
}

// Default returns the built-in per-service rate parameters. The numbers are
// deliberately conservative: market data allows 60/min on the free tier so
// 0.8/s stays under it with margin, the news API free tier is close to
// unusable past 1 request per 5s, and local inference is paced to keep the
// machine responsive.
func Default() *Root {
	return &Root{
		Services: []Service{
			{Name: "market-data", RatePerSec: 0.8, Burst: 3, Workers: 1, MinDelayMS: 250, QueueCapacity: 100},
			{Name: "news", RatePerSec: 0.2, Burst: 2, Workers: 1, MinDelayMS: 250, QueueCapacity: 100},
			{Name: "ai-inference", RatePerSec: 0.33, Burst: 1, Workers: 1, MinDelayMS: 500, QueueCapacity: 100},
		},
		Observability: Observability{
			LogLevel:       "info",
			MetricsAddr:    ":9109",
			PrometheusPath: "/metrics",
		},
		Cache:             Cache{Enabled: true, TTLSeconds: 300},
		ShutdownTimeoutMS: 5000,
	}
}

// Load reads the yaml config at path. A missing file is not an error: the
// built-in defaults are used so the tool runs out of the box.
func Load(path string) (*Root, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Root
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Services) == 0 {
		cfg.Services = Default().Services
	}
	for i := range cfg.Services {
		s := &cfg.Services[i]
		if s.Name == "" {
			return nil, fmt.Errorf("config: service %d has no name", i)
		}
		if s.RatePerSec <= 0 {
			return nil, fmt.Errorf("config: service %q: rate_per_sec must be positive", s.Name)
		}
		if s.Burst <= 0 {
			s.Burst = 1
		}
		if s.Workers <= 0 {
			s.Workers = 1
		}
		if s.QueueCapacity <= 0 {
			s.QueueCapacity = 100
		}
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 300
	}

	return &cfg, nil
}
