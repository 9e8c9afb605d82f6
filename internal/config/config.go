package config

import (
	"fmt"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Models     ModelsConfig     `mapstructure:"models"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

type RedisConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Addresses    []string `mapstructure:"addresses"`
	Password     string   `mapstructure:"password"`
	DB           int      `mapstructure:"db"`
	PoolSize     int      `mapstructure:"pool_size"`
	MinIdleConns int      `mapstructure:"min_idle_conns"`
	DialTimeout  int      `mapstructure:"dial_timeout"`  // in seconds
	ReadTimeout  int      `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int      `mapstructure:"write_timeout"` // in seconds
}

// CacheConfig holds per-kind TTLs for the prediction fingerprint cache.
// TTL expiry is the store's responsibility; the service never sweeps.
type CacheConfig struct {
	FloodRiskTTL  int `mapstructure:"flood_risk_ttl"`  // in seconds
	NowcastTTL    int `mapstructure:"nowcast_ttl"`     // in seconds
	AnomalyTTL    int `mapstructure:"anomaly_ttl"`     // in seconds
	BatchTTL      int `mapstructure:"batch_ttl"`       // in seconds
	EvacuationTTL int `mapstructure:"evacuation_ttl"`  // in seconds
	LocalFallback bool `mapstructure:"local_fallback"` // keep an in-process tier when Redis is down
}

// TTLFor returns the configured TTL for a cache kind, or a conservative
// default for kinds added without a matching knob.
func (c *CacheConfig) TTLFor(kind string) time.Duration {
	seconds := map[string]int{
		"flood_risk": c.FloodRiskTTL,
		"nowcast":    c.NowcastTTL,
		"anomaly":    c.AnomalyTTL,
		"batch":      c.BatchTTL,
		"evacuation": c.EvacuationTTL,
	}[kind]
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// ModelFamilyConfig is the fixed, validated metadata for one model family.
// It travels with the loaded handle so severity thresholds and sequence
// requirements always reflect the currently active artifact.
type ModelFamilyConfig struct {
	Name            string  `mapstructure:"name"`
	Version         string  `mapstructure:"version"`
	Path            string  `mapstructure:"path"`
	Algorithm       string  `mapstructure:"algorithm"`
	Accuracy        float64 `mapstructure:"accuracy"`
	TrainedDate     string  `mapstructure:"trained_date"`
	TrainingSamples int     `mapstructure:"training_samples"`
	SequenceLength  int     `mapstructure:"sequence_length"` // nowcaster only
}

type ModelsConfig struct {
	Warmup          bool              `mapstructure:"warmup"`
	RiskScorer      ModelFamilyConfig `mapstructure:"risk_scorer"`
	Nowcaster       ModelFamilyConfig `mapstructure:"nowcaster"`
	AnomalyDetector ModelFamilyConfig `mapstructure:"anomaly_detector"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

type MonitoringConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values. It runs once at
// startup; a serving process never starts with a half-formed model map.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Redis.Enabled && len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("redis.enabled is true but no addresses configured")
	}
	for _, fam := range []struct {
		key string
		cfg *ModelFamilyConfig
	}{
		{"models.risk_scorer", &c.Models.RiskScorer},
		{"models.nowcaster", &c.Models.Nowcaster},
		{"models.anomaly_detector", &c.Models.AnomalyDetector},
	} {
		if fam.cfg.Name == "" {
			return fmt.Errorf("%s.name is required", fam.key)
		}
		if fam.cfg.Path == "" {
			return fmt.Errorf("%s.path is required", fam.key)
		}
		if fam.cfg.Accuracy < 0 || fam.cfg.Accuracy > 1 {
			return fmt.Errorf("%s.accuracy out of range: %f", fam.key, fam.cfg.Accuracy)
		}
	}
	if c.Models.Nowcaster.SequenceLength <= 0 {
		return fmt.Errorf("models.nowcaster.sequence_length must be positive")
	}
	return nil
}
