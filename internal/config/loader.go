package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load reads configuration from the given file (optional), environment
// variables prefixed with FLOODGUARD_, and built-in defaults, then validates
// the result. The viper instance is returned so callers can watch the file
// for changes.
func Load(configPath string) (*Config, *viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/floodguard")
	}

	v.SetEnvPrefix("FLOODGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env cover local runs.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, v, nil
}

// Watch re-reads the config file on change and hands the re-validated result
// to onChange. Invalid edits are dropped; the running config is untouched.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		if err := cfg.Validate(); err != nil {
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("cache.flood_risk_ttl", 300)
	v.SetDefault("cache.nowcast_ttl", 600)
	v.SetDefault("cache.anomaly_ttl", 60)
	v.SetDefault("cache.batch_ttl", 180)
	v.SetDefault("cache.evacuation_ttl", 900)
	v.SetDefault("cache.local_fallback", true)

	v.SetDefault("models.warmup", true)

	v.SetDefault("models.risk_scorer.name", "flood_risk_scorer")
	v.SetDefault("models.risk_scorer.version", "1.0.0")
	v.SetDefault("models.risk_scorer.path", "models/flood_risk_scorer_v1.json")
	v.SetDefault("models.risk_scorer.algorithm", "calibrated_linear_ensemble")
	v.SetDefault("models.risk_scorer.accuracy", 0.9699)
	v.SetDefault("models.risk_scorer.trained_date", "2025-06-01")
	v.SetDefault("models.risk_scorer.training_samples", 50000)

	v.SetDefault("models.nowcaster.name", "flood_nowcaster")
	v.SetDefault("models.nowcaster.version", "1.0.0")
	v.SetDefault("models.nowcaster.path", "models/flood_nowcaster_v1.json")
	v.SetDefault("models.nowcaster.algorithm", "recency_weighted_sequence")
	v.SetDefault("models.nowcaster.accuracy", 0.933)
	v.SetDefault("models.nowcaster.trained_date", "2025-06-01")
	v.SetDefault("models.nowcaster.training_samples", 20000)
	v.SetDefault("models.nowcaster.sequence_length", 7)

	v.SetDefault("models.anomaly_detector.name", "sensor_anomaly_detector")
	v.SetDefault("models.anomaly_detector.version", "1.0.0")
	v.SetDefault("models.anomaly_detector.path", "models/sensor_anomaly_detector_v1.json")
	v.SetDefault("models.anomaly_detector.algorithm", "baseline_deviation")
	v.SetDefault("models.anomaly_detector.accuracy", 0.985)
	v.SetDefault("models.anomaly_detector.trained_date", "2025-06-01")
	v.SetDefault("models.anomaly_detector.training_samples", 120000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "floodguard-serving")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.sampling_rate", 0.1)

	v.SetDefault("monitoring.pprof_enabled", false)
}
