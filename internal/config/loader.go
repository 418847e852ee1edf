package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering, lowest precedence first:
//  1. defaults (New)
//  2. YAML file named by VINYASA_CONFIG, when set
//  3. environment variables with the VINYASA_ prefix
//
// Env keys map to flat config keys: VINYASA_QUEUE_DEPTH -> queue_depth.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("VINYASA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("VINYASA_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "vinyasa_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if cfg.DetectTimeoutMS <= 0 {
		return fmt.Errorf("detect_timeout_ms must be positive, got %d", cfg.DetectTimeoutMS)
	}
	if cfg.MinDetectionConfidence < 0 || cfg.MinDetectionConfidence > 1 {
		return fmt.Errorf("min_detection_confidence must be in [0,1], got %v", cfg.MinDetectionConfidence)
	}
	if cfg.MinTrackingConfidence < 0 || cfg.MinTrackingConfidence > 1 {
		return fmt.Errorf("min_tracking_confidence must be in [0,1], got %v", cfg.MinTrackingConfidence)
	}
	return nil
}
