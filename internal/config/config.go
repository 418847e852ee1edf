// Package config holds the service configuration, loaded by layering
// defaults, an optional YAML file, and VINYASA_-prefixed environment
// variables.
package config

import "time"

// Config contains the process configuration for the comparison service.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StaticDir overrides the web asset directory. Empty means the usual
	// locations are searched at startup.
	StaticDir string `koanf:"static_dir"`

	// DatasetPath overrides the reference dataset JSON file. Empty means
	// the usual locations are searched at startup.
	DatasetPath string `koanf:"dataset_path"`

	// DetectorScript and DetectorPython override the landmarker script
	// and interpreter discovery.
	DetectorScript string `koanf:"detector_script"`
	DetectorPython string `koanf:"detector_python"`

	// DetectTimeoutMS bounds how long a single frame may wait for the
	// detector, in milliseconds.
	DetectTimeoutMS int `koanf:"detect_timeout_ms"`

	// MinDetectionConfidence and MinTrackingConfidence are passed to the
	// pose landmarker.
	MinDetectionConfidence float64 `koanf:"min_detection_confidence"`
	MinTrackingConfidence  float64 `koanf:"min_tracking_confidence"`

	// MetricsEnabled exposes Prometheus metrics on /metrics.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// QueueDepth bounds the detector work queue.
	QueueDepth int `koanf:"queue_depth"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Addr:                   ":8080",
		DetectTimeoutMS:        10000,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
		MetricsEnabled:         true,
		QueueDepth:             16,
	}
}

// DetectTimeout returns the detection timeout as a duration.
func (c *Config) DetectTimeout() time.Duration {
	return time.Duration(c.DetectTimeoutMS) * time.Millisecond
}
