// Package app provides the main application logic for the Vinyasa pose comparison service.
package app

import (
	"errors"
	"log"
	"os"
	"sync"

	"github.com/ayusman/vinyasa/internal/compare"
	"github.com/ayusman/vinyasa/internal/config"
	"github.com/ayusman/vinyasa/internal/dataset"
	"github.com/ayusman/vinyasa/internal/detector"
	"github.com/ayusman/vinyasa/internal/engine"
	"github.com/ayusman/vinyasa/internal/server"
)

// App assembles the service: the reference poses, the pose detector, the
// frame engine, and the HTTP/WebSocket server.
type App struct {
	config   config.Config
	refs     *compare.ReferenceSet
	detector detector.Detector
	engine   *engine.Engine
	server   *server.Server
	mu       sync.RWMutex
}

// New resolves the application's dependencies from the given configuration.
// A missing reference dataset is not fatal: the server runs with an empty
// reference set until refbuild produces one.
func New(cfg config.Config) (*App, error) {
	refs, err := loadReferences(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}

	a := &App{
		config: cfg,
		refs:   refs,
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(detector.Config{
		MinDetectionConfidence: cfg.MinDetectionConfidence,
		MinTrackingConfidence:  cfg.MinTrackingConfidence,
		ScriptPath:             cfg.DetectorScript,
		PythonPath:             cfg.DetectorPython,
	}); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetDetector sets the pose detector implementation to use. It must be
// called before Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// References returns the aggregated reference poses.
func (a *App) References() *compare.ReferenceSet {
	return a.refs
}

// Engine returns the frame engine, or nil before Start.
func (a *App) Engine() *engine.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.engine
}

// Server returns the HTTP server, or nil before Start.
func (a *App) Server() *server.Server {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.server
}

// Start builds the frame engine around the chosen detector and wires the
// HTTP server. The caller still owns listening, via Server().ListenAndServe.
func (a *App) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.engine != nil {
		return
	}

	a.engine = engine.New(engine.Config{
		Detector:      a.detector,
		References:    a.refs,
		QueueDepth:    a.config.QueueDepth,
		DetectTimeout: a.config.DetectTimeout(),
	})
	a.server = server.New(server.Config{
		StaticDir:      a.config.StaticDir,
		Engine:         a.engine,
		MetricsEnabled: a.config.MetricsEnabled,
	})

	log.Println("Pose engine started")
}

// Stop drains the frame engine and releases the detector.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine == nil {
		return
	}

	if err := a.engine.Close(); err != nil {
		log.Printf("Error closing engine: %v", err)
	}
	a.engine = nil
	a.server = nil

	log.Println("Pose engine stopped")
}

// loadReferences reads the dataset file and aggregates it into per-label
// reference poses. A missing file leaves the set empty.
func loadReferences(path string) (*compare.ReferenceSet, error) {
	if path == "" {
		log.Println("No reference dataset configured, run refbuild to generate one")
		return compare.BuildReferences(nil), nil
	}

	f, err := dataset.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("No reference dataset found at %s", path)
		log.Println("Run refbuild to generate it")
		return compare.BuildReferences(nil), nil
	}
	if err != nil {
		return nil, err
	}

	rs := compare.BuildReferences(f.Samples)
	log.Printf("Loaded %d reference poses: %v", rs.Len(), rs.Labels())
	return rs, nil
}
