package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/ayusman/vinyasa/internal/app"
	"github.com/ayusman/vinyasa/internal/config"
)

func main() {
	fmt.Println("Vinyasa - Yoga Pose Comparison")

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Fill in paths the configuration leaves open
	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir()
	}
	if cfg.StaticDir != "" {
		fmt.Printf("Serving static files from: %s\n", cfg.StaticDir)
	}
	if cfg.DatasetPath == "" {
		cfg.DatasetPath = findDataset()
	}

	a, err := app.New(*cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	a.Start()
	defer a.Stop()

	fmt.Printf("Starting server on %s\n", cfg.Addr)
	if err := a.Server().ListenAndServe(cfg.Addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.vinyasa/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".vinyasa", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

// findDataset searches for the reference dataset in common locations.
// It checks: "data/yoga_reference.json" (and two parent levels) and
// ~/.vinyasa/yoga_reference.json.
func findDataset() string {
	relativePaths := []string{
		"data/yoga_reference.json",
		"../data/yoga_reference.json",
		"../../data/yoga_reference.json",
	}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homePath := filepath.Join(homeDir, ".vinyasa", "yoga_reference.json")
	if info, err := os.Stat(homePath); err == nil && !info.IsDir() {
		return homePath
	}

	return ""
}
