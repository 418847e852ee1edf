// Package dataset reads and writes the reference dataset file: the labeled,
// normalized training samples the reference aggregator consumes at startup.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ayusman/vinyasa/internal/pose"
)

// DefaultName identifies the dataset in the file header.
const DefaultName = "yoga_pose_reference"

// File is the persisted dataset structure.
type File struct {
	Dataset      string   `json:"dataset"`
	NumKeypoints int      `json:"num_keypoints"`
	Samples      []Sample `json:"samples"`
}

// Sample is one labeled training image: its normalized skeleton, joint
// angles, and mean keypoint confidence.
type Sample struct {
	ImageName      string        `json:"image_name"`
	PoseLabel      string        `json:"pose_label"`
	Keypoints      pose.Skeleton `json:"keypoints"`
	Angles         pose.AngleSet `json:"angles"`
	ConfidenceMean float64       `json:"confidence_mean"`
}

// New creates an empty dataset file with the default name.
func New() *File {
	return &File{
		Dataset:      DefaultName,
		NumKeypoints: pose.NumKeypoints,
		Samples:      []Sample{},
	}
}

// Load reads and validates a dataset file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}

	if f.NumKeypoints != pose.NumKeypoints {
		return nil, fmt.Errorf("dataset %s: num_keypoints = %d, want %d", path, f.NumKeypoints, pose.NumKeypoints)
	}

	return &f, nil
}

// Save writes the dataset file, creating parent directories as needed.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}
