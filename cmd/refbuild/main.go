package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/vinyasa/internal/dataset"
	"github.com/ayusman/vinyasa/internal/detector"
	"github.com/ayusman/vinyasa/internal/pose"
	"github.com/ayusman/vinyasa/internal/store"
)

// imageExtensions are the file types accepted as training images.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// labelCount tracks per-label progress through one build run.
type labelCount struct {
	processed int
	cached    int
	skipped   int
}

func main() {
	datasetDir := flag.String("dataset", "DATASET/TRAIN", "directory of per-pose training image folders")
	out := flag.String("out", "data/yoga_reference.json", "output dataset file")
	dbPath := flag.String("db", "", "sample database path (defaults to refbuild.db next to the output)")
	rebuild := flag.Bool("rebuild", false, "discard previously processed samples and start over")
	script := flag.String("script", "", "path to pose_landmarker.py (overrides discovery)")
	python := flag.String("python", "", "python interpreter (overrides discovery)")
	flag.Parse()

	fmt.Println("Vinyasa - Reference Dataset Builder")

	if info, err := os.Stat(*datasetDir); err != nil || !info.IsDir() {
		log.Fatalf("Dataset directory not found: %s", *datasetDir)
	}

	if *dbPath == "" {
		*dbPath = filepath.Join(filepath.Dir(*out), "refbuild.db")
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open sample database: %v", err)
	}
	defer st.Close()

	samples := st.Samples()
	if *rebuild {
		if err := samples.DeleteAll(); err != nil {
			log.Fatalf("Failed to clear previous samples: %v", err)
		}
		fmt.Println("Cleared previously processed samples")
	}

	// The builder needs the real landmarker; there is no point building
	// references from mock poses.
	dcfg := detector.DefaultConfig()
	dcfg.ScriptPath = *script
	dcfg.PythonPath = *python
	det, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		log.Fatalf("MediaPipe is required to build references: %v", err)
	}
	defer det.Close()

	labels, images, total := scanDataset(*datasetDir)
	fmt.Printf("Found pose labels: %v\n", labels)
	fmt.Printf("Output: %s\n\n", *out)

	start := time.Now()
	bar := pb.StartNew(total)

	counts := make(map[string]*labelCount, len(labels))
	for _, label := range labels {
		c := &labelCount{}
		counts[label] = c

		for _, name := range images[label] {
			bar.Increment()

			exists, err := samples.Exists(label, name)
			if err != nil {
				log.Fatalf("Failed to check sample %s/%s: %v", label, name, err)
			}
			if exists {
				c.cached++
				continue
			}

			path := filepath.Join(*datasetDir, label, name)
			img := gocv.IMRead(path, gocv.IMReadColor)
			if img.Empty() {
				img.Close()
				c.skipped++
				continue
			}

			skeleton, err := det.Detect(&img)
			img.Close()
			if err != nil {
				log.Fatalf("Failed to detect pose in %s: %v", path, err)
			}
			if skeleton == nil {
				c.skipped++
				continue
			}

			sample := &store.Sample{
				ID:             uuid.NewString(),
				ImageName:      name,
				PoseLabel:      label,
				Keypoints:      roundSkeleton(skeleton.Normalize()),
				Angles:         roundAngles(pose.ComputeAngles(*skeleton)),
				ConfidenceMean: roundTo(skeleton.MeanConfidence(), 4),
			}
			if err := samples.Create(sample); err != nil {
				log.Fatalf("Failed to store sample %s/%s: %v", label, name, err)
			}
			c.processed++
		}
	}
	bar.Finish()

	totalProcessed, totalSkipped := 0, 0
	for _, label := range labels {
		c := counts[label]
		totalProcessed += c.processed
		totalSkipped += c.skipped
		fmt.Printf("[%s] new %d, cached %d, skipped %d\n", label, c.processed, c.cached, c.skipped)
	}

	stored, err := samples.All()
	if err != nil {
		log.Fatalf("Failed to read stored samples: %v", err)
	}

	f := dataset.New()
	for _, s := range stored {
		f.Samples = append(f.Samples, dataset.Sample{
			ImageName:      s.ImageName,
			PoseLabel:      s.PoseLabel,
			Keypoints:      s.Keypoints,
			Angles:         s.Angles,
			ConfidenceMean: s.ConfidenceMean,
		})
	}
	if err := dataset.Save(*out, f); err != nil {
		log.Fatalf("Failed to write dataset: %v", err)
	}

	if err := st.Settings().Set("last_build_at", time.Now().Format(time.RFC3339)); err != nil {
		log.Printf("Failed to record build time: %v", err)
	}

	poseLabels, err := samples.Labels()
	if err != nil {
		log.Fatalf("Failed to list pose labels: %v", err)
	}

	fmt.Printf("\nDone in %.1fs\n", time.Since(start).Seconds())
	fmt.Printf("Total samples: %d (%d new, %d skipped)\n", len(stored), totalProcessed, totalSkipped)
	fmt.Printf("Poses: %v\n", poseLabels)
	fmt.Printf("Saved to: %s\n", *out)
}

// scanDataset lists the label directories and their image files, both in
// lexical order, plus the total image count.
func scanDataset(dir string) ([]string, map[string][]string, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("Failed to read dataset directory: %v", err)
	}

	var labels []string
	images := make(map[string][]string)
	total := 0

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		label := e.Name()

		files, err := os.ReadDir(filepath.Join(dir, label))
		if err != nil {
			log.Fatalf("Failed to read label directory %s: %v", label, err)
		}
		for _, f := range files {
			if f.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			images[label] = append(images[label], f.Name())
		}

		labels = append(labels, label)
		total += len(images[label])
	}

	return labels, images, total
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	f := math.Pow10(decimals)
	return math.Round(v*f) / f
}

// roundSkeleton rounds every keypoint component to six decimal places, the
// precision the dataset file carries.
func roundSkeleton(s pose.Skeleton) pose.Skeleton {
	for i := range s {
		s[i].X = roundTo(s[i].X, 6)
		s[i].Y = roundTo(s[i].Y, 6)
		s[i].Confidence = roundTo(s[i].Confidence, 6)
	}
	return s
}

// roundAngles rounds every defined angle to two decimal places.
func roundAngles(a pose.AngleSet) pose.AngleSet {
	for j := pose.Joint(0); j < pose.NumJoints; j++ {
		if v, ok := a.At(j); ok {
			a.Set(j, roundTo(v, 2))
		}
	}
	return a
}
