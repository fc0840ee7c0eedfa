package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibeckermayer/ytsubtest/internal/config"
	"github.com/ibeckermayer/ytsubtest/internal/types"
)

// RunsCacheDir returns the directory run exports are written to.
// On Linux this is ~/.cache/ytsubtest/runs/
func RunsCacheDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "runs"), nil
}

// SaveRunJSON writes the run as indented JSON to a timestamped file in dir,
// or in RunsCacheDir when dir is empty. Returns the path to the saved file.
func SaveRunJSON(dir string, run *types.Run) (string, error) {
	if dir == "" {
		var err error
		if dir, err = RunsCacheDir(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	// Dashes instead of colons keep the name valid on every filesystem
	name := run.StartedAt.Format("2006-01-02T15-04-05")
	if len(run.ID) >= 8 {
		name += "_" + run.ID[:8]
	}
	filename := name + ".json"
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
