package handlers

import (
	"fmt"
	"os"
	"path/filepath"
)

// probeOutputDir verifies the base output directory exists and is
// writable by creating and removing a marker file.
func probeOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	probe := filepath.Join(dir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	os.Remove(probe)
	return nil
}
