package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveLocal writes data to dir/jobID_name and returns the path.
func SaveLocal(dir, jobID, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create result dir: %w", err)
	}
	p := filepath.Join(dir, fmt.Sprintf("%s_%s", jobID, filepath.Base(name)))
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return p, nil
}
