// Package export writes the per-job manifest that sits next to the
// rendered GIFs and names downloadable files.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ManifestFile is the manifest's name inside a job's output directory.
const ManifestFile = "manifest.json"

type Manifest struct {
	JobID     string    `json:"job_id"`
	Prompt    string    `json:"prompt"`
	Duration  float64   `json:"duration_seconds"`
	NoAudio   bool      `json:"no_audio"`
	Fallback  bool      `json:"longest_fallback"`
	Segments  int       `json:"transcript_segments"`
	CreatedAt time.Time `json:"created_at"`
	Clips     []Clip    `json:"clips"`
}

type Clip struct {
	Index int     `json:"index"`
	File  string  `json:"file"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Score int     `json:"score"`
	Text  string  `json:"text"`
}

// WriteManifest stores m as indented JSON in dir, creating dir if needed.
func WriteManifest(dir string, m Manifest) (string, error) {
	if m.Clips == nil {
		m.Clips = []Clip{}
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create manifest dir: %w", err)
	}
	path := filepath.Join(dir, ManifestFile)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
