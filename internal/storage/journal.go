package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/afl-stats/internal/record"
)

// RunLog is the persisted summary of the most recent pipeline run.
type RunLog struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Succeeded  []string         `json:"succeeded"`
	Failed     []string         `json:"failed"`
	Counts     map[string]int   `json:"counts"`
	Skipped    map[string]int   `json:"skipped"`
	Changes    []*record.Change `json:"changes"`
	UpdatedAt  string           `json:"updated_at"`
}

// Journal stores the run log next to the data partitions.
type Journal struct {
	dataDir string
}

// NewJournal creates a journal in dataDir, creating the directory if needed.
func NewJournal(dataDir string) (*Journal, error) {
	dataDir, err := ExpandPath(dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Journal{dataDir: dataDir}, nil
}

func (j *Journal) path() string {
	return filepath.Join(j.dataDir, "last_run.json")
}

// Load returns the last run log, or an empty one if no run was recorded.
func (j *Journal) Load() (*RunLog, error) {
	data, err := os.ReadFile(j.path())
	if err != nil {
		if os.IsNotExist(err) {
			return &RunLog{Counts: map[string]int{}, Skipped: map[string]int{}}, nil
		}
		return nil, fmt.Errorf("reading run log: %w", err)
	}

	var log RunLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parsing run log: %w", err)
	}
	if log.Counts == nil {
		log.Counts = map[string]int{}
	}
	if log.Skipped == nil {
		log.Skipped = map[string]int{}
	}
	return &log, nil
}

// Save writes the run log, replacing the previous one.
func (j *Journal) Save(log *RunLog) error {
	log.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run log: %w", err)
	}

	tmp := j.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	if err := os.Rename(tmp, j.path()); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	return nil
}
