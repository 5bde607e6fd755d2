package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"aigenflow/internal/types"
)

// StateFileName is the session state file inside a session directory.
const StateFileName = "pipeline_state.json"

// PhaseResultsFile returns the results file name for phase n.
func PhaseResultsFile(n int) string {
	return fmt.Sprintf("phase%d_results.json", n)
}

// saveJSON writes v as indented JSON via temp file and rename, so readers
// never observe a partial file.
func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SaveSession persists the session state file into dir.
func SaveSession(dir string, s *types.Session) error {
	return saveJSON(filepath.Join(dir, StateFileName), s)
}

// LoadSession reads the session state file from dir.
func LoadSession(dir string) (*types.Session, error) {
	var s types.Session
	if err := loadJSON(filepath.Join(dir, StateFileName), &s); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

// SavePhaseResult persists one phase's results file into dir.
func SavePhaseResult(dir string, pr *types.PhaseResult) error {
	return saveJSON(filepath.Join(dir, PhaseResultsFile(pr.Phase)), pr)
}
