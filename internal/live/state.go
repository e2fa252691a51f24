package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nifty-meanrev/internal/engine"
)

// State is what a live run carries to the next one.
type State struct {
	RunID   string       `json:"run_id"`
	Updated time.Time    `json:"updated"`
	Engine  engine.State `json:"engine"`
	// Exchange records where each held symbol was bought.
	Exchange map[string]string `json:"exchange"`
}

// LoadState reads path. ok is false when the file does not exist.
func LoadState(path string) (st *State, ok bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	st = &State{}
	if err := json.Unmarshal(b, st); err != nil {
		return nil, false, fmt.Errorf("parse state %s: %w", path, err)
	}
	if st.Exchange == nil {
		st.Exchange = map[string]string{}
	}
	return st, true, nil
}

// SaveState writes st next to path and renames it into place.
func SaveState(path string, st *State) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
