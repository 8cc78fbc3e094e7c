package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"StockSense/internal/model"
)

// LoadState reads the watchlist state from a JSON file. Returns an empty
// state if the file doesn't exist.
func LoadState(filePath string) (*model.WatchlistState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.WatchlistState{Users: map[string][]string{}}, nil
		}
		return nil, err
	}
	var state model.WatchlistState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	if state.Users == nil {
		state.Users = map[string][]string{}
	}
	return &state, nil
}

// SaveState writes the state to a temp file next to filePath and renames it
// into place, so readers never see a partial file.
func SaveState(filePath string, state *model.WatchlistState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}
