package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"itinerary/internal/model"
)

// ReadSeed loads a flat JSON catalog (the persisted layout: an ordered array of stores).
func ReadSeed(path string) ([]model.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stores []model.Store
	if err := json.Unmarshal(data, &stores); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for _, s := range stores {
		if err := Validate(s); err != nil {
			return nil, fmt.Errorf("seed %s: %w", path, err)
		}
	}
	return stores, nil
}

// WriteSeed writes stores as an indented JSON array, creating directories as needed.
func WriteSeed(path string, stores []model.Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if stores == nil {
		stores = []model.Store{}
	}
	data, err := json.MarshalIndent(stores, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
