package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AppendArray pushes record onto the JSON array stored at path and rewrites the
// file. A missing file is treated as an empty array and its directory is created.
// A malformed existing file is reported as is: it means corrupted state.
func AppendArray(path string, record any) error {
	existing := make([]json.RawMessage, 0)
	if _, err := ReadJSON(path, &existing); err != nil {
		return err
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", path, err)
	}

	return WriteJSON(path, append(existing, encoded))
}

// AppendObject shallow-merges partial into the JSON object stored at path.
// Keys already present are overwritten.
func AppendObject[T any](path string, partial map[string]T) error {
	existing := make(map[string]json.RawMessage)
	if _, err := ReadJSON(path, &existing); err != nil {
		return err
	}
	if existing == nil {
		existing = make(map[string]json.RawMessage)
	}

	for key, value := range partial {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode %s for %s: %w", key, path, err)
		}
		existing[key] = encoded
	}

	return WriteJSON(path, existing)
}

// ReadJSON decodes the file at path into v. It reports false without error when
// the file does not exist.
func ReadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return true, nil
}

// WriteJSON replaces the file at path with the pretty-printed encoding of v.
// The content goes to a temporary sibling first and is renamed into place.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
