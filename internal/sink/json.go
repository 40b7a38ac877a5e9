package sink

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// WriteFileAtomic replaces path with data via a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		return multierr.Combine(err, f.Close(), os.Remove(tmp))
	}
	if err := multierr.Combine(f.Sync(), f.Close()); err != nil {
		return multierr.Append(err, os.Remove(tmp))
	}
	if err := os.Rename(tmp, path); err != nil {
		return multierr.Append(err, os.Remove(tmp))
	}
	return nil
}

func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
