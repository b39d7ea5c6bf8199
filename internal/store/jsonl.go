package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadJSONL loads every record from a newline-delimited JSON file. A
// missing file reads as an empty set; blank lines are skipped. Order
// within the file carries no meaning.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "store: open %s", path)
	}
	defer f.Close()

	var records []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, eris.Wrapf(err, "store: decode line in %s", path)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "store: scan %s", path)
	}

	return records, nil
}

// WriteJSONL persists records as one JSON object per line. The write is
// atomic: a temp file in the same directory is renamed over the target,
// so an interrupted run never leaves a truncated store behind.
func WriteJSONL[T any](path string, records []T) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "store: mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrap(err, "store: create temp file")
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return eris.Wrapf(err, "store: encode record for %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "store: flush %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "store: close temp for %s", path)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "store: rename into %s", path)
	}
	return nil
}
