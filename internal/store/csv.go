package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSVRows reads a CSV file into header-keyed maps, trimming whitespace
// and a leading UTF-8 BOM. Short rows pad missing columns with "".
func ReadCSVRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open csv %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "store: read csv %s", path)
	}
	if len(all) == 0 {
		return nil, nil
	}

	header := cleanHeader(all[0])
	rows := make([]map[string]string, 0, len(all)-1)
	for _, raw := range all[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(raw) {
				row[name] = strings.TrimSpace(raw[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCSVHeader returns the trimmed header row of a CSV file.
func ReadCSVHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open csv %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "store: read csv header %s", path)
	}
	return cleanHeader(header), nil
}

// WriteCSV writes rows in the given column order, filling absent fields
// with "".
func WriteCSV(path string, header []string, rows []map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "store: mkdir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "store: create csv %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "store: write csv header %s", path)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, name := range header {
			record[i] = row[name]
		}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "store: write csv row %s", path)
		}
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "store: flush csv %s", path)
}

func cleanHeader(raw []string) []string {
	header := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}
	return header
}
