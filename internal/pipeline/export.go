package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/faculty-cli/internal/config"
	"github.com/sells-group/faculty-cli/internal/model"
	"github.com/sells-group/faculty-cli/internal/store"
)

// ExportOptions carries the export-phase flags.
type ExportOptions struct {
	XLSX bool
}

// ExportSummary reports phase-end counts.
type ExportSummary struct {
	Rows int
	Path string
}

func (s ExportSummary) String() string {
	return fmt.Sprintf("export finished: rows=%d -> %s", s.Rows, s.Path)
}

// Export projects the normalized store onto the externally supplied CSV
// template and merges with any prior export under the record key.
func Export(cfg *config.Config, opts ExportOptions) (*ExportSummary, error) {
	header, err := store.ReadCSVHeader(cfg.Paths.TemplateCSV)
	if err != nil {
		return nil, eris.Wrap(err, "export: read template header")
	}

	records, err := store.ReadJSONL[model.EnrichedRecord](cfg.Paths.Normalized())
	if err != nil {
		return nil, err
	}

	outPath := cfg.Paths.FinalCSV()
	var prior []map[string]string
	if _, err := os.Stat(outPath); err == nil {
		prior, err = store.ReadCSVRows(outPath)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]map[string]string, 0, len(prior)+len(records))
	for _, row := range prior {
		rows = append(rows, projectRow(row, header))
	}
	for _, rec := range records {
		row := projectRow(recordFields(rec), header)
		if row["crawl_date"] == "" {
			row["crawl_date"] = todayStr()
		}
		rows = append(rows, row)
	}

	merged := store.Merge(nil, rows, rowKey)

	if err := store.WriteCSV(outPath, header, merged); err != nil {
		return nil, err
	}
	if opts.XLSX {
		if err := writeXLSX(cfg.Paths.FinalXLSX(), header, merged); err != nil {
			return nil, err
		}
	}

	return &ExportSummary{Rows: len(merged), Path: outPath}, nil
}

// recordFields flattens a record to its JSON field names, so the template
// header addresses fields directly.
func recordFields(rec model.EnrichedRecord) map[string]string {
	rec.Status = rec.CompletionStatus()

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}

	fields := make(map[string]string, len(generic))
	for k, v := range generic {
		if s, ok := v.(string); ok {
			fields[k] = s
		} else {
			fields[k] = fmt.Sprintf("%v", v)
		}
	}
	return fields
}

func projectRow(fields map[string]string, header []string) map[string]string {
	row := make(map[string]string, len(header))
	for _, name := range header {
		row[name] = fields[name]
	}
	return row
}

func rowKey(row map[string]string) string {
	return strings.Join([]string{
		row["department_name_zh"],
		row["school_name_zh"],
		row["name_zh"],
		row["name_en"],
	}, "|")
}

func writeXLSX(path string, header []string, rows []map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: mkdir xlsx")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("professors")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, name := range header {
		hr.AddCell().Value = name
	}
	for _, row := range rows {
		r := sheet.AddRow()
		for _, name := range header {
			r.AddCell().Value = row[name]
		}
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}
