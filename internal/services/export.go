// export.go
//
// Realtime collection service for form capture, admin tables and file uploads
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-collectionsdb.
// jam-build-collectionsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-collectionsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-collectionsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/localnerve/jam-build-collectionsdb/internal/forms"
	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/localnerve/jam-build-collectionsdb/internal/view"
	"github.com/xuri/excelize/v2"
)

// Format of an export download.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat reads a format name, defaulting to CSV.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ExportFileName names the download for a collection.
func ExportFileName(path string, f Format, at time.Time) string {
	base := strings.ReplaceAll(path, "/", "-")
	return fmt.Sprintf("%s-%s.%s", base, at.UTC().Format("2006-01-02"), f)
}

// CellValue renders one field for a spreadsheet cell. Timestamps become
// readable UTC times and file references their download URL.
func CellValue(key string, v any) string {
	if key == store.FieldTimestamp {
		switch ts := v.(type) {
		case float64:
			return time.UnixMilli(int64(ts)).UTC().Format("2006-01-02 15:04:05")
		case int64:
			return time.UnixMilli(ts).UTC().Format("2006-01-02 15:04:05")
		}
	}
	if m, ok := v.(map[string]any); ok {
		if url, ok := m["url"].(string); ok {
			return url
		}
	}
	return view.Stringify(v)
}

// Export writes a header row of column labels and one row per record.
func Export(w io.Writer, records []store.Record, columns []forms.Column, f Format, sheet string) error {
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Label
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = CellValue(c.Key, r.Fields[c.Key])
		}
		rows = append(rows, row)
	}

	switch f {
	case FormatXLSX:
		return writeXLSX(w, sheet, header, rows)
	case FormatCSV:
		return writeCSV(w, header, rows)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		escaped := make([]string, len(row))
		for i, v := range row {
			escaped[i] = escapeFormula(v)
		}
		if err := cw.Write(escaped); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// escapeFormula quotes text a spreadsheet app would otherwise evaluate.
func escapeFormula(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func writeXLSX(w io.Writer, sheet string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	// Sheet names are limited to 31 characters
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	all := append([][]string{header}, rows...)
	for i, values := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}
