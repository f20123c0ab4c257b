package core

// importer.go turns CSV files into new inventory items.
//
// The flow for one file:
//  1. Strip a BOM and sanitize UTF-8 (WrapCSVReader)
//  2. Parse every record; a parse error aborts before any item is produced
//  3. Reconcile the header row against the canonical fields (BuildHeaderMap)
//  4. Convert each data row, silently skipping rows with no content
//
// Rows keep file order: createdAt is a shared base timestamp plus the row
// index, so a "Newest" sort shows a batch in the order it was written.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportSummary reports what happened to the rows of one CSV file.
type ImportSummary struct {
	TotalRows int      `json:"totalRows"`
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	Unmapped  []string `json:"unmapped,omitempty"`
}

// Importer converts CSV rows into items. NewID and Now are injectable so
// tests get deterministic identities and timestamps.
type Importer struct {
	NewID func() string
	Now   func() time.Time
}

// NewImporter returns an Importer using random UUIDs and the wall clock.
func NewImporter() *Importer {
	return &Importer{
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

// ParseCSV reads a whole CSV file and converts its rows into items.
// The first non-empty record is the header row.
func (im *Importer) ParseCSV(r io.Reader) ([]Item, *ImportSummary, error) {
	reader := csv.NewReader(WrapCSVReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCSVUnreadable, err)
		}
		if isEmptyRecord(rec) {
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &ImportSummary{}, nil
	}

	headers := records[0]
	rows := records[1:]
	items := im.ConvertRows(headers, rows)

	return items, &ImportSummary{
		TotalRows: len(rows),
		Imported:  len(items),
		Skipped:   len(rows) - len(items),
		Unmapped:  BuildHeaderMap(headers).Unmapped(headers),
	}, nil
}

// ConvertRows maps data rows onto items using the reconciled header row.
// A header map is built once and used for every row of the file.
func (im *Importer) ConvertRows(headers []string, rows [][]string) []Item {
	if len(headers) == 0 {
		return nil
	}

	headerMap := BuildHeaderMap(headers)
	base := im.Now().UnixMilli()

	items := make([]Item, 0, len(rows))
	for i, row := range rows {
		var item Item
		for col, header := range headers {
			field, ok := headerMap[header]
			if !ok || col >= len(row) {
				continue
			}
			// headerMap only yields canonical names, which SetField always accepts.
			_ = item.SetField(field, strings.TrimSpace(row[col]))
		}

		// Checked before defaulting: the default category alone is not content.
		if item.IsBlank() {
			continue
		}
		if item.Category == "" {
			item.Category = DefaultCategory
		}

		item.ID = im.NewID()
		item.CreatedAt = base + int64(i)
		items = append(items, item)
	}

	return items
}

// isEmptyRecord reports whether a CSV line carries no data at all.
func isEmptyRecord(rec []string) bool {
	return len(rec) == 0 || (len(rec) == 1 && rec[0] == "")
}
