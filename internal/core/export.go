package core

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ExportFilename is the download name for JSON exports.
const ExportFilename = "blakes-clothes-inventory.json"

// ExportCSVFilename is the download name for CSV exports.
const ExportCSVFilename = "blakes-clothes-inventory.csv"

// ExportJSON writes items as an indented JSON array. A nil slice is
// written as [].
func ExportJSON(w io.Writer, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// ExportCSV writes a header row of canonical field names followed by one
// row per item. The output imports back through Importer.ParseCSV.
func ExportCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)

	names := FieldNames()
	if err := cw.Write(names); err != nil {
		return err
	}

	row := make([]string, len(names))
	for _, item := range items {
		for i, name := range names {
			row[i], _ = item.Field(name)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// DecodeJSONImport reads a JSON export back into items. The document must
// be an array; elements that are not objects are skipped.
func DecodeJSONImport(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	items, err := decodeSnapshot(data)
	if errors.Is(err, ErrInvalidJSONFile) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSONFile, err)
	}
	return items, nil
}
