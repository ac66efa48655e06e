// Package export renders cleaned catalog records into tabular output
// formats: delimited text, spreadsheet, paginated document, and an
// optional Postgres sink.
package export

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/opendata-nc/prixnc-client/pkg/catalog"
)

// Dataset is the ordered sequence of cleaned records plus the derived
// column schema handed to the writers.
type Dataset struct {
	// Columns is the union of field names across all records, in
	// first-seen order.
	Columns []string

	// Records holds the cleaned records in accumulation order.
	Records []catalog.Record
}

// NewDataset derives the column schema for records.
//
// Columns appear in the order their record first appears; keys within a
// single record are sorted so the schema is deterministic regardless of
// map iteration order.
func NewDataset(records []catalog.Record) *Dataset {
	var columns []string
	seen := make(map[string]struct{})

	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}

	return &Dataset{Columns: columns, Records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.Records)
}

// Row stringifies record i into column order. Missing fields render as
// empty cells.
func (d *Dataset) Row(i int) []string {
	rec := d.Records[i]
	row := make([]string, len(d.Columns))
	for c, col := range d.Columns {
		v, ok := rec[col]
		if !ok {
			continue
		}
		row[c] = CellString(v)
	}
	return row
}

// CellString renders one JSON-decoded value as a table cell.
func CellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}
