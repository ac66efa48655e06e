package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/opendata-nc/prixnc-client/pkg/catalog"
)

func TestWriteCSV(t *testing.T) {
	ds := NewDataset([]catalog.Record{
		{"id": 1.0, "nom": "Riz parfumé"},
		{"id": 2.0, "nom": "Lait", "prix": 250.0},
	})
	path := filepath.Join(t.TempDir(), "produits.csv")

	if err := WriteCSV(ds, path); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], []string{"id", "nom", "prix"}) {
		t.Errorf("header = %v", rows[0])
	}
	if !reflect.DeepEqual(rows[1], []string{"1", "Riz parfumé", ""}) {
		t.Errorf("row 1 = %v", rows[1])
	}
	if !reflect.DeepEqual(rows[2], []string{"2", "Lait", "250"}) {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteCSV_EmptyDataset(t *testing.T) {
	ds := NewDataset(nil)
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := WriteCSV(ds, path); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	// Header-only file, possibly empty when there are no columns.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected output file: %v", err)
	}
}

func TestWriteCSV_BadPath(t *testing.T) {
	ds := NewDataset([]catalog.Record{{"id": 1.0}})

	if err := WriteCSV(ds, filepath.Join(t.TempDir(), "missing", "out.csv")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
