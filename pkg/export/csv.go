package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// WriteCSV renders the dataset as a comma-delimited file with a header
// row.
func WriteCSV(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(ds.Columns); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := 0; i < ds.Len(); i++ {
		if err := w.Write(ds.Row(i)); err != nil {
			f.Close()
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}

	log.Info().
		Str("path", path).
		Int("records", ds.Len()).
		Msg("CSV file created")
	return nil
}
