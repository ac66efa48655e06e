package catalog

// CleanRecords strips the reserved metadata field from every record.
//
// The transformation is pure and 1:1: record count and order are
// preserved, input maps are left untouched, and records without the
// metadata key pass through as copies. Applying it twice yields the same
// result as applying it once.
func CleanRecords(records []Record) []Record {
	cleaned := make([]Record, len(records))
	for i, rec := range records {
		c := make(Record, len(rec))
		for k, v := range rec {
			if k == MetadataKey {
				continue
			}
			c[k] = v
		}
		cleaned[i] = c
	}
	return cleaned
}
