package dataset

import (
	"fmt"
	"strings"
)

// Metadata is a CSV table with a header row.
type Metadata struct {
	Header []string
	Rows   [][]string
}

// LoadMetadata reads a CSV file whose first row names the columns.
func LoadMetadata(path string) (*Metadata, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: %s is empty", path)
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	return &Metadata{Header: header, Rows: records[1:]}, nil
}

// Column returns every value of the named column. Header lookup ignores case.
func (m *Metadata) Column(name string) ([]string, error) {
	col := -1
	for i, h := range m.Header {
		if strings.EqualFold(h, name) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("dataset: metadata has no %q column", name)
	}
	out := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		if col >= len(row) {
			return nil, fmt.Errorf("dataset: metadata row %d has no %q value", i+1, name)
		}
		out[i] = strings.TrimSpace(row[col])
	}
	return out, nil
}
