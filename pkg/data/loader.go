package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
)

// Frame is a delimited-text table held in memory as strings.
type Frame struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// ColumnIndex returns the index of name in the header, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, h := range f.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]string, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingColumn, name)
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// ReadCSV parses a comma-separated table whose first record is the header.
// Rows with a different field count than the header are rejected.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header", common.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		// Some exports carry a BOM on the first column name.
		header[i] = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	}

	frame := &Frame{Header: header}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", len(frame.Rows)+1, err)
		}
		frame.Rows = append(frame.Rows, rec)
	}
	return frame, nil
}

// LoadFile reads a local CSV file into a Frame.
func LoadFile(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}
