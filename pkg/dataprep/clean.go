package dataprep

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/data"
)

// LabelColumn is the target column of the bank-marketing table.
const LabelColumn = "y"

// Dataset is a numeric feature matrix with its label vector.
type Dataset struct {
	FeatureNames []string
	X            [][]float64
	Y            []float64
}

// Rows returns the number of samples.
func (d *Dataset) Rows() int { return len(d.X) }

// Months maps three-letter month names to 1..12.
var Months = map[string]float64{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// Weekdays maps three-letter weekday names to 1..7.
var Weekdays = map[string]float64{
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

// binaryRules gives the value that encodes as 1 for each binarized column.
var binaryRules = map[string]string{
	"marital":  "married",
	"default":  "yes",
	"housing":  "yes",
	"loan":     "yes",
	"poutcome": "success",
}

var lookupRules = map[string]map[string]float64{
	"month":       Months,
	"day_of_week": Weekdays,
}

// oneHotColumns are expanded into indicator columns, appended in this order.
var oneHotColumns = []string{"job", "contact", "education"}

var requiredColumns = []string{
	"job", "marital", "default", "housing", "loan", "contact",
	"education", "month", "day_of_week", "poutcome", LabelColumn,
}

// missingMarkers are the cell values read as missing, matching the default
// NA strings of pandas' read_csv.
var missingMarkers = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true,
	"-1.#IND": true, "-1.#QNAN": true, "-NaN": true, "-nan": true,
	"1.#IND": true, "1.#QNAN": true, "<NA>": true, "N/A": true,
	"NA": true, "NULL": true, "NaN": true, "None": true,
	"n/a": true, "nan": true, "null": true,
}

// IsMissing reports whether a cell counts as a missing value.
func IsMissing(v string) bool {
	return missingMarkers[v]
}

// DropIncomplete returns a frame without the rows that contain any missing value,
// and for each kept row its index in f. Row order is preserved.
func DropIncomplete(f *data.Frame) (*data.Frame, []int) {
	out := &data.Frame{Header: f.Header, Rows: make([][]string, 0, len(f.Rows))}
	kept := make([]int, 0, len(f.Rows))
	for i, row := range f.Rows {
		complete := true
		for _, v := range row {
			if IsMissing(v) {
				complete = false
				break
			}
		}
		if complete {
			out.Rows = append(out.Rows, row)
			kept = append(kept, i)
		}
	}
	return out, kept
}

// Clean turns the raw bank-marketing frame into a numeric Dataset.
//
// Incomplete rows are dropped first. job, contact and education become
// "<column>_<value>" indicator columns appended after the remaining columns;
// yes/no style columns become 0/1; month and day_of_week go through the fixed
// lookup tables; every other column is parsed as a number. The y column is
// removed last and becomes the label vector.
func Clean(frame *data.Frame) (*Dataset, error) {
	for _, name := range requiredColumns {
		if frame.ColumnIndex(name) < 0 {
			return nil, fmt.Errorf("%w: %s", common.ErrMissingColumn, name)
		}
	}

	f, kept := DropIncomplete(frame)
	if dropped := frame.Len() - f.Len(); dropped > 0 {
		slog.Debug("Dropped incomplete rows", "dropped", dropped, "kept", f.Len())
	}
	if f.Len() == 0 {
		return nil, common.ErrEmptyDataset
	}

	skip := map[string]bool{LabelColumn: true}
	for _, c := range oneHotColumns {
		skip[c] = true
	}

	var names []string
	var columns [][]float64

	for j, name := range f.Header {
		if skip[name] {
			continue
		}
		col := make([]float64, f.Len())
		for i, row := range f.Rows {
			v, err := encodeCell(name, row[j])
			if err != nil {
				// Data rows are numbered from 1 in the source file; line adds the header.
				return nil, fmt.Errorf("row %d (line %d): %w", kept[i]+1, kept[i]+2, err)
			}
			col[i] = v
		}
		names = append(names, name)
		columns = append(columns, col)
	}

	for _, name := range oneHotColumns {
		values, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		oh, ohNames := OneHot(values, name)
		names = append(names, ohNames...)
		columns = append(columns, oh...)
	}

	labels, err := f.Column(LabelColumn)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		FeatureNames: names,
		X:            toRows(columns, f.Len()),
		Y:            Binarize(labels, "yes"),
	}, nil
}

func encodeCell(column, v string) (float64, error) {
	if positive, ok := binaryRules[column]; ok {
		if v == positive {
			return 1, nil
		}
		return 0, nil
	}
	if table, ok := lookupRules[column]; ok {
		n, ok := table[v]
		if !ok {
			return 0, fmt.Errorf("%w: %s=%q", common.ErrUnknownCategory, column, v)
		}
		return n, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", common.ErrParseValue, column, v)
	}
	return n, nil
}

func toRows(columns [][]float64, n int) [][]float64 {
	rows := make([][]float64, n)
	for i := range n {
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = col[i]
		}
		rows[i] = row
	}
	return rows
}
