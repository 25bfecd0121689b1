package dataprep

import (
	"testing"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var header = []string{
	"age", "job", "marital", "education", "default", "housing", "loan",
	"contact", "month", "day_of_week", "duration", "poutcome", "y",
}

func row(age, job, marital, education, def, housing, loan, contact, month, dow, duration, poutcome, y string) []string {
	return []string{age, job, marital, education, def, housing, loan, contact, month, dow, duration, poutcome, y}
}

func feature(t *testing.T, ds *Dataset, i int, name string) float64 {
	t.Helper()
	for j, n := range ds.FeatureNames {
		if n == name {
			return ds.X[i][j]
		}
	}
	t.Fatalf("feature %q not found in %v", name, ds.FeatureNames)
	return 0
}

func TestClean_SingleRow(t *testing.T) {
	frame := &data.Frame{
		Header: header,
		Rows: [][]string{
			row("57", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "261", "success", "yes"),
		},
	}

	ds, err := Clean(frame)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Rows())

	assert.Equal(t, 1.0, feature(t, ds, 0, "marital"))
	assert.Equal(t, 0.0, feature(t, ds, 0, "default"))
	assert.Equal(t, 1.0, feature(t, ds, 0, "housing"))
	assert.Equal(t, 0.0, feature(t, ds, 0, "loan"))
	assert.Equal(t, 5.0, feature(t, ds, 0, "month"))
	assert.Equal(t, 1.0, feature(t, ds, 0, "day_of_week"))
	assert.Equal(t, 1.0, feature(t, ds, 0, "poutcome"))
	assert.Equal(t, 1.0, feature(t, ds, 0, "job_admin"))
	assert.Equal(t, 57.0, feature(t, ds, 0, "age"))
	assert.Equal(t, []float64{1}, ds.Y)
}

func TestClean_ColumnOrder(t *testing.T) {
	frame := &data.Frame{
		Header: header,
		Rows: [][]string{
			row("30", "technician", "single", "university.degree", "no", "no", "no", "telephone", "jun", "fri", "100", "nonexistent", "no"),
			row("40", "admin.", "married", "high.school", "unknown", "yes", "yes", "cellular", "dec", "tue", "200", "failure", "yes"),
		},
	}

	ds, err := Clean(frame)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"age", "marital", "default", "housing", "loan", "month", "day_of_week", "duration", "poutcome",
		"job_admin.", "job_technician",
		"contact_cellular", "contact_telephone",
		"education_high.school", "education_university.degree",
	}, ds.FeatureNames)
	assert.Equal(t, []float64{0, 1}, ds.Y)
	assert.Equal(t, 0.0, feature(t, ds, 1, "default"), "unknown is not yes")
	assert.Equal(t, 12.0, feature(t, ds, 1, "month"))
	assert.Equal(t, 2.0, feature(t, ds, 1, "day_of_week"))
}

func TestClean_DropsIncompleteRows(t *testing.T) {
	frame := &data.Frame{
		Header: header,
		Rows: [][]string{
			row("30", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
			row("31", "", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
			row("32", "admin", "married", "basic.4y", "no", "NA", "no", "cellular", "may", "mon", "1", "success", "no"),
			row("33", "services", "single", "basic.6y", "yes", "no", "yes", "telephone", "aug", "wed", "2", "failure", "no"),
			row("NaN", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
		},
	}

	ds, err := Clean(frame)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())
	assert.Len(t, ds.Y, ds.Rows())
	// Row order is preserved.
	assert.Equal(t, 30.0, feature(t, ds, 0, "age"))
	assert.Equal(t, 33.0, feature(t, ds, 1, "age"))
}

func TestIsMissing(t *testing.T) {
	for _, v := range []string{"", "NA", "NaN", "nan", "N/A", "n/a", "null", "NULL", "None", "#N/A", "<NA>"} {
		assert.True(t, IsMissing(v), "%q", v)
	}
	for _, v := range []string{"unknown", "no", "0", "na", "none"} {
		assert.False(t, IsMissing(v), "%q", v)
	}
}

func TestDropIncomplete_KeepsSourceIndices(t *testing.T) {
	frame := &data.Frame{
		Header: []string{"a", "b"},
		Rows:   [][]string{{"1", "null"}, {"2", "x"}, {"N/A", "y"}, {"4", "z"}},
	}

	out, kept := DropIncomplete(frame)
	assert.Equal(t, [][]string{{"2", "x"}, {"4", "z"}}, out.Rows)
	assert.Equal(t, []int{1, 3}, kept)
}

func TestClean_ErrorNamesSourceRow(t *testing.T) {
	frame := &data.Frame{
		Header: header,
		Rows: [][]string{
			row("30", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
			row("31", "", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
			row("32", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "smarch", "mon", "1", "success", "no"),
		},
	}

	_, err := Clean(frame)
	require.ErrorIs(t, err, common.ErrUnknownCategory)
	assert.Contains(t, err.Error(), "row 3 (line 4)")
}

func TestClean_BinaryColumnsAreZeroOrOne(t *testing.T) {
	values := []string{"yes", "no", "unknown"}
	var rows [][]string
	for _, d := range values {
		for _, h := range values {
			for _, l := range values {
				rows = append(rows, row("20", "admin", "divorced", "basic.9y", d, h, l, "cellular", "jan", "thu", "5", "failure", "no"))
			}
		}
	}

	ds, err := Clean(&data.Frame{Header: header, Rows: rows})
	require.NoError(t, err)
	for i := range ds.Rows() {
		for _, name := range []string{"marital", "default", "housing", "loan", "poutcome"} {
			v := feature(t, ds, i, name)
			assert.True(t, v == 0 || v == 1, "%s=%v", name, v)
		}
	}
	for _, y := range ds.Y {
		assert.True(t, y == 0 || y == 1)
	}
}

func TestClean_Errors(t *testing.T) {
	tests := []struct {
		name    string
		frame   *data.Frame
		wantErr error
	}{
		{
			name:    "missing column",
			frame:   &data.Frame{Header: []string{"age", "y"}, Rows: [][]string{{"1", "no"}}},
			wantErr: common.ErrMissingColumn,
		},
		{
			name: "unknown month",
			frame: &data.Frame{Header: header, Rows: [][]string{
				row("30", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "mai", "mon", "1", "success", "yes"),
			}},
			wantErr: common.ErrUnknownCategory,
		},
		{
			name: "unknown weekday",
			frame: &data.Frame{Header: header, Rows: [][]string{
				row("30", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "monday", "1", "success", "yes"),
			}},
			wantErr: common.ErrUnknownCategory,
		},
		{
			name: "non numeric column",
			frame: &data.Frame{Header: header, Rows: [][]string{
				row("thirty", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
			}},
			wantErr: common.ErrParseValue,
		},
		{
			name: "every row incomplete",
			frame: &data.Frame{Header: header, Rows: [][]string{
				row("", "admin", "married", "basic.4y", "no", "yes", "no", "cellular", "may", "mon", "1", "success", "yes"),
			}},
			wantErr: common.ErrEmptyDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Clean(tt.frame)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOneHot(t *testing.T) {
	cols, names := OneHot([]string{"b", "a", "b", "c"}, "job")
	assert.Equal(t, []string{"job_a", "job_b", "job_c"}, names)
	assert.Equal(t, [][]float64{
		{0, 1, 0, 0},
		{1, 0, 1, 0},
		{0, 0, 0, 1},
	}, cols)
}

func TestBinarize(t *testing.T) {
	assert.Equal(t, []float64{1, 0, 0}, Binarize([]string{"yes", "no", "Yes"}, "yes"))
}
