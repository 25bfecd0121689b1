// Package dataprep converts raw string tables into numeric features.
package dataprep

import "sort"

// OneHot expands a categorical column into one indicator column per distinct
// value. Columns are ordered by value and named "<prefix>_<value>". The result
// is column-major: out[k][i] is 1 when row i holds the k-th value.
func OneHot(data []string, prefix string) ([][]float64, []string) {
	unique := map[string]int{}
	for _, v := range data {
		unique[v] = 0
	}
	values := make([]string, 0, len(unique))
	for v := range unique {
		values = append(values, v)
	}
	sort.Strings(values)

	names := make([]string, len(values))
	for k, v := range values {
		unique[v] = k
		names[k] = prefix + "_" + v
	}

	out := make([][]float64, len(values))
	for k := range out {
		out[k] = make([]float64, len(data))
	}
	for i, v := range data {
		out[unique[v]][i] = 1
	}
	return out, names
}

// Binarize maps positive to 1 and every other value to 0.
func Binarize(data []string, positive string) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		if v == positive {
			out[i] = 1
		}
	}
	return out
}
