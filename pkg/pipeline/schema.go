package pipeline

import (
	"math"

	"github.com/TungPhamDuy/azmlproject3/pkg/dataprep"
)

// Column types reported by InferSchema.
const (
	TypeBinary = "binary"
	TypeInt    = "int"
	TypeFloat  = "float"
)

// Schema describes the structure of a dataset.
type Schema struct {
	FeatureNames []string
	Types        []string // TypeBinary, TypeInt or TypeFloat
}

// InferSchema classifies each cleaned column by the values it holds.
func InferSchema(ds *dataprep.Dataset) Schema {
	s := Schema{
		FeatureNames: append([]string(nil), ds.FeatureNames...),
		Types:        make([]string, len(ds.FeatureNames)),
	}
	for j := range ds.FeatureNames {
		binary, integral := true, true
		for _, row := range ds.X {
			v := row[j]
			if v != 0 && v != 1 {
				binary = false
			}
			if v != math.Trunc(v) {
				integral = false
				break
			}
		}
		switch {
		case binary:
			s.Types[j] = TypeBinary
		case integral:
			s.Types[j] = TypeInt
		default:
			s.Types[j] = TypeFloat
		}
	}
	return s
}

// Count returns how many columns have type t.
func (s Schema) Count(t string) int {
	n := 0
	for _, typ := range s.Types {
		if typ == t {
			n++
		}
	}
	return n
}
