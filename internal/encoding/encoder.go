// Package encoding converts sparse order-attribute mappings into the
// fixed-width numeric feature vectors the classifier was trained against.
package encoding

import (
	"fmt"
	"sort"
	"strconv"
)

// Input is a sparse attribute mapping as decoded from JSON. Values may be
// numbers, strings (treated as categorical), or booleans.
type Input map[string]any

// Vector is an ordered numeric feature row. Its length and column order always
// match the expected-column list the encoder was built with.
type Vector []float64

// Encoder reindexes expanded attribute rows against a fixed training-time
// column schema. It is immutable after construction and safe for concurrent use.
type Encoder struct {
	columns []string
	index   map[string]int
}

// NewEncoder creates an Encoder for the given ordered expected-column list.
func NewEncoder(expectedColumns []string) *Encoder {
	index := make(map[string]int, len(expectedColumns))
	for i, col := range expectedColumns {
		index[col] = i
	}
	// Defensive copy so callers cannot reorder the schema underneath us.
	columns := make([]string, len(expectedColumns))
	copy(columns, expectedColumns)

	return &Encoder{columns: columns, index: index}
}

// Columns returns the encoder's column schema in order.
func (e *Encoder) Columns() []string {
	cols := make([]string, len(e.columns))
	copy(cols, e.columns)
	return cols
}

// Encode expands the input into dummy columns and reindexes the row against
// the expected-column list. Expected columns absent from the expanded row
// contribute a zero; expanded columns outside the schema are dropped. An empty
// input yields a valid all-zero vector.
func (e *Encoder) Encode(input Input) (Vector, error) {
	row, err := expand(input)
	if err != nil {
		return nil, err
	}

	vector := make(Vector, len(e.columns))
	for col, val := range row {
		if i, ok := e.index[col]; ok {
			vector[i] = val
		}
	}
	return vector, nil
}

// expand converts a sparse input into a dense column->value row. Numeric
// values keep their key as the column name; categorical (string) values
// one-hot expand to a "key_value" indicator column; booleans become 0/1.
func expand(input Input) (map[string]float64, error) {
	row := make(map[string]float64, len(input))
	for key, val := range input {
		switch v := val.(type) {
		case nil:
			// Skip nulls entirely; reindexing fills the zero.
		case float64:
			row[key] = v
		case int:
			row[key] = float64(v)
		case int64:
			row[key] = float64(v)
		case bool:
			if v {
				row[key] = 1
			}
		case string:
			row[key+"_"+v] = 1
		default:
			return nil, fmt.Errorf("unsupported value type %T for attribute %q", val, key)
		}
	}
	return row, nil
}

// CoerceNumeric returns a copy of the input with every string value that
// parses as a number replaced by its float64 form. Unparseable values are left
// untouched so they still one-hot expand as categoricals. Quantities that
// round-trip through payment metadata arrive as strings; this restores them
// as continuous features.
func CoerceNumeric(input Input) Input {
	out := make(Input, len(input))
	for key, val := range input {
		if s, ok := val.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				out[key] = f
				continue
			}
		}
		out[key] = val
	}
	return out
}

// SortedKeys returns the input's keys in lexical order. Handlers use it to log
// which attributes were supplied without dumping values.
func SortedKeys(input Input) []string {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
