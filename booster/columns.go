package booster

import (
	"fmt"
	"strconv"
	"strings"
)

// Columns selects the spatial columns of a feature matrix: either every
// column or an explicit, ordered list of indices.
type Columns struct {
	all bool
	idx []int
}

// AllColumns selects every column of X.
func AllColumns() Columns { return Columns{all: true} }

// ExplicitColumns selects the given column indices, in order.
func ExplicitColumns(idx ...int) Columns {
	return Columns{idx: append([]int(nil), idx...)}
}

// IsAll reports whether c selects every column.
func (c Columns) IsAll() bool { return c.all }

// Indices returns the explicit indices, or nil for AllColumns.
func (c Columns) Indices() []int {
	if c.all {
		return nil
	}
	return append([]int(nil), c.idx...)
}

// Resolve returns the concrete indices for a matrix with nCols columns.
// Explicit indices are returned as given; range checks happen during
// enrichment.
func (c Columns) Resolve(nCols int) []int {
	if !c.all {
		return append([]int(nil), c.idx...)
	}
	out := make([]int, nCols)
	for i := range out {
		out[i] = i
	}
	return out
}

// String renders c in the form accepted by ParseColumns.
func (c Columns) String() string {
	if c.all {
		return "*"
	}
	parts := make([]string, len(c.idx))
	for i, v := range c.idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseColumns parses "*" (or an empty string) as AllColumns and a comma
// separated list such as "0,2" as ExplicitColumns.
func ParseColumns(s string) (Columns, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return AllColumns(), nil
	}
	fields := strings.Split(s, ",")
	idx := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Columns{}, fmt.Errorf("booster: bad column %q: %w", f, err)
		}
		if v < 0 {
			return Columns{}, fmt.Errorf("booster: negative column %d", v)
		}
		idx = append(idx, v)
	}
	return ExplicitColumns(idx...), nil
}
