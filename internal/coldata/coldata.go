// Package coldata is the column-major projection the UPDATE pipeline
// passes between the engine, kernel generator and GPU executor: a
// mapping from column name to the ordered sequence of that column's
// values across all rows.
//
// Go map iteration order is randomized, which would make binding
// indices non-reproducible between the kernel generator and the GPU
// executor if this were a literal map; an ordered slice gives both a
// shared, stable order instead. It is seeded from the numeric columns
// of the table schema, in schema order.
package coldata

import "github.com/rql-db/rql/internal/types"

// Column is one column's values across every row, plus enough of its
// definition to pick a GPU element type and a kernel literal.
type Column struct {
	Name     string
	DataType types.DataType
	Values   []types.Value
}

// Set is the ordered column-major projection. Iteration order (range
// over Columns) is the single source of truth for binding indices
// and buffer pairing.
type Set struct {
	Columns []Column
}

// Project builds the column-major Set restricted to numeric columns,
// in schema order.
func Project(def types.TableDefinition, rows []types.Row) Set {
	numeric := def.NumericColumns()
	set := Set{Columns: make([]Column, len(numeric))}
	for i, c := range numeric {
		values := make([]types.Value, len(rows))
		for r, row := range rows {
			values[r] = row[c.Name]
		}
		set.Columns[i] = Column{Name: c.Name, DataType: c.DataType, Values: values}
	}
	return set
}

// RowCount returns the number of rows carried by the first column, or
// 0 if the set has no columns.
func (s Set) RowCount() int {
	if len(s.Columns) == 0 {
		return 0
	}
	return len(s.Columns[0].Values)
}

// ByName looks up a column by name, returning ok=false if absent.
func (s Set) ByName(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in iteration order.
func (s Set) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
