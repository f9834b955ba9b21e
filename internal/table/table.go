// Package table renders query results as an aligned, tab-separated
// grid using the standard library's text/tabwriter. RQL's own query
// surface has no notion of a pluggable output format, so there is
// nothing here for a third-party pretty-printer to add over
// tabwriter's column alignment.
package table

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rql-db/rql/internal/types"
)

// Write renders rows against the given column order to w.
func Write(w io.Writer, cols []types.ColumnDefinition, rows []types.Row) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if _, err := fmt.Fprintln(tw, joinTab(header)); err != nil {
		return err
	}

	for _, row := range rows {
		fields := make([]string, len(cols))
		for i, c := range cols {
			fields[i] = row[c.Name].String()
		}
		if _, err := fmt.Fprintln(tw, joinTab(fields)); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func joinTab(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	out := fields[0]
	for _, f := range fields[1:] {
		out += "\t" + f
	}
	return out
}
