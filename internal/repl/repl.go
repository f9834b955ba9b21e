// Package repl is the line-oriented command loop: read a line, execute
// it against an engine.Engine, print the result or the error, repeat.
// It is strictly single-threaded, every statement runs to completion
// before the next line is read, and it carries no cancellation
// mechanism of its own; a hung GPU dispatch hangs the loop.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rql-db/rql/internal/engine"
	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/sqlsurface"
	"github.com/rql-db/rql/internal/table"
)

const prompt = "rql> "

// REPL reads statements from in, executes them against eng, and
// writes results to out / errors to errOut.
type REPL struct {
	eng    *engine.Engine
	in     *bufio.Scanner
	out    io.Writer
	errOut io.Writer
}

func New(eng *engine.Engine, in io.Reader, out, errOut io.Writer) *REPL {
	return &REPL{eng: eng, in: bufio.NewScanner(in), out: out, errOut: errOut}
}

// Run loops until EXIT, EOF, or ctx is cancelled, returning nil on
// clean termination.
func (r *REPL) Run(ctx context.Context) error {
	for {
		fmt.Fprint(r.out, prompt)
		if !r.in.Scan() {
			return r.in.Err()
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "EXIT") || strings.EqualFold(line, "EXIT;") {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := r.eng.Execute(ctx, line)
		if err != nil {
			r.printError(err)
			continue
		}
		r.printResult(result)
	}
}

func (r *REPL) printError(err error) {
	if k, ok := errKind(err); ok {
		fmt.Fprintf(r.errOut, "error (%s): %v\n", k, err)
		return
	}
	fmt.Fprintf(r.errOut, "error: %v\n", err)
}

func errKind(err error) (rqlerr.Kind, bool) {
	for _, k := range []rqlerr.Kind{
		rqlerr.KindNotFound,
		rqlerr.KindInvalidData,
		rqlerr.KindInvalidInput,
		rqlerr.KindUnexpectedEOF,
		rqlerr.KindParse,
	} {
		if rqlerr.Is(err, k) {
			return k, true
		}
	}
	return 0, false
}

func (r *REPL) printResult(res engine.Result) {
	if res.Kind == sqlsurface.KindSelect {
		if len(res.Rows) == 0 {
			fmt.Fprintln(r.out, "(0 rows)")
			return
		}
		if err := table.Write(r.out, res.Columns, res.Rows); err != nil {
			fmt.Fprintf(r.errOut, "error: %v\n", err)
		}
		return
	}
	fmt.Fprintln(r.out, res.Message)
}
