// Package engine wires the statement recognizer, the schema catalog,
// the row log and the GPU executor together into the four operations
// the REPL exposes: CREATE TABLE, INSERT, SELECT and UPDATE.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rql-db/rql/internal/coldata"
	"github.com/rql-db/rql/internal/exprparser"
	"github.com/rql-db/rql/internal/gpu"
	"github.com/rql-db/rql/internal/kernel"

	"github.com/rql-db/rql/internal/catalog"
	"github.com/rql-db/rql/internal/rowlog"
	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/sqlsurface"
	"github.com/rql-db/rql/internal/types"
)

// Result is what one executed statement produced, for the REPL (or any
// other frontend) to render. Only SELECT populates Columns/Rows;
// Message is a short human-readable confirmation for the other three.
type Result struct {
	Kind    sqlsurface.Kind
	Message string
	Columns []types.ColumnDefinition
	Rows    []types.Row
}

// Engine owns the schema catalog and row log for one data directory
// and executes statements against them.
type Engine struct {
	catalog       *catalog.Store
	rowlog        *rowlog.Store
	logger        *slog.Logger
	workgroupSize int
	lockPath      string
}

// Config is the subset of internal/config that Open needs.
type Config struct {
	SchemaDir     string
	DataDir       string
	WorkgroupSize int
}

// Open acquires a coarse advisory lock over dataDir and returns an
// Engine backed by the given config. The lock is a plain lock file
// created with O_EXCL; it exists purely to keep two REPLs from
// corrupting the same row log, not as a general concurrency-control
// mechanism. RQL has none, since reads and writes of one statement
// always run to completion before the next statement is accepted.
func Open(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, rqlerr.New(rqlerr.KindInvalidData, "engine.Open", err)
	}
	lockPath := filepath.Join(cfg.DataDir, ".rql.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, rqlerr.New(rqlerr.KindInvalidInput, "engine.Open", fmt.Errorf("data directory %q is locked by another session (remove %q if that session exited uncleanly)", cfg.DataDir, lockPath))
		}
		return nil, rqlerr.New(rqlerr.KindInvalidData, "engine.Open", err)
	}
	f.Close()

	return &Engine{
		catalog:       catalog.NewStore(cfg.SchemaDir),
		rowlog:        rowlog.NewStore(cfg.DataDir),
		logger:        logger,
		workgroupSize: cfg.WorkgroupSize,
		lockPath:      lockPath,
	}, nil
}

// Close releases the advisory lock acquired by Open.
func (e *Engine) Close() error {
	if e.lockPath == "" {
		return nil
	}
	if err := os.Remove(e.lockPath); err != nil && !os.IsNotExist(err) {
		return rqlerr.New(rqlerr.KindInvalidData, "engine.Close", err)
	}
	return nil
}

// Execute recognizes command and dispatches it to the matching
// handler.
func (e *Engine) Execute(ctx context.Context, command string) (Result, error) {
	stmt, err := sqlsurface.Parse(command)
	if err != nil {
		return Result{}, err
	}

	switch stmt.Kind {
	case sqlsurface.KindCreateTable:
		return e.executeCreateTable(stmt.CreateTable)
	case sqlsurface.KindInsert:
		return e.executeInsert(stmt.Insert)
	case sqlsurface.KindSelect:
		return e.executeSelect(stmt.Select)
	case sqlsurface.KindUpdate:
		return e.executeUpdate(ctx, stmt.Update)
	default:
		return Result{}, rqlerr.New(rqlerr.KindParse, "engine.Execute", fmt.Errorf("unrecognized statement"))
	}
}

func (e *Engine) executeCreateTable(def types.TableDefinition) (Result, error) {
	if err := e.catalog.Save(def); err != nil {
		return Result{}, err
	}
	e.logger.Info("created table", "table", def.Name, "columns", len(def.Columns))
	return Result{Kind: sqlsurface.KindCreateTable, Message: fmt.Sprintf("table %q created", def.Name)}, nil
}

func (e *Engine) executeInsert(def types.InsertDefinition) (Result, error) {
	schema, err := e.catalog.Load(def.TableName)
	if err != nil {
		return Result{}, err
	}
	if len(def.Values) != len(schema.Columns) {
		return Result{}, rqlerr.New(rqlerr.KindInvalidInput, "engine.executeInsert", fmt.Errorf("table %q has %d columns, got %d values", def.TableName, len(schema.Columns), len(def.Values)))
	}

	row := make(types.Row, len(schema.Columns))
	for i, col := range schema.Columns {
		v, err := types.ParseLiteral(col.DataType, def.Values[i])
		if err != nil {
			return Result{}, rqlerr.New(rqlerr.KindInvalidInput, "engine.executeInsert", fmt.Errorf("column %q: %w", col.Name, err))
		}
		row[col.Name] = v
	}

	if err := e.rowlog.Append(def.TableName, schema.Columns, []types.Row{row}); err != nil {
		return Result{}, err
	}
	e.logger.Debug("inserted row", "table", def.TableName)
	return Result{Kind: sqlsurface.KindInsert, Message: fmt.Sprintf("1 row inserted into %q", def.TableName)}, nil
}

func (e *Engine) executeSelect(def types.SelectDefinition) (Result, error) {
	schema, err := e.catalog.Load(def.TableName)
	if err != nil {
		return Result{}, err
	}
	rows, err := e.rowlog.Scan(def.TableName, schema.Columns)
	if err != nil {
		return Result{}, err
	}

	matched := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		ok, err := matchWhere(row, def.Criteria, def.Connectors)
		if err != nil {
			return Result{}, err
		}
		if ok {
			matched = append(matched, row)
		}
	}

	return Result{Kind: sqlsurface.KindSelect, Columns: schema.Columns, Rows: matched}, nil
}

// matchWhere evaluates criteria against row left to right, joined by
// connectors[i] between criteria[i] and criteria[i+1]. With no
// criteria the row always matches. There is no operator precedence,
// "AND"/"OR" are applied strictly in the order the clause names them,
// matching how the surface parser read the clause rather than SQL's
// AND-binds-tighter-than-OR rule.
func matchWhere(row types.Row, criteria []types.Criterion, connectors []string) (bool, error) {
	if len(criteria) == 0 {
		return true, nil
	}
	result, err := matchCriterion(row, criteria[0])
	if err != nil {
		return false, err
	}
	for i := 1; i < len(criteria); i++ {
		next, err := matchCriterion(row, criteria[i])
		if err != nil {
			return false, err
		}
		connector := "AND"
		if i-1 < len(connectors) {
			connector = connectors[i-1]
		}
		if connector == "OR" {
			result = result || next
		} else {
			result = result && next
		}
	}
	return result, nil
}

func matchCriterion(row types.Row, c types.Criterion) (bool, error) {
	v, ok := row[c.Column]
	if !ok {
		return false, rqlerr.New(rqlerr.KindInvalidInput, "engine.matchCriterion", fmt.Errorf("unknown column %q in WHERE clause", c.Column))
	}
	if c.Operator != "=" {
		return false, rqlerr.New(rqlerr.KindInvalidInput, "engine.matchCriterion", fmt.Errorf("unsupported operator %q", c.Operator))
	}
	return v.String() == c.Literal, nil
}

func (e *Engine) executeUpdate(ctx context.Context, def types.UpdateDefinition) (Result, error) {
	schema, err := e.catalog.Load(def.TableName)
	if err != nil {
		return Result{}, err
	}

	assignments, err := exprparser.Parse(def.SetQuery)
	if err != nil {
		return Result{}, err
	}
	if err := validateAssignments(schema, assignments); err != nil {
		return Result{}, err
	}

	rows, err := e.rowlog.Scan(def.TableName, schema.Columns)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{Kind: sqlsurface.KindUpdate, Message: fmt.Sprintf("0 rows updated in %q", def.TableName)}, nil
	}

	cols := coldata.Project(schema, rows)
	if len(cols.Columns) == 0 {
		return Result{}, rqlerr.New(rqlerr.KindInvalidInput, "engine.executeUpdate", fmt.Errorf("table %q has no numeric columns to update", def.TableName))
	}

	updated, err := gpu.Execute(ctx, e.workgroupSize, cols, assignments)
	if err != nil {
		return Result{}, err
	}

	reconstructRows(rows, updated)

	if err := e.rowlog.Rewrite(def.TableName, schema.Columns, rows); err != nil {
		return Result{}, err
	}
	e.logger.Info("updated rows", "table", def.TableName, "rows", len(rows))
	return Result{Kind: sqlsurface.KindUpdate, Message: fmt.Sprintf("%d rows updated in %q", len(rows), def.TableName)}, nil
}

// validateAssignments rejects an UPDATE whose SET clause would assign
// into, or read from, a non-numeric column. The kernel generator has
// no binding for Text/Boolean columns, so letting such a reference
// through would either silently drop it or leave a free identifier in
// the generated shader text; better to reject the statement outright.
func validateAssignments(schema types.TableDefinition, assignments []types.Assignment) error {
	nonNumeric := make(map[string]bool)
	for _, c := range schema.Columns {
		if !c.DataType.Numeric() {
			nonNumeric[c.Name] = true
		}
	}
	for _, a := range assignments {
		if nonNumeric[a.Variable] {
			return rqlerr.New(rqlerr.KindInvalidInput, "engine.validateAssignments", fmt.Errorf("column %q is not numeric and cannot be assigned to in an UPDATE", a.Variable))
		}
		for _, ident := range kernel.ReferencedIdentifiers(a.Expression) {
			if nonNumeric[ident] {
				return rqlerr.New(rqlerr.KindInvalidInput, "engine.validateAssignments", fmt.Errorf("column %q is not numeric and cannot appear in an UPDATE expression", ident))
			}
		}
	}
	return nil
}

// reconstructRows writes updated's numeric values back into rows,
// in place, by position. rows and each column in updated must agree
// on row count and order, which coldata.Project guarantees since it
// built updated's input from rows in the first place. Non-numeric
// fields are left untouched.
func reconstructRows(rows []types.Row, updated coldata.Set) {
	for _, col := range updated.Columns {
		for i, v := range col.Values {
			rows[i][col.Name] = v
		}
	}
}

// TableName extracts a best-effort table name from a raw command, for
// logging before the statement is fully parsed.
func TableName(command string) string {
	fields := strings.Fields(strings.TrimSpace(command))
	for i, f := range fields {
		if strings.EqualFold(f, "TABLE") || strings.EqualFold(f, "INTO") || strings.EqualFold(f, "FROM") {
			if i+1 < len(fields) {
				return fields[i+1]
			}
		}
	}
	if len(fields) > 1 {
		return fields[1]
	}
	return ""
}
