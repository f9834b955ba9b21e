// Package sqlsurface is the hand-written, prefix-matching recognizer
// for RQL's four supported statements: CREATE TABLE, INSERT INTO,
// SELECT ... WHERE, and UPDATE ... SET. It never touches the
// filesystem; it only turns a trimmed input line into one of the
// structured forms in internal/types.
package sqlsurface

import (
	"fmt"
	"strings"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

// Kind identifies which of the four statements a line parsed as.
type Kind int

const (
	KindCreateTable Kind = iota
	KindInsert
	KindSelect
	KindUpdate
)

// Statement is the parsed form of one input line, carrying exactly one
// of the payload fields matching Kind.
type Statement struct {
	Kind Kind

	CreateTable types.TableDefinition
	Insert      types.InsertDefinition
	Select      types.SelectDefinition
	Update      types.UpdateDefinition
}

// Parse recognizes and dispatches command to the matching statement
// parser. The statement-prefix check is case-insensitive;
// a trailing semicolon, if present, is stripped before parsing.
func Parse(command string) (Statement, error) {
	line := strings.TrimSpace(command)
	line = strings.TrimSuffix(line, ";")
	line = strings.TrimSpace(line)

	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		def, err := ParseCreateTable(line)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: KindCreateTable, CreateTable: def}, nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		def, err := ParseInsert(line)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: KindInsert, Insert: def}, nil
	case strings.HasPrefix(upper, "SELECT"):
		def, err := ParseSelect(line)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: KindSelect, Select: def}, nil
	case strings.HasPrefix(upper, "UPDATE"):
		def, err := ParseUpdate(line)
		if err != nil {
			return Statement{}, err
		}
		return Statement{Kind: KindUpdate, Update: def}, nil
	default:
		return Statement{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.Parse", fmt.Errorf("unsupported command: %q", command))
	}
}

// ParseCreateTable parses:
//
//	CREATE TABLE <name> ( <col_def> (, <col_def>)* );
func ParseCreateTable(line string) (types.TableDefinition, error) {
	closed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))
	if !strings.HasPrefix(strings.ToUpper(line), "CREATE TABLE") || !strings.HasSuffix(closed, ")") {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseCreateTable", fmt.Errorf("must begin with CREATE TABLE and end with ')' (optionally followed by ';'): %q", line))
	}

	rest := strings.TrimSpace(line[len("CREATE TABLE"):])
	open := strings.Index(rest, "(")
	if open < 0 {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseCreateTable", fmt.Errorf("missing '(' in %q", line))
	}
	name := strings.TrimSpace(rest[:open])
	if name == "" {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseCreateTable", fmt.Errorf("missing table name in %q", line))
	}

	// rest ends with ")" or ");"; the column list is between the first
	// '(' and the matching trailing ')'.
	body := rest[open+1:]
	body = strings.TrimSuffix(strings.TrimSpace(body), ";")
	body = strings.TrimSuffix(strings.TrimSpace(body), ")")

	colDefs := splitTopLevel(body, ',')
	columns := make([]types.ColumnDefinition, 0, len(colDefs))
	for _, raw := range colDefs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		col, err := parseColumnDef(raw)
		if err != nil {
			return types.TableDefinition{}, err
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseCreateTable", fmt.Errorf("no columns in %q", line))
	}

	return types.TableDefinition{Name: name, Columns: columns}, nil
}

// parseColumnDef parses `<name> <TYPE> [NOT NULL] [UNIQUE]`.
func parseColumnDef(def string) (types.ColumnDefinition, error) {
	fields := strings.Fields(def)
	if len(fields) < 2 {
		return types.ColumnDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.parseColumnDef", fmt.Errorf("malformed column definition %q", def))
	}
	dt, ok := types.DataTypeFromSQL(fields[1])
	if !ok {
		return types.ColumnDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.parseColumnDef", fmt.Errorf("unknown column type %q in %q", fields[1], def))
	}
	upper := strings.ToUpper(def)
	return types.ColumnDefinition{
		Name:     fields[0],
		DataType: dt,
		Nullable: !strings.Contains(upper, "NOT NULL"),
		Unique:   strings.Contains(upper, "UNIQUE"),
	}, nil
}

// ParseInsert parses:
//
//	INSERT INTO <name> VALUES ( v1, v2, ... )
func ParseInsert(line string) (types.InsertDefinition, error) {
	upper := strings.ToUpper(line)
	if !strings.HasPrefix(upper, "INSERT INTO") {
		return types.InsertDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseInsert", fmt.Errorf("must begin with INSERT INTO: %q", line))
	}
	valuesIdx := strings.Index(upper, "VALUES")
	if valuesIdx < 0 {
		return types.InsertDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseInsert", fmt.Errorf("missing VALUES in %q", line))
	}
	name := strings.TrimSpace(line[len("INSERT INTO"):valuesIdx])
	if name == "" {
		return types.InsertDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseInsert", fmt.Errorf("missing table name in %q", line))
	}

	rest := line[valuesIdx+len("VALUES"):]
	open := strings.Index(rest, "(")
	closeIdx := strings.LastIndex(rest, ")")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return types.InsertDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseInsert", fmt.Errorf("malformed VALUES list in %q", line))
	}
	valuesStr := strings.TrimSpace(rest[open+1 : closeIdx])

	// Each value is trimmed; a value wrapped in single quotes has the
	// quotes stripped.
	var values []string
	for _, tok := range splitTopLevel(valuesStr, ',') {
		tok = strings.TrimSpace(tok)
		if len(tok) >= 2 && strings.HasPrefix(tok, "'") && strings.HasSuffix(tok, "'") {
			tok = tok[1 : len(tok)-1]
		}
		values = append(values, tok)
	}

	return types.InsertDefinition{TableName: name, Values: values}, nil
}

// ParseSelect parses:
//
//	SELECT * FROM <name> [WHERE <col> = <lit> (AND|OR <col> = <lit>)*]
func ParseSelect(line string) (types.SelectDefinition, error) {
	upper := strings.ToUpper(line)
	if !strings.HasPrefix(upper, "SELECT") {
		return types.SelectDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseSelect", fmt.Errorf("must begin with SELECT: %q", line))
	}
	fromIdx := strings.Index(upper, "FROM")
	if fromIdx < 0 {
		return types.SelectDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseSelect", fmt.Errorf("missing FROM in %q", line))
	}

	rest := line[fromIdx+len("FROM"):]
	restUpper := strings.ToUpper(rest)
	whereIdx := strings.Index(restUpper, "WHERE")

	var tableName, whereClause string
	if whereIdx < 0 {
		tableName = strings.TrimSpace(rest)
	} else {
		tableName = strings.TrimSpace(rest[:whereIdx])
		whereClause = strings.TrimSpace(rest[whereIdx+len("WHERE"):])
	}
	if tableName == "" {
		return types.SelectDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseSelect", fmt.Errorf("missing table name in %q", line))
	}

	var criteria []types.Criterion
	var connectors []string
	if whereClause != "" {
		conds, conns := splitOnKeywords(whereClause, "AND", "OR")
		for i, cond := range conds {
			cond = strings.TrimSpace(cond)
			if cond == "" {
				continue
			}
			crit, err := parseCriterion(cond)
			if err != nil {
				return types.SelectDefinition{}, err
			}
			criteria = append(criteria, crit)
			if i > 0 {
				connectors = append(connectors, conns[i-1])
			}
		}
	}

	return types.SelectDefinition{TableName: tableName, Criteria: criteria, Connectors: connectors}, nil
}

func parseCriterion(cond string) (types.Criterion, error) {
	eq := strings.Index(cond, "=")
	if eq < 0 {
		return types.Criterion{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.parseCriterion", fmt.Errorf("only column = literal comparisons are supported: %q", cond))
	}
	col := strings.TrimSpace(cond[:eq])
	lit := strings.TrimSpace(cond[eq+1:])
	lit = strings.TrimPrefix(lit, "'")
	lit = strings.TrimSuffix(lit, "'")
	if col == "" {
		return types.Criterion{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.parseCriterion", fmt.Errorf("missing column name in %q", cond))
	}
	return types.Criterion{Column: col, Operator: "=", Literal: lit}, nil
}

// ParseUpdate splits off the table name and hands the remainder,
// verbatim, to the expression parser.
//
//	UPDATE <name> SET <assign> (, <assign>)*
func ParseUpdate(line string) (types.UpdateDefinition, error) {
	upper := strings.ToUpper(line)
	if !strings.HasPrefix(upper, "UPDATE") {
		return types.UpdateDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseUpdate", fmt.Errorf("must begin with UPDATE: %q", line))
	}
	setIdx := strings.Index(upper, "SET")
	if setIdx < 0 {
		return types.UpdateDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseUpdate", fmt.Errorf("missing SET in %q", line))
	}
	name := strings.TrimSpace(line[len("UPDATE"):setIdx])
	if name == "" {
		return types.UpdateDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseUpdate", fmt.Errorf("missing table name in %q", line))
	}
	setQuery := strings.TrimSpace(line[setIdx+len("SET"):])
	if setQuery == "" {
		return types.UpdateDefinition{}, rqlerr.New(rqlerr.KindParse, "sqlsurface.ParseUpdate", fmt.Errorf("empty SET clause in %q", line))
	}
	return types.UpdateDefinition{TableName: name, SetQuery: setQuery}, nil
}

// splitTopLevel splits s on sep, ignoring occurrences of sep inside a
// parenthesized or single-quoted span, so e.g. function-call commas in
// a future extension or quoted text containing the separator don't
// break the split.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote {
				depth--
			}
		default:
			if s[i] == sep && depth == 0 && !inQuote {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// splitOnKeywords splits s on any of the given whitespace-delimited
// keywords (case-insensitive), returning the segments between them
// alongside the uppercased keyword that followed each non-final
// segment, so the caller can tell AND from OR rather than collapsing
// both into one connector.
func splitOnKeywords(s string, keywords ...string) ([]string, []string) {
	fields := strings.Fields(s)
	var segments []string
	var conns []string
	var cur []string
	matchKeyword := func(f string) string {
		for _, k := range keywords {
			if strings.EqualFold(f, k) {
				return strings.ToUpper(k)
			}
		}
		return ""
	}
	for _, f := range fields {
		if kw := matchKeyword(f); kw != "" {
			segments = append(segments, strings.Join(cur, " "))
			conns = append(conns, kw)
			cur = cur[:0]
			continue
		}
		cur = append(cur, f)
	}
	segments = append(segments, strings.Join(cur, " "))
	return segments, conns
}
