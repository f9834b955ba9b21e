package sqlsurface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/types"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse("CREATE TABLE widgets (id INTEGER NOT NULL UNIQUE, weight FLOAT);")
	require.NoError(t, err)
	require.Equal(t, KindCreateTable, stmt.Kind)
	require.Len(t, stmt.CreateTable.Columns, 2)
	assert.Equal(t, "widgets", stmt.CreateTable.Name)
	assert.Equal(t, types.Integer, stmt.CreateTable.Columns[0].DataType)
	assert.False(t, stmt.CreateTable.Columns[0].Nullable)
	assert.True(t, stmt.CreateTable.Columns[0].Unique)
	assert.True(t, stmt.CreateTable.Columns[1].Nullable)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO widgets VALUES (1, 'gizmo', 2.5)")
	require.NoError(t, err)
	require.Equal(t, KindInsert, stmt.Kind)
	assert.Equal(t, "widgets", stmt.Insert.TableName)
	assert.Equal(t, []string{"1", "gizmo", "2.5"}, stmt.Insert.Values)
}

func TestParseSelectNoWhere(t *testing.T) {
	stmt, err := Parse("SELECT * FROM widgets")
	require.NoError(t, err)
	require.Equal(t, KindSelect, stmt.Kind)
	assert.Equal(t, "widgets", stmt.Select.TableName)
	assert.Empty(t, stmt.Select.Criteria)
}

func TestParseSelectWithAndOrConnectors(t *testing.T) {
	stmt, err := Parse("SELECT * FROM widgets WHERE id = 1 AND label = 'a' OR label = 'b'")
	require.NoError(t, err)
	require.Len(t, stmt.Select.Criteria, 3)
	assert.Equal(t, []string{"AND", "OR"}, stmt.Select.Connectors)
	assert.Equal(t, "id", stmt.Select.Criteria[0].Column)
	assert.Equal(t, "1", stmt.Select.Criteria[0].Literal)
	assert.Equal(t, "b", stmt.Select.Criteria[2].Literal)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse("UPDATE widgets SET weight = weight * 2, total = weight + total")
	require.NoError(t, err)
	require.Equal(t, KindUpdate, stmt.Kind)
	assert.Equal(t, "widgets", stmt.Update.TableName)
	assert.Equal(t, "weight = weight * 2, total = weight + total", stmt.Update.SetQuery)
}

func TestParseUnsupportedCommand(t *testing.T) {
	_, err := Parse("DROP TABLE widgets")
	require.Error(t, err)
}

func TestParseCreateTableMissingParen(t *testing.T) {
	_, err := Parse("CREATE TABLE widgets id INTEGER);")
	require.Error(t, err)
}
