package coldata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/types"
)

func TestProjectRestrictsToNumericColumnsInSchemaOrder(t *testing.T) {
	def := types.TableDefinition{Columns: []types.ColumnDefinition{
		{Name: "label", DataType: types.Text},
		{Name: "price", DataType: types.Float},
		{Name: "qty", DataType: types.Integer},
	}}
	rows := []types.Row{
		{"label": types.NewText("a"), "price": types.NewFloat(1), "qty": types.NewInteger(1)},
		{"label": types.NewText("b"), "price": types.NewFloat(2), "qty": types.NewInteger(2)},
	}

	set := Project(def, rows)
	require.Len(t, set.Columns, 2)
	assert.Equal(t, "price", set.Columns[0].Name)
	assert.Equal(t, "qty", set.Columns[1].Name)
	assert.Equal(t, 2, set.RowCount())
}

func TestSetByNameAndNames(t *testing.T) {
	set := Set{Columns: []Column{{Name: "a"}, {Name: "b"}}}
	col, ok := set.ByName("b")
	require.True(t, ok)
	assert.Equal(t, "b", col.Name)

	_, ok = set.ByName("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b"}, set.Names())
}

func TestRowCountZeroForEmptySet(t *testing.T) {
	assert.Equal(t, 0, Set{}.RowCount())
}
