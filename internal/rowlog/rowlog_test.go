package rowlog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

func testColumns() []types.ColumnDefinition {
	return []types.ColumnDefinition{
		{Name: "id", DataType: types.Integer},
		{Name: "label", DataType: types.Text},
	}
}

func TestAppendAndScan(t *testing.T) {
	store := NewStore(t.TempDir())
	cols := testColumns()
	rows := []types.Row{
		{"id": types.NewInteger(1), "label": types.NewText("a")},
		{"id": types.NewInteger(2), "label": types.NewText("b")},
	}

	require.NoError(t, store.Append("widgets", cols, rows))
	require.NoError(t, store.Append("widgets", cols, []types.Row{
		{"id": types.NewInteger(3), "label": types.NewText("c")},
	}))

	got, err := store.Scan("widgets", cols)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int32(1), got[0]["id"].Integer())
	assert.Equal(t, "c", got[2]["label"].Text())
}

func TestScanMissingFileIsEmptyTable(t *testing.T) {
	store := NewStore(t.TempDir())
	rows, err := store.Scan("nope", testColumns())
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestRewriteReplacesContents(t *testing.T) {
	store := NewStore(t.TempDir())
	cols := testColumns()
	require.NoError(t, store.Append("widgets", cols, []types.Row{
		{"id": types.NewInteger(1), "label": types.NewText("a")},
	}))

	require.NoError(t, store.Rewrite("widgets", cols, []types.Row{
		{"id": types.NewInteger(9), "label": types.NewText("z")},
	}))

	got, err := store.Scan("widgets", cols)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(9), got[0]["id"].Integer())
}

func TestScanTruncatedFrameIsUnexpectedEOF(t *testing.T) {
	store := NewStore(t.TempDir())
	cols := testColumns()
	require.NoError(t, store.Append("widgets", cols, []types.Row{
		{"id": types.NewInteger(1), "label": types.NewText("a")},
	}))

	path := store.path("widgets")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0o644))

	_, err = store.Scan("widgets", cols)
	require.Error(t, err)
	assert.True(t, rqlerr.Is(err, rqlerr.KindUnexpectedEOF))
}
