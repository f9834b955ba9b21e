package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	def := types.TableDefinition{
		Name: "widgets",
		Columns: []types.ColumnDefinition{
			{Name: "id", DataType: types.Integer, Nullable: false, Unique: true},
			{Name: "weight", DataType: types.Float, Nullable: true},
		},
	}

	require.NoError(t, store.Save(def))

	loaded, err := store.Load("widgets")
	require.NoError(t, err)
	assert.Equal(t, def, loaded)
}

func TestLoadMissingTable(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load("nope")
	require.Error(t, err)
	assert.True(t, rqlerr.Is(err, rqlerr.KindNotFound))
}

func TestLoadIsCaseInsensitiveOnDisk(t *testing.T) {
	store := NewStore(t.TempDir())
	def := types.TableDefinition{Name: "Widgets", Columns: []types.ColumnDefinition{
		{Name: "id", DataType: types.Integer},
	}}
	require.NoError(t, store.Save(def))

	loaded, err := store.Load("WIDGETS")
	require.NoError(t, err)
	assert.Equal(t, "Widgets", loaded.Name)
}
