package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/types"
)

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	cols := []types.ColumnDefinition{
		{Name: "id", DataType: types.Integer},
		{Name: "score", DataType: types.Float},
		{Name: "active", DataType: types.Boolean},
		{Name: "label", DataType: types.Text},
	}
	row := types.Row{
		"id":     types.NewInteger(42),
		"score":  types.NewFloat(3.5),
		"active": types.NewBoolean(true),
		"label":  types.NewText("hello"),
	}

	payload, err := EncodeRow(cols, row)
	require.NoError(t, err)

	decoded, err := DecodeRow(cols, payload)
	require.NoError(t, err)

	assert.Equal(t, row["id"], decoded["id"])
	assert.Equal(t, row["score"], decoded["score"])
	assert.Equal(t, row["active"], decoded["active"])
	assert.Equal(t, row["label"], decoded["label"])
}

func TestEncodeRowMissingColumn(t *testing.T) {
	cols := []types.ColumnDefinition{{Name: "id", DataType: types.Integer}}
	_, err := EncodeRow(cols, types.Row{})
	require.Error(t, err)
}

func TestEncodeRowTypeMismatch(t *testing.T) {
	cols := []types.ColumnDefinition{{Name: "id", DataType: types.Integer}}
	row := types.Row{"id": types.NewText("not an integer")}
	_, err := EncodeRow(cols, row)
	require.Error(t, err)
}

func TestDecodeRowShortBuffer(t *testing.T) {
	cols := []types.ColumnDefinition{{Name: "id", DataType: types.Integer}}
	_, err := DecodeRow(cols, []byte{0x01, 0x02})
	require.Error(t, err)
}

func TestTextRoundTripEmptyString(t *testing.T) {
	cols := []types.ColumnDefinition{{Name: "label", DataType: types.Text}}
	row := types.Row{"label": types.NewText("")}

	payload, err := EncodeRow(cols, row)
	require.NoError(t, err)
	assert.Len(t, payload, 8)

	decoded, err := DecodeRow(cols, payload)
	require.NoError(t, err)
	assert.Equal(t, "", decoded["label"].Text())
}
