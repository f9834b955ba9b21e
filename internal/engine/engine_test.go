package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/sqlsurface"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	eng, err := Open(Config{
		SchemaDir:     filepath.Join(dir, "schema"),
		DataDir:       filepath.Join(dir, "data"),
		WorkgroupSize: 64,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestCreateThenSelectEmpty(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE users ( id INTEGER NOT NULL UNIQUE, name TEXT NOT NULL, is_active BOOLEAN );")
	require.NoError(t, err)

	res, err := eng.Execute(ctx, "SELECT * FROM users;")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestInsertThenSelectByEquality(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE users ( id INTEGER NOT NULL UNIQUE, name TEXT NOT NULL, is_active BOOLEAN );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO users VALUES ( 1, 'alice', true );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO users VALUES ( 2, 'bob', false );")
	require.NoError(t, err)

	res, err := eng.Execute(ctx, "SELECT * FROM users WHERE id=1;")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, int32(1), row["id"].Integer())
	assert.Equal(t, "alice", row["name"].Text())
	assert.True(t, row["is_active"].Boolean())
}

func TestInsertArityMismatchLeavesTableEmpty(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE users ( id INTEGER NOT NULL UNIQUE, name TEXT NOT NULL, is_active BOOLEAN );")
	require.NoError(t, err)

	_, err = eng.Execute(ctx, "INSERT INTO users VALUES ( 1, 'alice' );")
	require.Error(t, err)
	assert.True(t, rqlerr.Is(err, rqlerr.KindInvalidInput))

	res, err := eng.Execute(ctx, "SELECT * FROM users;")
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestUpdateScalesNumericColumnsSequentially(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE m ( a FLOAT NOT NULL, b FLOAT NOT NULL );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO m VALUES ( 1.0, 10.0 );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO m VALUES ( 2.0, 20.0 );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO m VALUES ( 3.0, 30.0 );")
	require.NoError(t, err)

	_, err = eng.Execute(ctx, "UPDATE m SET a = a * 2, b = b + a;")
	require.NoError(t, err)

	res, err := eng.Execute(ctx, "SELECT * FROM m;")
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)

	gotA := make([]float32, 3)
	gotB := make([]float32, 3)
	for i, row := range res.Rows {
		gotA[i] = row["a"].Float()
		gotB[i] = row["b"].Float()
	}
	assert.ElementsMatch(t, []float32{2, 4, 6}, gotA)
	// b reads a's value after the first assignment already ran in the
	// same lane, matching a shader's own sequential statement order.
	assert.ElementsMatch(t, []float32{12, 24, 36}, gotB)
}

func TestSelectRejectsInvalidMarker(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE users ( id INTEGER NOT NULL UNIQUE );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO users VALUES ( 1 );")
	require.NoError(t, err)

	dataPath := filepath.Join(eng.rowlog.DataDir, "users_data.bin")
	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	data[0] = 0x00
	require.NoError(t, os.WriteFile(dataPath, data, 0o644))

	_, err = eng.Execute(ctx, "SELECT * FROM users;")
	require.Error(t, err)
	assert.True(t, rqlerr.Is(err, rqlerr.KindInvalidData))
}

func TestUpdateRejectsTextColumnReference(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE users ( id INTEGER NOT NULL, name TEXT NOT NULL );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO users VALUES ( 1, 'alice' );")
	require.NoError(t, err)

	_, err = eng.Execute(ctx, "UPDATE users SET id = id + length(name);")
	require.Error(t, err)
	assert.True(t, rqlerr.Is(err, rqlerr.KindInvalidInput))

	res, err := eng.Execute(ctx, "SELECT * FROM users;")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int32(1), res.Rows[0]["id"].Integer())
}

func TestUpdatePreservesNonNumericColumns(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Execute(ctx, "CREATE TABLE m ( id INTEGER NOT NULL, label TEXT NOT NULL, a FLOAT NOT NULL );")
	require.NoError(t, err)
	_, err = eng.Execute(ctx, "INSERT INTO m VALUES ( 1, 'keep', 5.0 );")
	require.NoError(t, err)

	_, err = eng.Execute(ctx, "UPDATE m SET a = a + 1;")
	require.NoError(t, err)

	res, err := eng.Execute(ctx, "SELECT * FROM m;")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int32(1), res.Rows[0]["id"].Integer())
	assert.Equal(t, "keep", res.Rows[0]["label"].Text())
	assert.Equal(t, float32(6), res.Rows[0]["a"].Float())
}

func TestOpenRefusesSecondLock(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{SchemaDir: filepath.Join(dir, "schema"), DataDir: filepath.Join(dir, "data"), WorkgroupSize: 64}

	first, err := Open(cfg, nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = Open(cfg, nil)
	require.Error(t, err)
}

func TestResultKindMatchesStatement(t *testing.T) {
	eng := newTestEngine(t)
	res, err := eng.Execute(context.Background(), "CREATE TABLE t ( id INTEGER NOT NULL );")
	require.NoError(t, err)
	assert.Equal(t, sqlsurface.KindCreateTable, res.Kind)
}
