package dbctx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvusdb/corvusdb/internal/dberr"
	"github.com/corvusdb/corvusdb/internal/record"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := defaults()
	cfg.DataFile = filepath.Join(t.TempDir(), "dbctx.db")
	cfg.BufferPoolFrames = 8
	return cfg
}

func schemaWithID() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.ColInt64},
		{Name: "name", Type: record.ColText, FixedLen: 16},
	}}
}

func TestCreateTableThenLookup(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.CreateTable("users", schemaWithID())
	require.NoError(t, err)

	info, err := db.Table("users")
	require.NoError(t, err)
	require.Equal(t, "users", info.Name)
	require.NotNil(t, info.Heap)
}

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.CreateTable("users", schemaWithID())
	require.NoError(t, err)

	_, err = db.CreateTable("users", schemaWithID())
	require.ErrorIs(t, err, dberr.ErrDuplicateKey)
}

func TestTableLookupMissingReturnsNotFound(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Table("ghost")
	require.ErrorIs(t, err, dberr.ErrNotFound)
}

func TestCreateIndexValidatesColumnAndRegisters(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.CreateTable("users", schemaWithID())
	require.NoError(t, err)

	info, err := db.CreateIndex("users", "users_id_idx", "id", IndexOrdered)
	require.NoError(t, err)
	require.Equal(t, 0, info.ColumnIndex)

	_, err = db.CreateIndex("users", "bad_idx", "nope", IndexOrdered)
	require.ErrorIs(t, err, dberr.ErrSchemaMismatch)

	specs := db.IndexSpecs()
	require.Len(t, specs, 1)
	require.Equal(t, "users_id_idx", specs[0].IndexName)
}

func TestDropTableRemovesItsIndexes(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.CreateTable("users", schemaWithID())
	require.NoError(t, err)
	_, err = db.CreateIndex("users", "users_id_idx", "id", IndexOrdered)
	require.NoError(t, err)

	require.NoError(t, db.DropTable("users"))

	_, err = db.Table("users")
	require.ErrorIs(t, err, dberr.ErrNotFound)
	_, err = db.Index("users", "users_id_idx")
	require.ErrorIs(t, err, dberr.ErrNotFound)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	db, err := Open(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = db.CreateTable("users", schemaWithID())
	require.Error(t, err)
}
