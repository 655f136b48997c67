package cmdutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/datastore"
	"github.com/lepinkainen/bookfinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type shelfEntry struct {
	ISBN  string
	Title string
}

var shelfTable = datastore.Table{
	Name:   "shelf",
	Schema: `CREATE TABLE IF NOT EXISTS shelf (isbn13 TEXT PRIMARY KEY, title TEXT NOT NULL)`,
}

var shelf = []shelfEntry{
	{ISBN: "9780441013593", Title: "Dune"},
	{ISBN: "9780141439587", Title: "Emma"},
}

func shelfRow(e shelfEntry) datastore.Row {
	return datastore.Row{"isbn13": e.ISBN, "title": e.Title}
}

func countShelf(t *testing.T, dbPath string) int {
	t.Helper()

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM shelf").Scan(&n))
	return n
}

func TestWriteToDatastoreDisabled(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	testutil.SetViperValue(t, "datasette.enabled", false)
	testutil.SetViperValue(t, "datasette.dbfile", env.Path("export.db"))

	require.NoError(t, WriteToDatastore(context.Background(), shelf, shelfTable, "shelf", shelfRow))
	assert.False(t, env.FileExists("export.db"))
}

func TestWriteToDatastoreLocal(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	dbPath := testutil.SetupDatasetteDB(t, env)
	ctx := context.Background()

	require.NoError(t, WriteToDatastore(ctx, shelf, shelfTable, "shelf", shelfRow))
	assert.Equal(t, 2, countShelf(t, dbPath))

	// rewriting the same keys replaces rows
	require.NoError(t, WriteToDatastore(ctx, shelf[:1], shelfTable, "shelf", shelfRow))
	assert.Equal(t, 2, countShelf(t, dbPath))
}

func TestWriteToDatastoreRemote(t *testing.T) {
	testutil.ResetConfig(t)

	var gotPath string
	var payload struct {
		Rows []datastore.Row `json:"rows"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer ts.Close()

	testutil.SetViperValue(t, "datasette.enabled", true)
	testutil.SetViperValue(t, "datasette.mode", "remote")
	testutil.SetViperValue(t, "datasette.remote_url", ts.URL)

	require.NoError(t, WriteToDatastore(context.Background(), shelf, shelfTable, "shelf", shelfRow))
	assert.Equal(t, "/-/insert/bookfinder/shelf", gotPath)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "Dune", payload.Rows[0]["title"])
}

func TestWriteToDatastoreInvalidMode(t *testing.T) {
	testutil.ResetConfig(t)
	env := testutil.NewTestEnv(t)
	testutil.SetViperValue(t, "datasette.enabled", true)
	testutil.SetViperValue(t, "datasette.mode", "carrier-pigeon")
	testutil.SetViperValue(t, "datasette.dbfile", env.Path("export.db"))

	err := WriteToDatastore(context.Background(), shelf, shelfTable, "shelf", shelfRow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
	assert.False(t, env.FileExists("export.db"))
}
