package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-logins/core/schema"
)

func TestOpenInMemoryCreatesTables(t *testing.T) {
	db, err := schema.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"loginsL", "loginsM", "loginsSyncMeta", "migrations"} {
		var name string
		err := db.QueryRow("select name from sqlite_master where type = 'table' and name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestOpenAppendsPragmasToPathWithExistingQueryString(t *testing.T) {
	// file::memory:?cache=private already carries a query string; Open
	// must append its own pragmas with "&", not a second "?".
	db, err := schema.Open("file::memory:?cache=private")
	require.NoError(t, err)
	defer db.Close()

	// An in-memory database always reports journal_mode "memory", so
	// the _foreign_keys=1 pragma is the one that shows the DSN was read.
	var foreignKeys int
	require.NoError(t, db.QueryRow("pragma foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestOpenInMemoryAcceptsOverlayInsert(t *testing.T) {
	db, err := schema.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`insert into loginsL (guid, hostname, formSubmitURL, password, is_deleted, sync_status)
		values ('g1', 'https://example.com', 'https://example.com', 'secret', 0, 2)`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("select count(*) from loginsL").Scan(&count))
	assert.Equal(t, 1, count)
}
