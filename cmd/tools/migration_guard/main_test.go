package main

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCheckRepositoryMigrations(t *testing.T) {
	violations, err := check(os.DirFS("../../../internal/db/migrations"))
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestCheckReportsViolations(t *testing.T) {
	sql := &fstest.MapFile{Data: []byte("SELECT 1;\n")}
	fsys := fstest.MapFS{
		"0001_orders.up.sql":   sql,
		"0001_orders.down.sql": sql,
		"0001_other.up.sql":    sql,
		"0003_events.up.sql":   sql,
		"0003_events.down.sql": {Data: []byte("\n  \n")},
		"notes.txt":            sql,
	}
	violations, err := check(fsys)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{
		`0001_other.up.sql: version 1 already used by "orders"`,
		"0003_events.down.sql: file is empty",
		"0003_events: expected version 0002",
		"notes.txt: name must look like 0001_name.up.sql",
	}, violations)
}
