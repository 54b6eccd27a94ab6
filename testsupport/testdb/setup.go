package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/mpapenbr/fantasy-league-service/testsupport/tcpostgres"
)

// InitTestDb returns a pool to the migrated, empty test database dbName.
// Test packages run in parallel, so each package passes its own dbName.
// If TESTDB_URL is set that server is used instead of a container.
func InitTestDb(dbName string) *pgxpool.Pool {
	var pool *pgxpool.Pool

	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb(dbName)
	} else {
		pool = tcpg.SetupTestDb(dbName)
	}
	tcpg.ClearAllTables(pool)
	return pool
}
