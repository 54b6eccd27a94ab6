package tcpostgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/fantasy-league-service/pkg/db/migrate"
	database "github.com/mpapenbr/fantasy-league-service/pkg/db/postgres"
)

// postgres error code for "database already exists"
const duplicateDatabase = "42P04"

// SetupTestDb returns a pool to the migrated database dbName inside the
// shared test container. Each test package should use its own dbName.
func SetupTestDb(dbName string) *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("fantasy-league-service-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, err := container.MappedPort(ctx, port)
	if err != nil {
		log.Fatal(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		log.Fatal(err)
	}
	adminURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return setupDatabase(ctx, adminURL, dbName)
}

// SetupExternalTestDb uses the server referenced by TESTDB_URL.
// The database dbName is created there if missing.
func SetupExternalTestDb(dbName string) *pgxpool.Pool {
	return setupDatabase(context.Background(), os.Getenv("TESTDB_URL"), dbName)
}

func setupDatabase(ctx context.Context, adminURL, dbName string) *pgxpool.Pool {
	if err := ensureDatabase(ctx, adminURL, dbName); err != nil {
		log.Fatal(err)
	}
	dbURL, err := WithDatabase(adminURL, dbName)
	if err != nil {
		log.Fatal(err)
	}
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ensureDatabase(ctx context.Context, adminURL, dbName string) error {
	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx,
		"select exists(select 1 from pg_database where datname = $1)",
		dbName).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = conn.Exec(ctx, "create database "+pgx.Identifier{dbName}.Sanitize())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == duplicateDatabase {
		return nil
	}
	return err
}

// WithDatabase returns dbURL with its database name replaced by dbName.
func WithDatabase(dbURL, dbName string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", err
	}
	if dbName == "" {
		return "", errors.New("database name is empty")
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func ClearTeamTable(pool *pgxpool.Pool) {
	if _, err := pool.Exec(context.Background(), "delete from teams"); err != nil {
		log.Fatal(err)
	}
}

func ClearUserTable(pool *pgxpool.Pool) {
	if _, err := pool.Exec(context.Background(), "delete from users"); err != nil {
		log.Fatal(err)
	}
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearTeamTable(pool)
	ClearUserTable(pool)
}
