package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/cmd/util"
	"github.com/mpapenbr/fantasy-league-service/pkg/config"
	dbMigrate "github.com/mpapenbr/fantasy-league-service/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to migration files (for example file:///migrations), embedded files are used if empty")

	return cmd
}

func startMigration() error {
	util.SetupLogger()
	util.WaitForDatabase()

	if config.MigrationSourceURL == "" {
		log.Info("Using embedded migrations")
		if err := dbMigrate.MigrateDb(config.DB); err != nil {
			log.Error("Migration failed", log.ErrorField(err))
			return err
		}
		log.Info("Migration done")
		return nil
	}

	log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
	m, err := migrate.New(config.MigrationSourceURL, prepareURLForDB(config.DB))
	if err != nil {
		log.Error("Could not create migration", log.ErrorField(err))
		return err
	}
	defer m.Close()
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("No Migration required")
		return nil
	}
	return err
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
