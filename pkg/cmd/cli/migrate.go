package cli

import (
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	colorable "github.com/mattn/go-colorable"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/akashbera009/kichu-kotha/config"
)

type MigrateHandler struct {
	c *config.Config
}

func newMigrateHandler(c *config.Config) *MigrateHandler {
	return &MigrateHandler{c: c}
}

// MigrateSQL applies the SQL migrations under db/migrations. The target
// database comes from the first argument, or from DATABASE_URL when no
// argument is given.
func (h *MigrateHandler) MigrateSQL(cmd *cobra.Command, args []string) {
	url := h.c.DatabaseURL
	if len(args) > 0 && args[0] != "" {
		url = args[0]
	}
	if url == "" {
		fmt.Println(cmd.UsageString())
		os.Exit(2)
	}

	log.SetLevel(log.DebugLevel)
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
	log.SetOutput(colorable.NewColorableStdout())

	log.Info("Applying SQL migration...")

	db, err := sqlx.Open("postgres", url)
	if err != nil {
		log.Errorf("An error occurred while connecting to SQL: %s", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Errorf("An error occurred while connecting to SQL: %s", err)
		os.Exit(1)
	}

	n, err := migrate.Exec(db.DB, "postgres", &migrate.FileMigrationSource{
		Dir: "db/migrations",
	}, migrate.Up)
	if err != nil {
		log.Errorf("An error occurred while running the migrations: %s", err)
		os.Exit(1)
	}
	log.Infof("Migration successful! Applied a total of %d migrations.", n)
}
