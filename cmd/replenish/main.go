package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	sqlDB, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.PingContext(c.Context); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db := postgres.Open(sqlDB, "pgx", config.Load().Database.MaxConns)
	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func main() {
	cfg := config.Load()
	logger.Configure(os.Stderr, cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "replenish",
		Usage: "Operate the replenishment database",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Before: initDB,
		After:  closeDB,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending schema migrations",
				Action: runMigrate,
			},
			{
				Name:  "import",
				Usage: "Ingest normalized sales rows from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSON array of import rows",
						Required: true,
					},
				},
				Action: runImport,
			},
			{
				Name:  "policy",
				Usage: "Inspect and activate replenishment policies",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List every policy",
						Action: runPolicyList,
					},
					{
						Name:  "activate",
						Usage: "Make a policy the only active one",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Policy id", Required: true},
						},
						Action: runPolicyActivate,
					},
				},
			},
			{
				Name:  "archive",
				Usage: "Work with approved proposals",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List archived proposals, most recent first",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "code", Usage: "Only proposals containing this item code"},
						},
						Action: runArchiveList,
					},
					{
						Name:  "export",
						Usage: "Write an archived proposal to an xlsx file",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Archived proposal id", Required: true},
							&cli.StringFlag{Name: "out", Usage: "Output file; defaults to the generated file name"},
						},
						Action: runArchiveExport,
					},
				},
			},
		},
	}
}
