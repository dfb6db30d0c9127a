package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/ingest"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/types"
	"github.com/andresuchdata/conventicore/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func periodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "period",
			Aliases:  []string{"p"},
			Usage:    "Planning period (YYYY-MM)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "input-dir",
			Usage:   "Directory containing the input exports",
			Value:   "./data/input",
			EnvVars: []string{"APP_INPUT_DIR"},
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Directory for period snapshots",
			Value:   "./data/output",
			EnvVars: []string{"APP_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "rates-file",
			Usage:   "Event conversion/attach rate table (CSV)",
			EnvVars: []string{"PLANNING_RATES_FILE"},
		},
	}
}

func initDB(c *cli.Context) error {
	if c.String("db-url") == "" {
		return nil
	}

	// Initialize database connection
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Store the database connection in the context
	c.Context = context.WithValue(c.Context, types.DBKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(types.DBKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) *sql.DB {
	db, _ := c.Context.Value(types.DBKey).(*sql.DB)
	return db
}

// planningConfig reads PLANNING_* from the environment and overlays the CLI flags.
func planningConfig(c *cli.Context, loader *ingest.Loader) (config.Planning, error) {
	cfg := config.Load().Planning
	if f := c.String("rates-file"); f != "" {
		cfg.RatesFile = f
	}
	if n := c.Int("workers"); n > 0 {
		cfg.Workers = n
	}
	return loader.LoadRates(cfg)
}

// stageInputs parses the period and loads the input directory.
func stageInputs(c *cli.Context) (domain.Period, pipeline.Inputs, config.Planning, error) {
	period, err := domain.ParsePeriod(c.String("period"))
	if err != nil {
		return domain.Period{}, pipeline.Inputs{}, config.Planning{}, err
	}
	loader := ingest.NewLoader(c.String("input-dir"))
	cfg, err := planningConfig(c, loader)
	if err != nil {
		return period, pipeline.Inputs{}, cfg, err
	}
	in, err := loader.Load()
	if err != nil {
		return period, pipeline.Inputs{}, cfg, err
	}
	return period, in, cfg, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "planner",
		Usage: "Reconcile counts, forecast demand and plan replenishment for convention venues",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "console",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.IntFlag{
				Name:    "workers",
				Usage:   "Concurrent workers for per-SKU forecasting",
				Value:   runtime.NumCPU(),
				EnvVars: []string{"PLANNING_WORKERS"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.Configure(c.String("log-level"), c.String("log-format"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "counts",
				Usage: "Count ledger commands",
				Subcommands: []*cli.Command{
					{
						Name:   "unify",
						Usage:  "Merge Forms, Manual and System counts into the unified ledger",
						Flags:  periodFlags(),
						Action: runCountsUnify,
					},
				},
			},
			{
				Name:   "forecast",
				Usage:  "Project demand per SKU for the period",
				Flags:  periodFlags(),
				Action: runForecast,
			},
			{
				Name:   "plan",
				Usage:  "Build the prioritised buy plan",
				Flags:  periodFlags(),
				Action: runPlan,
			},
			{
				Name:   "pnl",
				Usage:  "Build the profitability snapshot",
				Flags:  periodFlags(),
				Action: runPnL,
			},
			{
				Name:   "run",
				Usage:  "Run the full pipeline for one or more periods",
				Flags:  append(periodRunFlags(), newDBURLFlag(false)),
				Before: initDB,
				After:  closeDB,
				Action: runPipeline,
			},
			{
				Name:   "publish",
				Usage:  "Run the pipeline and publish the period pack",
				Flags:  append(periodFlags(), storageFlags()...),
				Action: runPublish,
			},
			{
				Name:  "workbook",
				Usage: "Run the pipeline and export every table to one workbook",
				Flags: append(periodFlags(), &cli.StringFlag{
					Name:  "out",
					Usage: "Workbook path (default <output-dir>/planning_<period>.xlsx)",
				}),
				Action: runWorkbook,
			},
			{
				Name:   "pull",
				Usage:  "Pull the latest intake exports from Google Drive into the input directory",
				Flags:  pullFlags(),
				Action: runPull,
			},
			{
				Name:   "migrate",
				Usage:  "Create the planning tables",
				Flags:  []cli.Flag{newDBURLFlag(true)},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "runs",
				Usage: "Show the latest stored run of a period",
				Flags: []cli.Flag{
					newDBURLFlag(true),
					&cli.StringFlag{Name: "period", Aliases: []string{"p"}, Required: true},
				},
				Before: initDB,
				After:  closeDB,
				Action: runShowLatest,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
