package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/conventicore/internal/config"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/drive"
	"github.com/andresuchdata/conventicore/internal/ingest"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/report"
	"github.com/andresuchdata/conventicore/internal/repository/postgres"
	"github.com/andresuchdata/conventicore/internal/storage"
	"github.com/andresuchdata/conventicore/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

func periodRunFlags() []cli.Flag {
	flags := periodFlags()
	// run accepts several periods: --period 2025-07 --period 2025-08 or 2025-07,2025-08
	flags[0] = &cli.StringSliceFlag{
		Name:     "period",
		Aliases:  []string{"p"},
		Usage:    "Planning period(s) (YYYY-MM)",
		Required: true,
	}
	return append(flags, &cli.IntFlag{
		Name:    "pipeline-workers",
		Usage:   "Number of periods processed concurrently",
		Value:   2,
		EnvVars: []string{"PIPELINE_WORKERS"},
	})
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "upload",
			Usage: "Upload the pack to object storage (STORAGE_* env)",
		},
	}
}

func pullFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "drive-folder-id",
			Usage:   "Google Drive folder ID containing the intake exports",
			EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
		},
		&cli.StringFlag{
			Name:    "drive-folder-path",
			Usage:   "Folder path (e.g. ConventiCore/Intake), resolved when no ID is given",
			EnvVars: []string{"GOOGLE_DRIVE_FOLDER_PATH"},
		},
		&cli.StringFlag{
			Name:    "input-dir",
			Usage:   "Local directory the exports are written to",
			Value:   "./data/input",
			EnvVars: []string{"APP_INPUT_DIR"},
		},
	}
}

func parsePeriods(values []string) ([]domain.Period, error) {
	var periods []domain.Period
	for _, v := range values {
		for _, label := range strings.Split(v, ",") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			p, err := domain.ParsePeriod(label)
			if err != nil {
				return nil, err
			}
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return nil, errors.New("at least one period is required")
	}
	return periods, nil
}

func runPipeline(c *cli.Context) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	periods, err := parsePeriods(c.StringSlice("period"))
	if err != nil {
		return err
	}

	loader := ingest.NewLoader(c.String("input-dir"))
	planning, err := planningConfig(c, loader)
	if err != nil {
		return err
	}

	pCfg := pipeline.DefaultPipelineConfig(c.String("output-dir"))
	pCfg.Planning = planning
	pCfg.WorkerCount = c.Int("pipeline-workers")

	worker := pipeline.NewWorker(pipeline.NewOrchestrator(pCfg), func(ctx context.Context, p domain.Period) (pipeline.Inputs, error) {
		return loader.Load()
	})

	var repo *pipeline.Repository
	if db := dbFromContext(c); db != nil {
		repo = pipeline.NewRepository(db)
	}

	var failed error
	for _, r := range worker.RunPeriods(ctx, periods) {
		if r.Result == nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", r.Period.Label, r.Err))
			continue
		}
		if repo != nil {
			if err := repo.SavePipelineRun(ctx, &r.Result.Run); err != nil {
				return fmt.Errorf("save run: %w", err)
			}
			if err := repo.SaveExceptions(ctx, r.Result.Run.ID, r.Result.Exceptions); err != nil {
				return fmt.Errorf("save exceptions: %w", err)
			}
		}
		printSummary(r.Result.Summary, r.Result.Run)
		if r.Err != nil {
			failed = errors.Join(failed, fmt.Errorf("%s: %w", r.Period.Label, r.Err))
		}
	}
	return failed
}

func printSummary(s pipeline.RunSummary, run pipeline.PipelineRun) {
	fmt.Printf("%s [%s] ledger=%d forecast=%d plan=%d (HIGH %d) total=%s budget=%s over=%v exceptions=%d/%d\n",
		s.Period, run.Status, s.LedgerRecords, s.ForecastSKUs, s.PlanRows, s.HighPriority,
		s.TotalOrderValue, s.Budget, s.OverBudget, s.HighSeverity, s.MediumSeverity)
	for stage, msg := range s.StageErrors {
		fmt.Printf("  %s: %s\n", stage, msg)
	}
}

// runOnce runs the whole pipeline for --period without writing snapshots.
func runOnce(c *cli.Context) (*pipeline.RunResult, error) {
	period, in, cfg, err := stageInputs(c)
	if err != nil {
		return nil, err
	}
	pCfg := pipeline.DefaultPipelineConfig("")
	pCfg.Planning = cfg
	res, err := pipeline.NewOrchestrator(pCfg).Run(c.Context, in, period)
	if res != nil && res.Run.Status == pipeline.StatusPartial {
		logger.Log.Warn().Err(err).Msg("pipeline finished partially")
		return res, nil
	}
	return res, err
}

func runPublish(c *cli.Context) error {
	res, err := runOnce(c)
	if err != nil {
		return err
	}

	var store storage.ObjectStorage
	if c.Bool("upload") {
		client, err := storage.NewMinioClient(config.Load().Storage)
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		store = client
	}

	pack, err := report.PublishPack(c.Context, res.Run.Period, c.String("output-dir"), res.Tables(), res.Summary, store)
	if err != nil {
		return err
	}
	for _, f := range pack.Files {
		fmt.Println(f)
	}
	return nil
}

func runWorkbook(c *cli.Context) error {
	res, err := runOnce(c)
	if err != nil {
		return err
	}
	path := c.String("out")
	if path == "" {
		path = filepath.Join(c.String("output-dir"), fmt.Sprintf("planning_%s.xlsx", res.Run.Period))
	}
	if err := report.ExportWorkbook(path, res.Tables()...); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runPull(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Minute)
	defer cancel()

	creds := config.Load().Drive.CredentialsJSON
	if strings.TrimSpace(creds) == "" {
		return errors.New("GOOGLE_DRIVE_CREDENTIALS_JSON env is required")
	}
	svc, err := drive.NewService(ctx, creds)
	if err != nil {
		return fmt.Errorf("failed to create Drive service: %w", err)
	}

	folderID := c.String("drive-folder-id")
	if folderID == "" && c.String("drive-folder-path") != "" {
		if folderID, err = svc.FindFolderByPath(ctx, c.String("drive-folder-path")); err != nil {
			return err
		}
	}
	if folderID == "" {
		return errors.New("drive-folder-id or drive-folder-path is required")
	}

	res, err := drive.NewIntakeService(svc, folderID, c.String("input-dir")).Pull(ctx)
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Printf("%-10s %s -> %s (%d records)\n", f.Kind, f.DriveName, f.LocalPath, f.Records)
	}
	return nil
}

func runMigrate(c *cli.Context) error {
	db := postgres.Wrap(sqlx.NewDb(dbFromContext(c), "pgx"))
	return db.Migrate(c.Context)
}

func runShowLatest(c *cli.Context) error {
	run, err := pipeline.NewRepository(dbFromContext(c)).GetLatestRun(c.Context, c.String("period"))
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Printf("no run stored for %s\n", c.String("period"))
		return nil
	}
	fmt.Printf("%s %s %s started %s", run.ID, run.Period, run.Status, run.StartedAt.Format(time.RFC3339))
	if run.ErrorMessage != "" {
		fmt.Printf(" error: %s", run.ErrorMessage)
	}
	fmt.Println()
	return nil
}
