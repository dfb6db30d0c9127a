package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/andresuchdata/conventicore/internal/cache"
	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/andresuchdata/conventicore/internal/ingest"
	"github.com/andresuchdata/conventicore/internal/pipeline"
	"github.com/andresuchdata/conventicore/internal/report"
	"github.com/andresuchdata/conventicore/internal/repository"
	"github.com/andresuchdata/conventicore/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrNoRun         = errors.New("no planning run for period")
	ErrRunInProgress = errors.New("planning run already in progress for period")
	ErrUnknownTable  = errors.New("unknown table")
)

// RunStore records runs and their exception logs. *pipeline.Repository satisfies it.
type RunStore interface {
	SavePipelineRun(ctx context.Context, run *pipeline.PipelineRun) error
	SaveExceptions(ctx context.Context, runID uuid.UUID, excs []domain.ExceptionRecord) error
}

// Deps are the optional collaborators of the planning service; nil members are skipped.
type Deps struct {
	Cache     cache.PlanningCache
	Runs      RunStore
	Snapshots repository.SnapshotRepository
	Store     storage.ObjectStorage
}

type PlanningService struct {
	inputDir  string
	reportDir string
	cfg       pipeline.PipelineConfig
	deps      Deps

	mu      sync.Mutex
	running map[string]bool
	results map[string]*pipeline.RunResult
}

func NewPlanningService(inputDir, reportDir string, cfg pipeline.PipelineConfig, deps Deps) *PlanningService {
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopPlanningCache()
	}
	return &PlanningService{
		inputDir:  inputDir,
		reportDir: reportDir,
		cfg:       cfg,
		deps:      deps,
		running:   make(map[string]bool),
		results:   make(map[string]*pipeline.RunResult),
	}
}

// Run loads the input directory, runs the pipeline for the period, then caches and persists the
// result. A run that ends partial is returned together with its stage errors.
func (s *PlanningService) Run(ctx context.Context, label string) (*pipeline.RunResult, error) {
	period, err := domain.ParsePeriod(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}

	if !s.acquire(period.Label) {
		return nil, ErrRunInProgress
	}
	defer s.release(period.Label)

	loader := ingest.NewLoader(s.inputDir)
	cfg := s.cfg
	if cfg.Planning, err = loader.LoadRates(cfg.Planning); err != nil {
		return nil, err
	}
	in, err := loader.Load()
	if err != nil {
		return nil, err
	}

	res, runErr := pipeline.NewOrchestrator(cfg).Run(ctx, in, period)
	if res.Run.Status == pipeline.StatusFailed {
		return res, runErr
	}

	s.mu.Lock()
	s.results[period.Label] = res
	s.mu.Unlock()

	if err := s.deps.Cache.InvalidatePeriod(ctx, period.Label); err != nil {
		log.Warn().Err(err).Msg("planning: cache invalidate failed")
	}
	if err := s.deps.Cache.SetRun(ctx, period.Label, res); err != nil {
		log.Warn().Err(err).Msg("planning: cache set run failed")
	}

	s.persist(ctx, res)
	return res, runErr
}

func (s *PlanningService) persist(ctx context.Context, res *pipeline.RunResult) {
	logger := log.With().Str("run_id", res.Run.ID.String()).Str("period", res.Run.Period).Logger()

	if s.deps.Runs != nil {
		if err := s.deps.Runs.SavePipelineRun(ctx, &res.Run); err != nil {
			logger.Error().Err(err).Msg("planning: save run failed")
		} else if err := s.deps.Runs.SaveExceptions(ctx, res.Run.ID, res.Exceptions); err != nil {
			logger.Error().Err(err).Msg("planning: save exceptions failed")
		}
	}
	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.SaveTables(ctx, res.Run.ID, res.Run.Period, res.Tables()); err != nil {
			logger.Error().Err(err).Msg("planning: save snapshots failed")
		}
	}
}

func (s *PlanningService) acquire(period string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[period] {
		return false
	}
	s.running[period] = true
	return true
}

func (s *PlanningService) release(period string) {
	s.mu.Lock()
	delete(s.running, period)
	s.mu.Unlock()
}

// GetResult returns the latest run result of the period from memory or the cache.
func (s *PlanningService) GetResult(ctx context.Context, period string) (*pipeline.RunResult, error) {
	s.mu.Lock()
	res, ok := s.results[period]
	s.mu.Unlock()
	if ok {
		return res, nil
	}

	res, found, err := s.deps.Cache.GetRun(ctx, period)
	if err != nil {
		log.Warn().Err(err).Msg("planning: cache get run failed")
	}
	if found {
		return res, nil
	}
	return nil, ErrNoRun
}

// GetSummary returns the run summary of the period.
func (s *PlanningService) GetSummary(ctx context.Context, period string) (*pipeline.RunSummary, error) {
	res, err := s.GetResult(ctx, period)
	if err != nil {
		return nil, err
	}
	return &res.Summary, nil
}

// GetTable returns a filtered output table, trying the view cache, then the latest result, then
// the stored snapshot.
func (s *PlanningService) GetTable(ctx context.Context, filter cache.TableFilter) (domain.Table, error) {
	name, ok := ResolveTable(filter.Table)
	if !ok {
		return domain.Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, filter.Table)
	}
	filter.Table = name

	if t, found, err := s.deps.Cache.GetView(ctx, filter); err == nil && found {
		return t, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("planning: cache get view failed")
	}

	t, err := s.table(ctx, filter.Period, name)
	if err != nil {
		return domain.Table{}, err
	}
	view := FilterTable(t, filter.Categories, filter.Priority)

	if err := s.deps.Cache.SetView(ctx, filter, view); err != nil {
		log.Warn().Err(err).Msg("planning: cache set view failed")
	}
	return view, nil
}

func (s *PlanningService) table(ctx context.Context, period, name string) (domain.Table, error) {
	res, err := s.GetResult(ctx, period)
	if err == nil {
		t, _ := res.Table(name)
		return t, nil
	}
	if !errors.Is(err, ErrNoRun) || s.deps.Snapshots == nil {
		return domain.Table{}, err
	}

	t, found, err := s.deps.Snapshots.GetTable(ctx, period, name)
	if err != nil {
		return domain.Table{}, err
	}
	if !found {
		return domain.Table{}, ErrNoRun
	}
	return t, nil
}

// Publish writes the period's report pack and uploads it when object storage is configured.
func (s *PlanningService) Publish(ctx context.Context, period string) (*report.Pack, error) {
	res, err := s.GetResult(ctx, period)
	if err != nil {
		return nil, err
	}
	return report.PublishPack(ctx, period, s.reportDir, res.Tables(), res.Summary, s.deps.Store)
}

// tableAliases maps API names onto table names.
var tableAliases = map[string]string{
	"forecast":       "forecast",
	"buy_plan":       "buy_plan",
	"plan":           "buy_plan",
	"pnl":            "pnl_snapshot",
	"pnl_snapshot":   "pnl_snapshot",
	"exceptions":     "exceptions_log",
	"exceptions_log": "exceptions_log",
	"ledger":         "counts_unified",
	"counts_unified": "counts_unified",
}

// ResolveTable maps an API table name onto an output table name.
func ResolveTable(name string) (string, bool) {
	t, ok := tableAliases[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// FilterTable keeps rows whose category is one of categories and whose priority matches.
// Empty criteria match everything; tables without the column are left unfiltered by it.
func FilterTable(t domain.Table, categories []string, priority string) domain.Table {
	cats := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cats[c] = true
		}
	}
	priority = strings.ToUpper(strings.TrimSpace(priority))
	if len(cats) == 0 && priority == "" {
		return t
	}

	out := domain.NewTable(t.Name, t.Columns...)
	out.Rows = []domain.Row{}
	for _, r := range t.Rows {
		if len(cats) > 0 {
			if c, ok := r["category"]; ok && !cats[strings.ToLower(fmt.Sprint(c))] {
				continue
			}
		}
		if priority != "" {
			if p, ok := r["priority"]; ok && !strings.EqualFold(fmt.Sprint(p), priority) {
				continue
			}
		}
		out.Append(r)
	}
	return out
}
