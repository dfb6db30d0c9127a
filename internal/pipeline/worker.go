package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/conventicore/internal/domain"
	"github.com/rs/zerolog/log"
)

// InputLoader materialises the inputs for one period.
type InputLoader func(ctx context.Context, period domain.Period) (Inputs, error)

// PeriodResult pairs a period with its run outcome.
type PeriodResult struct {
	Period domain.Period
	Result *RunResult
	Err    error
}

// Worker runs the pipeline for several periods with a bounded pool. Periods share nothing.
type Worker struct {
	orchestrator *Orchestrator
	load         InputLoader
	config       PipelineConfig
}

// NewWorker creates a new period worker.
func NewWorker(o *Orchestrator, load InputLoader) *Worker {
	return &Worker{orchestrator: o, load: load, config: o.Config()}
}

// RunPeriods processes every period and returns results in input order.
func (w *Worker) RunPeriods(ctx context.Context, periods []domain.Period) []PeriodResult {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	type job struct {
		idx    int
		period domain.Period
	}

	results := make([]PeriodResult, len(periods))
	jobChan := make(chan job, len(periods))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobChan {
				res, err := w.runOne(ctx, j.period)
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Str("period", j.period.Label).
						Msg("worker: period failed")
				}
				results[j.idx] = PeriodResult{Period: j.period, Result: res, Err: err}
			}
		}(i)
	}

	// Enqueue jobs
	for i, p := range periods {
		jobChan <- job{idx: i, period: p}
	}
	close(jobChan)

	wg.Wait()
	return results
}

func (w *Worker) runOne(ctx context.Context, period domain.Period) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := w.load(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs for %s: %w", period.Label, err)
	}
	return w.orchestrator.Run(ctx, in, period)
}
