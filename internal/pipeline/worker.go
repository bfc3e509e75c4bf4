// Package pipeline runs the inventory intelligence pipeline over a batch of
// SKUs: portfolio classification, then per-SKU forecasting, reorder
// optimization and stockout simulation on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/inventory/reorder"
	"github.com/andresuchdata/stockintel/internal/inventory/simulation"
	"github.com/andresuchdata/stockintel/pkg/logger"
	"github.com/andresuchdata/stockintel/pkg/metrics"
)

// Runner evaluates batches of SKUs.
type Runner struct {
	classifier *abcxyz.Classifier
	eval       *evaluator
	config     Config
}

// NewRunner creates a runner. simulator may be nil to skip simulation.
func NewRunner(config Config, classifier *abcxyz.Classifier, forecaster *forecast.Forecaster,
	optimizer *reorder.Optimizer, simulator *simulation.Simulator) (*Runner, error) {
	if classifier == nil || forecaster == nil || optimizer == nil {
		return nil, fmt.Errorf("pipeline needs a classifier, forecaster and optimizer")
	}
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.Granularity == "" {
		config.Granularity = forecast.Monthly
	}
	if !config.Granularity.Valid() {
		return nil, fmt.Errorf("unknown granularity %q", config.Granularity)
	}
	if config.Horizon < 1 {
		config.Horizon = 1
	}
	if !config.From.IsZero() && !config.To.IsZero() && !config.From.Before(config.To) {
		return nil, fmt.Errorf("history window start %s must be before end %s",
			config.From.Format("2006-01-02"), config.To.Format("2006-01-02"))
	}

	return &Runner{
		classifier: classifier,
		config:     config,
		eval: &evaluator{
			forecaster: forecaster,
			optimizer:  optimizer,
			simulator:  simulator,
			cfg:        config,
		},
	}, nil
}

type job struct {
	index  int
	input  SKUInput
	series []forecast.Point
	cls    *abcxyz.Classification
}

// Run classifies the whole batch, evaluates every SKU and ranks the
// resulting recommendations. A SKU that fails is reported in its Evaluation
// and does not stop the run; cancelling ctx does.
func (r *Runner) Run(ctx context.Context, inputs []SKUInput) (*Report, error) {
	run := Run{
		ID:        uuid.NewString(),
		Status:    StatusPending,
		TotalSKUs: len(inputs),
		StartedAt: time.Now(),
	}
	runLog := logger.Component("pipeline").With().Str("run_id", run.ID).Logger()
	runLog.Info().Int("skus", len(inputs)).Int("workers", r.config.WorkerCount).Msg("Starting pipeline run")

	evaluations := make([]*Evaluation, len(inputs))
	jobs := make([]*job, 0, len(inputs))
	items := make([]abcxyz.Item, 0, len(inputs))

	// Normalize histories over the window; a SKU with bad data fails on its own
	for i, in := range inputs {
		series, err := forecast.FillGapsBetween(in.History, r.config.Granularity, r.config.From, r.config.To)
		if err != nil {
			evaluations[i] = failed(in, fmt.Errorf("demand history: %w", err))
			continue
		}
		jobs = append(jobs, &job{index: i, input: in, series: series})
		items = append(items, abcxyz.Item{
			ID:            in.Product.ID,
			Name:          in.Product.Name,
			Value:         in.Value,
			DemandHistory: forecast.Values(series),
		})
	}

	// Portfolio classification
	classified, err := r.classifier.Classify(items)
	if err != nil {
		return r.finish(run, evaluations, nil, err)
	}
	byID := make(map[string]*abcxyz.Classification, len(classified.Items))
	for i := range classified.Items {
		byID[classified.Items[i].ID] = &classified.Items[i]
	}
	for _, j := range jobs {
		j.cls = byID[j.input.Product.ID]
	}

	run.Status = StatusProcessing
	if err := r.processParallel(ctx, jobs, evaluations); err != nil {
		return r.finish(run, evaluations, &classified.Summary, err)
	}

	return r.finish(run, evaluations, &classified.Summary, nil)
}

// processParallel evaluates jobs using a worker pool
func (r *Runner) processParallel(ctx context.Context, jobs []*job, out []*Evaluation) error {
	workerCount := r.config.WorkerCount
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	jobChan := make(chan *job)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobChan {
				metrics.PipelineWorkersActive.Inc()
				out[j.index] = r.processSKU(j)
				metrics.PipelineWorkersActive.Dec()
				if out[j.index].Status == domain.EvaluationFailed {
					log.Warn().Int("worker", workerID).Str("sku", out[j.index].SKU).
						Str("error", out[j.index].Error).Msg("SKU evaluation failed")
				}
			}
		}(i)
	}

	// Enqueue jobs
	var ctxErr error
enqueue:
	for _, j := range jobs {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break enqueue
		case jobChan <- j:
		}
	}
	close(jobChan)

	// Wait for all workers
	wg.Wait()
	return ctxErr
}

// processSKU evaluates a single SKU and never returns nil
func (r *Runner) processSKU(j *job) *Evaluation {
	started := time.Now()

	ev, err := r.eval.evaluate(j.input, j.series, j.cls)
	if err != nil {
		ev = failed(j.input, err)
		ev.Classification = j.cls
	}
	ev.DurationMS = time.Since(started).Milliseconds()

	metrics.PipelineSKUsTotal.WithLabelValues(string(ev.Status)).Inc()
	return ev
}

func (r *Runner) finish(run Run, evaluations []*Evaluation, summary *abcxyz.Summary, err error) (*Report, error) {
	now := time.Now()
	run.CompletedAt = &now

	report := &Report{Run: run}
	if summary != nil {
		report.Classification = *summary
	}

	recs := make([]*reorder.Recommendation, 0, len(evaluations))
	for _, ev := range evaluations {
		if ev == nil {
			continue
		}
		report.Evaluations = append(report.Evaluations, ev)
		switch ev.Status {
		case domain.EvaluationFailed:
			report.Run.Failed++
		case domain.EvaluationPartial:
			report.Run.Partial++
		default:
			report.Run.Completed++
		}
		if ev.Recommendation != nil {
			recs = append(recs, ev.Recommendation)
		}
	}
	report.Ranked = reorder.Rank(recs)

	switch {
	case err != nil:
		report.Run.Status = StatusFailed
		report.Run.ErrorMessage = err.Error()
		log.Error().Err(err).Str("run_id", run.ID).Msg("Pipeline run failed")
		return report, err
	case report.Run.TotalSKUs > 0 && report.Run.Failed == report.Run.TotalSKUs:
		report.Run.Status = StatusFailed
		report.Run.ErrorMessage = "every SKU failed"
	case report.Run.Failed > 0:
		report.Run.Status = StatusPartial
	default:
		report.Run.Status = StatusCompleted
	}

	log.Info().
		Str("run_id", run.ID).
		Int("completed", report.Run.Completed).
		Int("partial", report.Run.Partial).
		Int("failed", report.Run.Failed).
		Dur("duration", now.Sub(run.StartedAt)).
		Msg("Pipeline run completed")

	return report, nil
}

func failed(in SKUInput, err error) *Evaluation {
	return &Evaluation{
		ProductID: in.Product.ID,
		SKU:       in.Product.Key(),
		Status:    domain.EvaluationFailed,
		Error:     err.Error(),
	}
}
