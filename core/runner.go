package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"reqkit/config"
	"reqkit/database"
	"reqkit/logger"
	"reqkit/models"
	"reqkit/resolver"

	"golang.org/x/sync/errgroup"
)

// RunOptions tunes one batch run. Zero values fall back to the runner section
// of the configuration.
type RunOptions struct {
	Collection  string
	Concurrency int
	MaxRecords  int // 0 = no cap
}

// ResultSink receives completed results. The default sink writes to the
// database; tests substitute their own.
type ResultSink func(*models.ExecutionResult) error

func dbSink(res *models.ExecutionResult) error {
	_, err := database.InsertResult(res)
	return err
}

// Runner executes a task's template once per record of a collection, with
// bounded concurrency. Records are read from the pager on the calling
// goroutine; resolution and execution fan out to workers.
type Runner struct {
	executor *Executor
	sink     ResultSink
}

func NewRunner(executor *Executor) *Runner {
	return &Runner{executor: executor, sink: dbSink}
}

// NewRunnerWithSink is used by tests to capture results without a database.
func NewRunnerWithSink(executor *Executor, sink ResultSink) *Runner {
	return &Runner{executor: executor, sink: sink}
}

// Run executes the task over every record of opts.Collection and returns a
// summary. Per-record resolution failures are recorded as failed results and
// do not abort the batch; only pager and sink errors do.
func (rn *Runner) Run(ctx context.Context, task *models.RequestTask, opts RunOptions) (*models.RunSummary, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	tmpl, err := task.Template()
	if err != nil {
		return nil, fmt.Errorf("task %d has an invalid template: %w", task.ID, err)
	}
	mappings, err := task.MappingSet()
	if err != nil {
		return nil, fmt.Errorf("task %d has invalid mappings: %w", task.ID, err)
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = config.AppConfig.Runner.Concurrency
	}
	pager, err := database.NewRecordPager(opts.Collection, config.AppConfig.Runner.PageSize)
	if err != nil {
		return nil, fmt.Errorf("opening record pager for %q: %w", opts.Collection, err)
	}

	logger.Info("Runner: starting batch for task %d over collection %q (%d records, concurrency %d)",
		task.ID, opts.Collection, pager.TotalCount(), concurrency)

	startTime := time.Now()
	var total, succeeded, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for pager.HasMore() {
		if gctx.Err() != nil {
			break
		}
		if opts.MaxRecords > 0 && total >= int64(opts.MaxRecords) {
			logger.Info("Runner: max-records cap (%d) reached for task %d", opts.MaxRecords, task.ID)
			break
		}
		record, index, err := pager.Next()
		if err != nil {
			// Wait for in-flight work before reporting the pager failure.
			if werr := g.Wait(); werr != nil {
				logger.Error("Runner: worker error while draining after pager failure: %v", werr)
			}
			return nil, fmt.Errorf("reading record %d of %q: %w", total, opts.Collection, err)
		}
		if record == nil {
			break
		}
		total++

		g.Go(func() error {
			result := rn.executeRecord(gctx, task, tmpl, mappings, record, index)
			if result.Success {
				atomic.AddInt64(&succeeded, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
			if err := rn.sink(result); err != nil {
				return fmt.Errorf("storing result for record %d: %w", index, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &models.RunSummary{
		TaskID:     task.ID,
		Total:      int(total),
		Succeeded:  int(atomic.LoadInt64(&succeeded)),
		Failed:     int(atomic.LoadInt64(&failed)),
		DurationMs: time.Since(startTime).Milliseconds(),
	}
	logger.Info("Runner: task %d finished: %d total, %d succeeded, %d failed in %dms",
		task.ID, summary.Total, summary.Succeeded, summary.Failed, summary.DurationMs)
	return summary, nil
}

// executeRecord resolves the template against one record and executes it. A
// resolution failure becomes a failed result row.
func (rn *Runner) executeRecord(ctx context.Context, task *models.RequestTask, tmpl *models.RequestTemplate, mappings models.MappingSet, record models.Record, index int64) *models.ExecutionResult {
	taskID := sql.NullInt64{Int64: task.ID, Valid: true}
	recordIndex := sql.NullInt64{Int64: index, Valid: true}

	resolved, err := resolver.Resolve(tmpl, mappings, record)
	if err != nil {
		logger.Warn("Runner: record %d of task %d failed to resolve: %v", index, task.ID, err)
		return &models.ExecutionResult{
			TaskID:        taskID,
			RecordIndex:   recordIndex,
			Timestamp:     time.Now(),
			RequestMethod: tmpl.NormalizedMethod(),
			RequestURL:    tmpl.URL,
			Success:       false,
			ErrorMessage:  models.NullString("resolution failed: " + err.Error()),
			LogSource:     models.SourceRunner,
		}
	}
	return rn.executor.Execute(ctx, taskID, recordIndex, resolved, models.SourceRunner)
}

// ExecuteSingle resolves and executes a task once, optionally against an
// inline record, and stores the result.
func (rn *Runner) ExecuteSingle(ctx context.Context, task *models.RequestTask, record models.Record) (*models.ExecutionResult, error) {
	tmpl, err := task.Template()
	if err != nil {
		return nil, fmt.Errorf("task %d has an invalid template: %w", task.ID, err)
	}
	mappings, err := task.MappingSet()
	if err != nil {
		return nil, fmt.Errorf("task %d has invalid mappings: %w", task.ID, err)
	}

	resolved, err := resolver.Resolve(tmpl, mappings, record)
	if err != nil {
		return nil, err
	}

	result := rn.executor.Execute(ctx, sql.NullInt64{Int64: task.ID, Valid: true}, sql.NullInt64{}, resolved, models.SourceSingle)
	if err := rn.sink(result); err != nil {
		logger.Error("Runner: failed to store single execution result for task %d: %v", task.ID, err)
	}
	return result, nil
}
