// Package sequence implements the engine that drives an ordered list of
// executors: one worker per host runs in parallel within an executor, but
// executors themselves run one at a time so registry writes from executor
// k are visible to executor k+1.
//
// Grounded on runScript/runCmd's per-host goroutine-plus-semaphore fan-out
// (ssh_exec.go), generalized from "one deployment pass" into "an arbitrary
// ordered list of executors, each run to completion before the next".
package sequence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

// Sequence is the ordered executor list the engine runs, with an optional
// host override (defaults to cfg.Hosts when nil).
type Sequence struct {
	Executors []executor.Executor
	Hosts     []model.Host
}

// Row is one rendered result line, host plus outcome. Within one executor,
// rows follow the order of the target hosts, not the order workers
// finished, and are always fully collected before the engine advances to
// the next executor.
type Row struct {
	Executor string
	Result   model.Result
}

// Run drives the full sequence: sequence-level tag gate for a cheap
// SKIPPING row, then per-executor per-host fan-out with a barrier between
// executors, then a single teardown of every pooled session.
func Run(ctx context.Context, seq Sequence, cfg *config.Config) ([]Row, error) {
	runID := uuid.New().String()
	cfg.Registry.SetExtraVar("run_id", runID)

	if cfg.Metrics != nil {
		cfg.Metrics.Start()
		defer cfg.Metrics.End()
	}
	defer cfg.Pool.CloseAll()

	if cfg.Logger != nil {
		cfg.Logger.Progressf(telemetry.VerbosityProgress, "Starting sequence run %s\n", runID)
	}

	hosts := seq.Hosts
	if len(hosts) == 0 {
		hosts = cfg.Hosts
	}

	var rows []Row
	for _, ex := range seq.Executors {
		if ok, reason := executor.TagGate(ex.ExecutorTags(), cfg.Options); !ok {
			if cfg.Logger != nil {
				cfg.Logger.Progressf(telemetry.VerbosityStandard, "%s: %s\n", ex.Name(), reason)
			}
			rows = append(rows, Row{Executor: ex.Name(), Result: model.Skipping(reason)})
			continue
		}

		if cfg.Logger != nil {
			cfg.Logger.Progressf(telemetry.VerbosityStandard, "==== %s ====\n", ex.Name())
		}

		targets := ex.ExecutorHosts()
		if len(targets) == 0 {
			targets = hosts
		}

		results, err := runExecutorAcrossHosts(ctx, ex, cfg, targets)
		if err != nil {
			return rows, fmt.Errorf("sequence aborted running %s: %w", ex.Name(), err)
		}

		for _, result := range results {
			if cfg.Metrics != nil {
				cfg.Metrics.Record(result.Host, result)
			}
			if result.Status == model.FAIL && cfg.Logger != nil {
				cfg.Logger.RecordHostFailure(result.Host, ex.Name(), result.Message)
			}
			if cfg.Logger != nil {
				cfg.Logger.Progressf(telemetry.VerbosityStandard, "  Host '%s': %s\n", result.Host, result.Status)
			}
			rows = append(rows, Row{Executor: ex.Name(), Result: result})
		}
	}

	return rows, nil
}

// runExecutorAcrossHosts spawns one worker per host, bounded by
// cfg.Options.MaxConcurrency, and waits for all of them before returning -
// the barrier the sequence engine requires between executors.
func runExecutorAcrossHosts(ctx context.Context, ex executor.Executor, cfg *config.Config, targets []model.Host) ([]model.Result, error) {
	results := make([]model.Result, len(targets))

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.Options.MaxConcurrency > 0 {
		group.SetLimit(cfg.Options.MaxConcurrency)
	}

	for i, host := range targets {
		i, host := i, host
		group.Go(func() error {
			results[i] = ex.Run(groupCtx, cfg, host)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
