package executor

import (
	"context"
	"errors"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/model"
)

// MultiExecutor composes several SingleExecutors behind one Executor
// interface: children run in sequence against the same host, short-
// circuiting on the first FAIL, otherwise reducing to CHANGED if any
// child changed state or SUCCESS if none did.
//
// Grounded on the sequential multi-step error handling pattern used
// throughout ssh_deploy.go (each remote step bails on the first error
// rather than attempting the rest), generalized from one hardcoded
// deployment pipeline into an arbitrary list of child executors.
type MultiExecutor struct {
	NameField    string
	Tags         []string
	Hosts        []model.Host
	Children     []*SingleExecutor
	SummaryMsg   string
}

func (m *MultiExecutor) Name() string               { return m.NameField }
func (m *MultiExecutor) ExecutorTags() []string      { return m.Tags }
func (m *MultiExecutor) ExecutorHosts() []model.Host { return m.Hosts }

// Run applies the composite's own tag/host gate once, then runs each child
// in order against host, stopping at the first FAIL.
func (m *MultiExecutor) Run(ctx context.Context, cfg *config.Config, host model.Host) model.Result {
	if ok, reason := TagGate(m.Tags, cfg.Options); !ok {
		return finalize(model.Skipping(reason), host, m.NameField)
	}
	if ok, reason := HostGate(host, cfg.Hosts, m.Hosts); !ok {
		return finalize(model.Skipping(reason), host, m.NameField)
	}

	results := make([]model.Result, 0, len(m.Children))
	for _, child := range m.Children {
		result, err := child.RunOrPanic(ctx, cfg, host)
		results = append(results, result)

		var failed *SingleExecutorFailedError
		if errors.As(err, &failed) {
			return finalize(failed.Result, host, m.NameField)
		}
	}

	return finalize(reduceResults(results, m.SummaryMsg), host, m.NameField)
}

// reduceResults collapses a composite's child results into one: CHANGED if
// any child changed state, SUCCESS otherwise. FAIL never reaches here - a
// failing child short-circuits Run before this point.
func reduceResults(results []model.Result, summary string) model.Result {
	status := model.SUCCESS
	for _, r := range results {
		if r.Status == model.CHANGED {
			status = model.CHANGED
			break
		}
	}
	return model.Result{Status: status, Message: summary}
}
