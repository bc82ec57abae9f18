// Package fetch provides the artifact pull-back executor: download a file
// from a target host via SCP and register its contents for a later
// executor or template to consume, without ever shelling out to cat/base64.
//
// Grounded on SCPDownload, generalized from "pull one deploy artifact back
// for inspection" into an ordinary executor step any sequence can use.
package fetch

import (
	"context"
	"fmt"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/model"
)

// Options configures an artifact pull-back executor.
type Options struct {
	Name       string
	Tags       []string
	Hosts      []model.Host
	Remote     string // remote file path to download
	Register   string // registry key the downloaded bytes are stored under, required
	OutputFlag bool
}

type fetchExecutor struct {
	opts Options
}

// New returns an executor.Executor that downloads opts.Remote from each
// target host and registers the result, since nothing downstream can use
// fetched content that was never registered.
func New(opts Options) (executor.Executor, error) {
	if opts.Register == "" {
		return nil, fmt.Errorf("fetch executor %s: register is required", opts.Name)
	}
	return &fetchExecutor{opts: opts}, nil
}

func (f *fetchExecutor) Name() string               { return f.opts.Name }
func (f *fetchExecutor) ExecutorTags() []string      { return f.opts.Tags }
func (f *fetchExecutor) ExecutorHosts() []model.Host { return f.opts.Hosts }

func (f *fetchExecutor) Run(ctx context.Context, cfg *config.Config, host model.Host) model.Result {
	if ok, reason := executor.TagGate(f.opts.Tags, cfg.Options); !ok {
		return f.register(cfg, host, model.Skipping(reason))
	}
	if ok, reason := executor.HostGate(host, cfg.Hosts, f.opts.Hosts); !ok {
		return f.register(cfg, host, model.Skipping(reason))
	}

	session, err := cfg.SessionFor(ctx, host)
	if err != nil {
		return f.register(cfg, host, model.Fail(f.opts.Remote, nil, fmt.Sprintf("failed to open session: %v", err)))
	}

	content, err := session.Download(ctx, f.opts.Remote)
	if err != nil {
		return f.register(cfg, host, model.Fail(f.opts.Remote, nil, err.Error()))
	}

	if cfg.Metrics != nil {
		cfg.Metrics.AddBytes(len(content))
	}

	return f.register(cfg, host, model.Result{
		Status:     model.SUCCESS,
		Stdin:      f.opts.Remote,
		Stdout:     []string{string(content)},
		OutputFlag: f.opts.OutputFlag,
	})
}

func (f *fetchExecutor) register(cfg *config.Config, host model.Host, result model.Result) model.Result {
	result.Host = host.Repr()
	result.Executor = f.opts.Name
	cfg.Registry.Set(host.Repr(), f.opts.Register, result)
	return result
}
