// Package command provides the plain adhoc-command executor: a bare
// SingleExecutor with no classification overrides.
//
// Grounded on ssh_exec.go's runCmd/executeCommand: one user-supplied
// command string run against a set of hosts, optionally under sudo.
package command

import (
	"time"

	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/model"
)

// Options configures a command executor beyond the shared base attributes.
type Options struct {
	Name       string
	Tags       []string
	Hosts      []model.Host
	Command    string
	Env        map[string]string
	EnvOrder   []string
	Sudo       bool
	Chdir      string
	Register   string
	OutputFlag bool
	Timeout    time.Duration
	Stream     bool
}

// New builds a *executor.SingleExecutor running opts.Command verbatim,
// with the default error-in-text classification and no CHANGED detection
// (a bare command run has no idempotent notion of "changed").
func New(opts Options) *executor.SingleExecutor {
	return &executor.SingleExecutor{
		NameField:  opts.Name,
		Tags:       opts.Tags,
		Hosts:      opts.Hosts,
		Command:    opts.Command,
		Env:        opts.Env,
		EnvOrder:   opts.EnvOrder,
		Sudo:       opts.Sudo,
		Chdir:      opts.Chdir,
		Register:   opts.Register,
		OutputFlag: opts.OutputFlag,
		Timeout:    opts.Timeout,
		Stream:     opts.Stream,
	}
}
