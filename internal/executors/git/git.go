// Package git provides a small MultiExecutor built from plain command
// children - not a general git utility executor (that family is out of
// scope), just a representative composite demonstrating short-circuit on
// the first failing child and CHANGED/SUCCESS reduction over the rest.
package git

import (
	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/executors/command"
	"github.com/evsecdev/orchestrator/internal/model"
)

// Options configures a clone-or-update composite: check whether the
// repository exists, clone it if not, otherwise pull.
type Options struct {
	Name  string
	Tags  []string
	Hosts []model.Host
	Repo  string
	Dest  string
}

// New builds the two-step composite: list the remote repo's refs, then
// clone if the destination is missing or pull if it already exists. A
// FAIL from the first child stops the second from running on that host.
func New(opts Options) *executor.MultiExecutor {
	base := command.Options{Tags: opts.Tags, Hosts: opts.Hosts}

	checkRemote := base
	checkRemote.Name = opts.Name + ":check-remote"
	checkRemote.Command = "git ls-remote " + opts.Repo

	cloneOrPull := base
	cloneOrPull.Name = opts.Name + ":clone-or-pull"
	cloneOrPull.Command = "test -d " + opts.Dest + "/.git && " +
		"git -C " + opts.Dest + " pull || git clone " + opts.Repo + " " + opts.Dest

	return &executor.MultiExecutor{
		NameField: opts.Name,
		Tags:      opts.Tags,
		Hosts:     opts.Hosts,
		Children: []*executor.SingleExecutor{
			command.New(checkRemote),
			command.New(cloneOrPull),
		},
		SummaryMsg: "repository synced",
	}
}
