package loader

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/executors/command"
	"github.com/evsecdev/orchestrator/internal/executors/fetch"
	"github.com/evsecdev/orchestrator/internal/executors/git"
	"github.com/evsecdev/orchestrator/internal/executors/template"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/sequence"
)

// StepDecl is one entry in a sequence declaration file. Type selects which
// concrete executor the loader builds; the other fields are interpreted
// according to Type.
type StepDecl struct {
	Type       string            `yaml:"type"`
	Name       string            `yaml:"name"`
	Tags       []string          `yaml:"tags,omitempty"`
	HostURLs   []string          `yaml:"hosts,omitempty"`
	Command    string            `yaml:"command,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	EnvOrder   []string          `yaml:"env_order,omitempty"`
	Sudo       bool              `yaml:"sudo,omitempty"`
	Chdir      string            `yaml:"chdir,omitempty"`
	Register   string            `yaml:"register,omitempty"`
	Output     bool              `yaml:"output,omitempty"`
	Source     string            `yaml:"source,omitempty"`
	Dest       string            `yaml:"dest,omitempty"`
	Repo       string            `yaml:"repo,omitempty"`
	Remote     string            `yaml:"remote,omitempty"`
	TimeoutSec int               `yaml:"timeout_sec,omitempty"`
	Stream     bool              `yaml:"stream,omitempty"`
}

// SequenceDecl is the top-level shape of a sequence declaration file.
type SequenceDecl struct {
	Hosts []string   `yaml:"hosts,omitempty"`
	Steps []StepDecl `yaml:"steps"`
}

// LoadSequence reads and parses the sequence declaration file at path,
// resolving each step's host URLs against the full inventory and building
// the corresponding executor.Executor value.
func LoadSequence(path string, inventory []model.Host) (sequence.Sequence, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sequence.Sequence{}, fmt.Errorf("failed to read sequence file %s: %w", path, err)
	}

	var decl SequenceDecl
	if err := yaml.Unmarshal(raw, &decl); err != nil {
		return sequence.Sequence{}, fmt.Errorf("failed to parse sequence file %s: %w", path, err)
	}

	byURL := make(map[string]model.Host, len(inventory))
	for _, h := range inventory {
		byURL[h.URL] = h
	}

	resolveHosts := func(urls []string) ([]model.Host, error) {
		resolved := make([]model.Host, 0, len(urls))
		for _, u := range urls {
			h, ok := byURL[u]
			if !ok {
				return nil, fmt.Errorf("sequence file %s: unknown host %s", path, u)
			}
			resolved = append(resolved, h)
		}
		return resolved, nil
	}

	seqHosts, err := resolveHosts(decl.Hosts)
	if err != nil {
		return sequence.Sequence{}, err
	}

	executors := make([]executor.Executor, 0, len(decl.Steps))
	for _, step := range decl.Steps {
		stepHosts, err := resolveHosts(step.HostURLs)
		if err != nil {
			return sequence.Sequence{}, err
		}

		ex, err := buildExecutor(step, stepHosts)
		if err != nil {
			return sequence.Sequence{}, fmt.Errorf("sequence file %s: step %q: %w", path, step.Name, err)
		}
		executors = append(executors, ex)
	}

	return sequence.Sequence{Executors: executors, Hosts: seqHosts}, nil
}

func buildExecutor(step StepDecl, hosts []model.Host) (executor.Executor, error) {
	switch step.Type {
	case "", "command":
		return command.New(command.Options{
			Name:       step.Name,
			Tags:       step.Tags,
			Hosts:      hosts,
			Command:    step.Command,
			Env:        step.Env,
			EnvOrder:   step.EnvOrder,
			Sudo:       step.Sudo,
			Chdir:      step.Chdir,
			Register:   step.Register,
			OutputFlag: step.Output,
			Timeout:    time.Duration(step.TimeoutSec) * time.Second,
			Stream:     step.Stream,
		}), nil
	case "template":
		return template.New(template.Options{
			Name:       step.Name,
			Tags:       step.Tags,
			Hosts:      hosts,
			Source:     step.Source,
			Dest:       step.Dest,
			Sudo:       step.Sudo,
			Register:   step.Register,
			OutputFlag: step.Output,
		})
	case "git":
		return git.New(git.Options{
			Name:  step.Name,
			Tags:  step.Tags,
			Hosts: hosts,
			Repo:  step.Repo,
			Dest:  step.Dest,
		}), nil
	case "fetch":
		return fetch.New(fetch.Options{
			Name:       step.Name,
			Tags:       step.Tags,
			Hosts:      hosts,
			Remote:     step.Remote,
			Register:   step.Register,
			OutputFlag: step.Output,
		})
	default:
		return nil, fmt.Errorf("unknown step type %q", step.Type)
	}
}
