// Package template provides the file-templating executor: render a local
// template against the run's config/host/registry context, then ship it
// with printf '<escaped>' | [sudo] tee <dest>.
package template

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/registry"
)

// Options configures a template executor.
type Options struct {
	Name       string
	Tags       []string
	Hosts      []model.Host
	Source     string // template body, text/template syntax
	Dest       string // remote destination path
	Sudo       bool
	Register   string
	OutputFlag bool
	ExtraVars  map[string]interface{}
}

// renderContext is exposed to the template body: .Host, .Registry,
// .Executor, and whatever extra vars the caller supplied.
type renderContext struct {
	Host     model.Host
	Registry *registry.Registry
	Executor string
	Vars     map[string]interface{}
}

// Registered looks up a prior executor's registered result for a host, so a
// template can branch on an earlier step's outcome (e.g. skip a block if a
// preceding build executor registered a FAIL). text/template pipelines can't
// consume Registry.Get's (Result, bool) directly, so this collapses the
// miss case to a zero-value Result instead.
func (rc renderContext) Registered(hostRepr, name string) model.Result {
	res, _ := rc.Registry.Get(hostRepr, name)
	return res
}

// templateExecutor renders its source fresh against each target host's
// context at Run time, since the rendered text and the final tee command
// depend on registry state that isn't known until the sequence reaches
// this executor - unlike command.New's static command string.
type templateExecutor struct {
	opts Options
	tmpl *template.Template
}

// New parses opts.Source once and returns an executor.Executor that
// renders it fresh against each target host's context at Run time.
func New(opts Options) (executor.Executor, error) {
	tmpl, err := template.New(opts.Name).Parse(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", opts.Name, err)
	}
	return &templateExecutor{opts: opts, tmpl: tmpl}, nil
}

func (t *templateExecutor) Name() string               { return t.opts.Name }
func (t *templateExecutor) ExecutorTags() []string      { return t.opts.Tags }
func (t *templateExecutor) ExecutorHosts() []model.Host { return t.opts.Hosts }

// scpThreshold is the rendered-content size past which Run ships the
// payload via SCP (Session.Upload) instead of printf | tee over the exec
// channel - large payloads pushed through the exec path risk overrunning
// shell argument/pty buffer limits.
const scpThreshold = 32 * 1024

// Run renders the template against host's context. Small payloads delegate
// the rest of the protocol (gating, sudo handshake, classification,
// registry write) to a freshly built SingleExecutor wrapping a tee command;
// payloads at or above scpThreshold bypass the shell entirely and go out
// over SCP, still honoring the same tag/host gate and registry contract.
func (t *templateExecutor) Run(ctx context.Context, cfg *config.Config, host model.Host) model.Result {
	if ok, reason := executor.TagGate(t.opts.Tags, cfg.Options); !ok {
		return t.registerResult(cfg, host, model.Skipping(reason))
	}
	if ok, reason := executor.HostGate(host, cfg.Hosts, t.opts.Hosts); !ok {
		return t.registerResult(cfg, host, model.Skipping(reason))
	}

	rendered, err := t.render(cfg, host)
	if err != nil {
		message := fmt.Sprintf("template render error: %s", strings.ReplaceAll(err.Error(), "\n", " "))
		return t.registerResult(cfg, host, model.Fail("", nil, message))
	}

	if len(rendered) < scpThreshold {
		single := t.toSingleExecutor(rendered)
		if cfg.Options.DisableSudo {
			single.Sudo = false
			single.Command = BuildTeeCommand(rendered, t.opts.Dest, false)
		}
		return single.Run(ctx, cfg, host)
	}
	return t.runViaSCP(ctx, cfg, host, rendered)
}

func (t *templateExecutor) toSingleExecutor(rendered string) *executor.SingleExecutor {
	return &executor.SingleExecutor{
		NameField:  t.opts.Name,
		Tags:       t.opts.Tags,
		Hosts:      t.opts.Hosts,
		Sudo:       t.opts.Sudo,
		SudoInline: true,
		Register:   t.opts.Register,
		OutputFlag: t.opts.OutputFlag,
		Command:    BuildTeeCommand(rendered, t.opts.Dest, t.opts.Sudo),
	}
}

// runViaSCP ships a large rendered payload directly, recording the transfer
// in the run's byte-transferred metric.
func (t *templateExecutor) runViaSCP(ctx context.Context, cfg *config.Config, host model.Host, rendered string) model.Result {
	session, err := cfg.SessionFor(ctx, host)
	if err != nil {
		return t.registerResult(cfg, host, model.Fail("", nil, fmt.Sprintf("failed to open session: %v", err)))
	}

	if err := session.Upload(ctx, []byte(rendered), t.opts.Dest); err != nil {
		return t.registerResult(cfg, host, model.Fail("", nil, err.Error()))
	}

	if cfg.Metrics != nil {
		cfg.Metrics.AddBytes(len(rendered))
	}

	return t.registerResult(cfg, host, model.Result{
		Status:     model.CHANGED,
		Message:    fmt.Sprintf("uploaded %d bytes to %s via scp", len(rendered), t.opts.Dest),
		OutputFlag: t.opts.OutputFlag,
	})
}

func (t *templateExecutor) registerResult(cfg *config.Config, host model.Host, result model.Result) model.Result {
	result.Host = host.Repr()
	result.Executor = t.opts.Name
	if t.opts.Register != "" {
		cfg.Registry.Set(host.Repr(), t.opts.Register, result)
	}
	return result
}

func (t *templateExecutor) render(cfg *config.Config, host model.Host) (string, error) {
	var buf bytes.Buffer
	rc := renderContext{Host: host, Registry: cfg.Registry, Executor: t.opts.Name, Vars: t.opts.ExtraVars}
	if err := t.tmpl.Execute(&buf, rc); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// BuildTeeCommand constructs printf '<escaped>' | [sudo] tee <dest>,
// preserving embedded newlines as literal \n and escaping single quotes so
// the rendered content survives the single-quoted shell argument.
func BuildTeeCommand(content, dest string, sudo bool) string {
	escaped := strings.ReplaceAll(content, "'", `'"'"'`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)

	teePrefix := "tee"
	if sudo {
		teePrefix = "sudo tee"
	}
	return fmt.Sprintf("printf '%s' | %s %s", escaped, teePrefix, dest)
}
