package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/sshsession"
)

// Executor is the contract the sequence engine drives: tag/host gating,
// one command per invocation, registry-aware. Implementations are
// immutable values - the target host is a Run parameter, never mutated
// state on the receiver, so one Executor value is safely shared across the
// concurrent per-host workers a sequence spawns for it.
type Executor interface {
	Name() string
	ExecutorTags() []string
	ExecutorHosts() []model.Host
	Run(ctx context.Context, cfg *config.Config, host model.Host) model.Result
}

// SingleExecutorFailedError wraps a FAIL result so MultiExecutor's
// short-circuit can recover the enclosed Result instead of a bare error.
type SingleExecutorFailedError struct {
	ExecutorName string
	Result       model.Result
}

func (e *SingleExecutorFailedError) Error() string {
	return fmt.Sprintf("%s: %s", e.ExecutorName, e.Result.Message)
}

// SingleExecutor is the base run protocol for one remote command: gate,
// assemble, exec, classify, register.
type SingleExecutor struct {
	NameField    string
	Tags         []string
	Hosts        []model.Host // empty means "any host in Config.Hosts"
	Command      string       // command() - the base command string
	Env          map[string]string
	EnvOrder     []string // insertion order for Env, since map iteration isn't stable
	Sudo         bool
	SudoInline   bool // Command already places its own sudo (e.g. mid-pipeline); skip the assembleCommand prefix, keep the handshake
	Chdir        string
	Register     string // registry key to write the result under, empty disables
	OutputFlag   bool
	Classify     ClassifyFunc
	Timeout      time.Duration // per-command override, 0 uses the session default
	Stream       bool          // stream this command's stdout live, independent of OutputFlag
}

func (e *SingleExecutor) Name() string               { return e.NameField }
func (e *SingleExecutor) ExecutorTags() []string      { return e.Tags }
func (e *SingleExecutor) ExecutorHosts() []model.Host { return e.Hosts }

// Run executes the full protocol: tag gate, host gate, command assembly,
// session exec, sudo handshake, classification, registry write.
func (e *SingleExecutor) Run(ctx context.Context, cfg *config.Config, host model.Host) model.Result {
	return e.run(ctx, cfg, host)
}

// RunOrPanic behaves like Run but, on a FAIL result, also returns a
// SingleExecutorFailedError wrapping that result, for MultiExecutor's
// short-circuit. It never panics.
func (e *SingleExecutor) RunOrPanic(ctx context.Context, cfg *config.Config, host model.Host) (model.Result, error) {
	result := e.run(ctx, cfg, host)
	if result.Status == model.FAIL {
		return result, &SingleExecutorFailedError{ExecutorName: e.NameField, Result: result}
	}
	return result, nil
}

func (e *SingleExecutor) run(ctx context.Context, cfg *config.Config, host model.Host) model.Result {
	if ok, reason := TagGate(e.Tags, cfg.Options); !ok {
		return e.finishAndRegister(cfg, host, model.Skipping(reason))
	}
	if ok, reason := HostGate(host, cfg.Hosts, e.Hosts); !ok {
		return e.finishAndRegister(cfg, host, model.Skipping(reason))
	}

	assembler := *e
	if cfg.Options.DisableSudo {
		assembler.Sudo = false
	}
	command := assembler.assembleCommand()

	session, err := cfg.SessionFor(ctx, host)
	if err != nil {
		result := model.Fail(command, nil, fmt.Sprintf("failed to open session: %v", err))
		return e.finishAndRegister(cfg, host, result)
	}

	execResult, err := session.Run(ctx, buildExecRequest(command, e.Sudo, e.Timeout, e.Stream, host, cfg.Options))
	if err != nil {
		message := err.Error()
		result := model.Fail(command, nil, message)
		return e.finishAndRegister(cfg, host, result)
	}

	outcome := Classify(execResult.Stdout, e.Classify)
	var result model.Result
	switch outcome {
	case OutcomeFail:
		result = model.Fail(command, execResult.Stdout, "remote command reported an error")
	case OutcomeChanged:
		result = model.Result{Status: model.CHANGED, Stdin: command, Stdout: execResult.Stdout, OutputFlag: e.OutputFlag}
	default:
		result = model.Result{Status: model.SUCCESS, Stdin: command, Stdout: execResult.Stdout, OutputFlag: e.OutputFlag}
	}

	return e.finishAndRegister(cfg, host, result)
}

// finishAndRegister stamps host/executor identity onto result and writes it
// to the registry if this executor declared a register key. SKIPPING and
// FAIL results are written too when register is set, so a downstream
// executor can branch on a prior failure.
func (e *SingleExecutor) finishAndRegister(cfg *config.Config, host model.Host, result model.Result) model.Result {
	result = finalize(result, host, e.NameField)
	if e.Register != "" {
		cfg.Registry.Set(host.Repr(), e.Register, result)
	}
	return result
}

func finalize(result model.Result, host model.Host, executorName string) model.Result {
	result.Host = host.Repr()
	result.Executor = executorName
	return result
}

// assembleCommand builds the stdin string in the deterministic order:
// env K/V pairs (insertion order), then sudo, then the base command, with
// chdir wrapping the already-built left-to-right string.
func (e *SingleExecutor) assembleCommand() string {
	command := e.Command
	if e.Sudo && !e.SudoInline {
		command = "sudo " + command
	}
	for i := len(e.EnvOrder) - 1; i >= 0; i-- {
		key := e.EnvOrder[i]
		value, ok := e.Env[key]
		if !ok {
			continue
		}
		command = fmt.Sprintf("%s=\"%s\" %s", key, value, command)
	}
	if e.Chdir != "" {
		command = fmt.Sprintf("cd %s && %s", e.Chdir, command)
	}
	return command
}

func buildExecRequest(command string, sudo bool, timeout time.Duration, stream bool, host model.Host, opts config.RunOptions) sshsession.ExecRequest {
	return sshsession.ExecRequest{
		Command:          command,
		SudoRequested:    sudo && !opts.DisableSudo,
		PasswordlessUser: host.PasswordlessUser,
		SudoPassword:     opts.LinuxPassword,
		Timeout:          timeout,
		StreamStdout:     stream || opts.StreamStdout,
	}
}
