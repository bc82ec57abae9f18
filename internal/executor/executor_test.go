package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

func newTestConfig(t *testing.T) (*config.Config, model.Host) {
	t.Helper()
	host := model.NewLocalhost()
	cfg, err := config.New([]model.Host{host}, config.RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	return cfg, host
}

func TestSingleExecutorSuccess(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	ex := &SingleExecutor{NameField: "echo", Command: "echo hello"}
	result := ex.Run(context.Background(), cfg, host)

	require.Equal(t, model.SUCCESS, result.Status)
	require.Equal(t, host.Repr(), result.Host)
	require.Equal(t, "echo", result.Executor)
}

func TestSingleExecutorFailClassification(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	ex := &SingleExecutor{NameField: "bad-cmd", Command: "ls /no/such/directory-xyz"}
	result := ex.Run(context.Background(), cfg, host)

	require.Equal(t, model.FAIL, result.Status)
}

func TestSingleExecutorSkippedByTags(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()
	cfg.Options.Tags = []string{"deploy"}

	ex := &SingleExecutor{NameField: "build", Tags: []string{"build"}, Command: "echo hello"}
	result := ex.Run(context.Background(), cfg, host)

	require.Equal(t, model.SKIPPING, result.Status)
}

func TestSingleExecutorRegistersEvenWhenSkipped(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()
	cfg.Options.Tags = []string{"deploy"}

	ex := &SingleExecutor{NameField: "build", Tags: []string{"build"}, Command: "echo hello", Register: "build_result"}
	ex.Run(context.Background(), cfg, host)

	got, ok := cfg.Registry.Get(host.Repr(), "build_result")
	require.True(t, ok)
	require.Equal(t, model.SKIPPING, got.Status)
}

func TestSingleExecutorRunOrPanicReturnsErrorOnFail(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	ex := &SingleExecutor{NameField: "bad-cmd", Command: "ls /no/such/directory-xyz"}
	result, err := ex.RunOrPanic(context.Background(), cfg, host)

	require.Error(t, err)
	var failed *SingleExecutorFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, model.FAIL, result.Status)
}

func TestAssembleCommandEnvAndChdir(t *testing.T) {
	ex := &SingleExecutor{
		Command:  "make build",
		Env:      map[string]string{"CGO_ENABLED": "0", "GOOS": "linux"},
		EnvOrder: []string{"GOOS", "CGO_ENABLED"},
		Chdir:    "/srv/app",
	}
	require.Equal(t, `cd /srv/app && GOOS="linux" CGO_ENABLED="0" make build`, ex.assembleCommand())
}

func TestAssembleCommandSudoPrefix(t *testing.T) {
	ex := &SingleExecutor{
		Command: "whoami",
		Sudo:    true,
	}
	require.Equal(t, "sudo whoami", ex.assembleCommand())
}

func TestAssembleCommandEnvPrecedesSudo(t *testing.T) {
	ex := &SingleExecutor{
		Command:  "make build",
		Env:      map[string]string{"GOOS": "linux"},
		EnvOrder: []string{"GOOS"},
		Sudo:     true,
	}
	require.Equal(t, `GOOS="linux" sudo make build`, ex.assembleCommand())
}
