package sequence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/executor"
	"github.com/evsecdev/orchestrator/internal/executors/command"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.New([]model.Host{model.NewLocalhost()}, config.RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	return cfg
}

func TestRunStampsRunIDIntoRegistry(t *testing.T) {
	cfg := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	rows, err := Run(context.Background(), Sequence{Hosts: cfg.Hosts}, cfg)
	require.NoError(t, err)
	require.Empty(t, rows)

	runID, ok := cfg.Registry.ExtraVar("run_id")
	require.True(t, ok)
	require.NotEmpty(t, runID)
}

func TestRunLaterExecutorSeesEarlierRegistration(t *testing.T) {
	cfg := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	step1 := command.New(command.Options{Name: "build", Command: "echo built", Register: "build_result"})
	step2 := command.New(command.Options{Name: "verify", Command: "echo verifying"})

	rows, err := Run(context.Background(), Sequence{Executors: []executor.Executor{step1, step2}}, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	got, ok := cfg.Registry.Get(cfg.Hosts[0].Repr(), "build_result")
	require.True(t, ok)
	require.Equal(t, model.SUCCESS, got.Status)
}

func TestRunSkipsExecutorFilteredByTags(t *testing.T) {
	cfg := newTestConfig(t)
	defer cfg.Pool.CloseAll()
	cfg.Options.Tags = []string{"deploy"}

	build := command.New(command.Options{Name: "build", Tags: []string{"build"}, Command: "echo built"})

	rows, err := Run(context.Background(), Sequence{Executors: []executor.Executor{build}}, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, model.SKIPPING, rows[0].Result.Status)
}

func TestRunFansOutAcrossAllTargetHosts(t *testing.T) {
	cfg := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	step := command.New(command.Options{Name: "ping", Command: "echo pong"})

	rows, err := Run(context.Background(), Sequence{Executors: []executor.Executor{step}}, cfg)
	require.NoError(t, err)
	require.Len(t, rows, len(cfg.Hosts))
	for _, row := range rows {
		require.Equal(t, model.SUCCESS, row.Result.Status)
	}
}
