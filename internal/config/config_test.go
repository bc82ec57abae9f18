package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

func TestNewRejectsDuplicateHostURL(t *testing.T) {
	hosts := []model.Host{{URL: "db1.example.com"}, {URL: "db1.example.com", Name: "alias"}}
	_, err := New(hosts, RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.Error(t, err)
}

func TestNewDefaultsMaxConcurrency(t *testing.T) {
	cfg, err := New(nil, RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Options.MaxConcurrency)
}

func TestNewPreservesExplicitMaxConcurrency(t *testing.T) {
	cfg, err := New(nil, RunOptions{MaxConcurrency: 3}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Options.MaxConcurrency)
}

func TestSessionForRejectsUnknownProxy(t *testing.T) {
	host := model.Host{URL: "db1.example.com", Proxy: "bastion.example.com"}
	cfg, err := New([]model.Host{host}, RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	defer cfg.Pool.CloseAll()

	_, err = cfg.SessionFor(context.Background(), host)
	require.Error(t, err)
}

func TestSessionForLocalhostBypassesNetwork(t *testing.T) {
	host := model.NewLocalhost()
	cfg, err := New([]model.Host{host}, RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	defer cfg.Pool.CloseAll()

	session, err := cfg.SessionFor(context.Background(), host)
	require.NoError(t, err)
	require.NotNil(t, session)
}
