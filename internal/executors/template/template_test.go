package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

func TestBuildTeeCommandEscapesSingleQuotesAndNewlines(t *testing.T) {
	content := "line one\nit's line two"
	got := BuildTeeCommand(content, "/etc/app.conf", false)
	require.Equal(t, `printf 'line one\nit'"'"'s line two' | tee /etc/app.conf`, got)
}

func TestBuildTeeCommandSudoPrefix(t *testing.T) {
	got := BuildTeeCommand("hello", "/etc/app.conf", true)
	require.Equal(t, `printf 'hello' | sudo tee /etc/app.conf`, got)
}

func TestToSingleExecutorDoesNotDoubleSudo(t *testing.T) {
	te := &templateExecutor{opts: Options{Name: "sudo-write", Dest: "/etc/app.conf", Sudo: true}}
	ex := te.toSingleExecutor("hello")
	require.True(t, ex.SudoInline)
	require.Equal(t, `printf 'hello' | sudo tee /etc/app.conf`, ex.Command)
}

func newTestConfig(t *testing.T) (*config.Config, model.Host) {
	t.Helper()
	host := model.NewLocalhost()
	cfg, err := config.New([]model.Host{host}, config.RunOptions{}, nil, telemetry.NewMetrics(nil))
	require.NoError(t, err)
	return cfg, host
}

func TestTemplateRendersHostAndVars(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	dest := t.TempDir() + "/rendered.conf"
	ex, err := New(Options{
		Name:      "render-conf",
		Source:    "host={{.Host.Repr}} env={{.Vars.env}}",
		Dest:      dest,
		ExtraVars: map[string]interface{}{"env": "prod"},
		Register:  "rendered",
	})
	require.NoError(t, err)

	result := ex.Run(context.Background(), cfg, host)
	require.Equal(t, model.SUCCESS, result.Status)

	got, ok := cfg.Registry.Get(host.Repr(), "rendered")
	require.True(t, ok)
	require.Equal(t, model.SUCCESS, got.Status)
}

func TestTemplateRenderErrorProducesFail(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	ex, err := New(Options{Name: "broken", Source: "{{.NoSuchField}}", Dest: "/tmp/out", Register: "rendered"})
	require.NoError(t, err)

	result := ex.Run(context.Background(), cfg, host)
	require.Equal(t, model.FAIL, result.Status)

	got, ok := cfg.Registry.Get(host.Repr(), "rendered")
	require.True(t, ok)
	require.Equal(t, model.FAIL, got.Status)
}

func TestTemplateLargePayloadGoesViaSCP(t *testing.T) {
	cfg, host := newTestConfig(t)
	defer cfg.Pool.CloseAll()

	dest := t.TempDir() + "/large.bin"
	big := make([]byte, scpThreshold+1)
	for i := range big {
		big[i] = 'x'
	}

	ex, err := New(Options{Name: "ship-large", Source: string(big), Dest: dest})
	require.NoError(t, err)

	result := ex.Run(context.Background(), cfg, host)
	require.Equal(t, model.CHANGED, result.Status)
	require.Greater(t, cfg.Metrics.Report().BytesSent, scpThreshold)
}
