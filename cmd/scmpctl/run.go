package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/loader"
	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/secret"
	"github.com/evsecdev/orchestrator/internal/sequence"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

const defaultSSHConfigPath = "~/.ssh/config"

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "scmpctl <sequence-file>",
		Short: "Run a declarative executor sequence against an SSH host inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSequence(cmd, args[0], v)
		},
	}

	flags := cmd.Flags()
	flags.StringP("hosts", "H", "all", "Comma-separated host URLs, or 'all', or 'localhost'")
	flags.StringP("config", "c", "config.yaml", "Path to the config declaration")
	flags.StringP("tags", "t", "", "Comma-separated run-filter tags")
	flags.StringP("skip-tags", "s", "", "Comma-separated skip-filter tags")
	flags.StringArrayP("extra-vars", "e", nil, "KEY=VALUE token, repeatable")
	flags.CountP("verbose", "v", "Increase verbosity (repeatable, 0-3)")
	flags.BoolP("linux-pass", "p", false, "Prompt once for the sudo password")
	flags.Int("max-concurrency", 10, "Maximum hosts run in parallel per executor")
	flags.Bool("disable-sudo", false, "Disable sudo prefixing for all commands")
	flags.Bool("stream-stdout", false, "Stream remote command stdout as it runs")

	v.BindPFlags(flags)

	return cmd
}

func runSequence(cmd *cobra.Command, sequenceFile string, v *viper.Viper) error {
	logger := telemetry.New(os.Stdout, telemetry.Verbosity(v.GetInt("verbose")))
	metrics := telemetry.NewMetrics(nil)

	inventory, err := loader.LoadGeneralConfig(v.GetString("config"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	inventory, err = loader.EnrichFromSSHConfig(inventory, expandHome(defaultSSHConfigPath))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	selected, err := selectHosts(inventory, v.GetString("hosts"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	extraVars, err := parseExtraVars(v.GetStringArray("extra-vars"))
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	linuxPassword := ""
	if v.GetBool("linux-pass") {
		linuxPassword, err = secret.PromptPassword("Sudo password: ")
		if err != nil {
			return fmt.Errorf("failed to read sudo password: %w", err)
		}
	}

	opts := config.RunOptions{
		Tags:           splitCSV(v.GetString("tags")),
		SkipTags:       splitCSV(v.GetString("skip-tags")),
		ExtraVars:      extraVars,
		LinuxPassword:  linuxPassword,
		DisableSudo:    v.GetBool("disable-sudo"),
		MaxConcurrency: v.GetInt("max-concurrency"),
		Verbosity:      telemetry.Verbosity(v.GetInt("verbose")),
		StreamStdout:   v.GetBool("stream-stdout"),
	}

	cfg, err := config.New(selected, opts, logger, metrics)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	for k, val := range extraVars {
		cfg.Registry.SetExtraVar(k, val)
	}

	seq, err := loader.LoadSequence(sequenceFile, inventory)
	if err != nil {
		return fmt.Errorf("sequence error: %w", err)
	}
	if len(seq.Hosts) == 0 {
		seq.Hosts = selected
	}

	rows, err := sequence.Run(context.Background(), seq, cfg)
	if err != nil {
		return err
	}

	logger.Progressf(telemetry.VerbosityStandard, "Completed %d result row(s) across %d host(s)\n", len(rows), len(seq.Hosts))

	summary, err := metrics.ReportJSON()
	if err == nil {
		logger.Progressf(telemetry.VerbosityProgress, "%s\n", summary)
	}

	return nil
}

func selectHosts(inventory []model.Host, spec string) ([]model.Host, error) {
	if spec == "all" || spec == "" {
		return inventory, nil
	}
	if spec == "localhost" || spec == "127.0.0.1" {
		return []model.Host{model.NewLocalhost()}, nil
	}

	wanted := make(map[string]struct{})
	for _, u := range splitCSV(spec) {
		wanted[u] = struct{}{}
	}

	byURL := make(map[string]model.Host, len(inventory))
	for _, h := range inventory {
		byURL[h.URL] = h
	}

	selected := make([]model.Host, 0, len(wanted))
	for u := range wanted {
		h, ok := byURL[u]
		if !ok {
			return nil, fmt.Errorf("unknown host %s", u)
		}
		selected = append(selected, h)
	}
	return selected, nil
}

func parseExtraVars(tokens []string) (map[string]string, error) {
	vars := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed extra-vars token %q, expected KEY=VALUE", tok)
		}
		vars[key] = value
	}
	return vars, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}
