// Package config assembles one run's settings: the host inventory, the
// pooled session layer, the result registry, and the gating/runtime
// options an executor sequence reads from on every invocation.
//
// Grounded on main.go's global Config/EndpointInfo pair, split into an
// immutable RunOptions plus a Config that owns the long-lived Pool and
// Registry for the duration of one sequence run.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/evsecdev/orchestrator/internal/model"
	"github.com/evsecdev/orchestrator/internal/registry"
	"github.com/evsecdev/orchestrator/internal/sshsession"
	"github.com/evsecdev/orchestrator/internal/telemetry"
)

// RunOptions holds the CLI-level knobs that apply uniformly across a
// sequence, mirroring main.go's flat config.options.* fields.
type RunOptions struct {
	Tags             []string
	SkipTags         []string
	ExtraVars        map[string]string
	LinuxPassword    string
	DisableSudo      bool
	MaxConcurrency   int
	Verbosity        telemetry.Verbosity
	StreamStdout     bool
}

// Config is the fully assembled run context threaded into every executor's
// Run call.
type Config struct {
	Options  RunOptions
	Hosts    []model.Host
	Pool     *sshsession.Pool
	Registry *registry.Registry
	Logger   *telemetry.Logger
	Metrics  *telemetry.Metrics
}

// New builds a Config from a host inventory and options, wiring up a fresh
// Pool/Registry/Logger/Metrics for the run. Duplicate host URLs are
// rejected - two inventory entries addressing the same endpoint would
// silently collide in both the Pool and the Registry.
func New(hosts []model.Host, opts RunOptions, logger *telemetry.Logger, metrics *telemetry.Metrics) (*Config, error) {
	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if _, dup := seen[h.Key()]; dup {
			return nil, fmt.Errorf("duplicate host URL in inventory: %s", h.Key())
		}
		seen[h.Key()] = struct{}{}
	}

	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 10
	}

	return &Config{
		Options:  opts,
		Hosts:    hosts,
		Pool:     sshsession.NewPool(),
		Registry: registry.New(),
		Logger:   logger,
		Metrics:  metrics,
	}, nil
}

// HostByKey looks up a configured host by its URL, used to resolve a
// Host.Proxy reference to the proxy's own connection settings.
func (c *Config) HostByKey(key string) (model.Host, bool) {
	for _, h := range c.Hosts {
		if h.Key() == key {
			return h, true
		}
	}
	return model.Host{}, false
}

// SessionFor opens (or reuses) the pooled session for host, resolving its
// proxy chain first if one is configured.
func (c *Config) SessionFor(ctx context.Context, host model.Host) (*sshsession.Session, error) {
	hc := sshsession.HostConfig{
		URL:          host.URL,
		User:         host.SSHUser,
		Password:     host.SSHPassword,
		IdentityFile: host.SSHIdentityFile,
		IsLocalhost:  model.IsLocalhost(host),
	}
	if host.ConnectTimeoutSec > 0 {
		hc.ConnectTimeout = time.Duration(host.ConnectTimeoutSec) * time.Second
	}

	var proxyHC *sshsession.HostConfig
	if host.Proxy != "" {
		proxyHost, ok := c.HostByKey(host.Proxy)
		if !ok {
			return nil, fmt.Errorf("host %s references unknown proxy %s", host.Repr(), host.Proxy)
		}
		p := sshsession.HostConfig{
			URL:          proxyHost.URL,
			User:         proxyHost.SSHUser,
			Password:     proxyHost.SSHPassword,
			IdentityFile: proxyHost.SSHIdentityFile,
		}
		proxyHC = &p
	}

	return c.Pool.Open(ctx, hc, proxyHC)
}
