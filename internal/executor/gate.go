// Package executor implements the run contract every command invocation
// follows: tag gating, host gating, command assembly, the sudo password
// handshake, output classification, and the registry write.
//
// Grounded on ssh_exec.go's runCmd/executeCommand pair and main.go's
// checkForOverride-style gating, generalized from "CLI host override
// string" into the tag/host truth table a declarative executor needs.
package executor

import (
	"github.com/evsecdev/orchestrator/internal/config"
	"github.com/evsecdev/orchestrator/internal/model"
)

// TagGate evaluates whether an executor's tags permit it to run given the
// run's configured tags/skip-tags filters.
//
//   - Config.Tags nonempty: the executor runs iff it shares at least one
//     tag with Config.Tags; an untagged executor is skipped.
//   - Else Config.SkipTags nonempty: the executor runs iff none of its
//     tags appear in Config.SkipTags.
//   - Else: runs unconditionally.
func TagGate(executorTags []string, cfg config.RunOptions) (bool, string) {
	if len(cfg.Tags) > 0 {
		if len(executorTags) == 0 {
			return false, "Skipping based on tags"
		}
		if !hasIntersection(executorTags, cfg.Tags) {
			return false, "Skipping based on tags"
		}
		return true, ""
	}

	if len(cfg.SkipTags) > 0 {
		if hasIntersection(executorTags, cfg.SkipTags) {
			return false, "Skipping based on tags"
		}
		return true, ""
	}

	return true, ""
}

// HostGate evaluates whether host is a valid target: it must be present in
// the global inventory (or be the Localhost preset), and - if the executor
// declares its own host list - must also appear there.
func HostGate(host model.Host, configHosts []model.Host, executorHosts []model.Host) (bool, string) {
	if !model.IsLocalhost(host) && !containsHost(configHosts, host) {
		return false, "Host is not in global config"
	}
	if len(executorHosts) > 0 && !containsHost(executorHosts, host) {
		return false, "Host not in executor's host"
	}
	return true, ""
}

func hasIntersection(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	for _, v := range a {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func containsHost(hosts []model.Host, h model.Host) bool {
	for _, candidate := range hosts {
		if candidate.Key() == h.Key() {
			return true
		}
	}
	return false
}
