package loader

import (
	"fmt"
	"os"

	sshconfig "github.com/kevinburke/ssh_config"

	"github.com/evsecdev/orchestrator/internal/model"
)

// EnrichFromSSHConfig fills in SSHUser/SSHIdentityFile for any host whose
// declaration left them blank, by looking up a matching Host block in an
// OpenSSH-style config file (~/.ssh/config by default). Declared values
// always win; this only fills gaps.
func EnrichFromSSHConfig(hosts []model.Host, sshConfigPath string) ([]model.Host, error) {
	f, err := os.Open(sshConfigPath)
	if os.IsNotExist(err) {
		return hosts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ssh config %s: %w", sshConfigPath, err)
	}
	defer f.Close()

	cfg, err := sshconfig.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh config %s: %w", sshConfigPath, err)
	}

	enriched := make([]model.Host, len(hosts))
	for i, h := range hosts {
		alias := h.Name
		if alias == "" {
			alias = h.URL
		}

		if h.SSHUser == "" {
			if user, err := cfg.Get(alias, "User"); err == nil && user != "" {
				h.SSHUser = user
			}
		}
		if h.SSHIdentityFile == "" {
			if identity, err := cfg.Get(alias, "IdentityFile"); err == nil && identity != "" {
				h.SSHIdentityFile = identity
			}
		}
		enriched[i] = h
	}

	return enriched, nil
}
