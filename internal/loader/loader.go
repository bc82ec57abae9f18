// Package loader reads the YAML config and sequence declaration files the
// CLI is pointed at, and optionally enriches host entries from an
// ~/.ssh/config-style file.
//
// Grounded on main.go's config.extractOptions (JSON-flavored config file
// parsing), adapted to a YAML declaration file via gopkg.in/yaml.v2 since
// the declarative inventory/sequence format needs to express nested host
// lists and tag arrays more naturally than a flat key-value SSH-config-style
// file can.
package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/evsecdev/orchestrator/internal/model"
)

// HostDecl is the YAML shape of one inventory entry.
type HostDecl struct {
	URL               string            `yaml:"url"`
	SSHUser           string            `yaml:"ssh_user"`
	SSHPassword       string            `yaml:"ssh_password,omitempty"`
	SSHIdentityFile   string            `yaml:"ssh_identity_file,omitempty"`
	Name              string            `yaml:"name,omitempty"`
	Data              map[string]string `yaml:"data,omitempty"`
	PasswordlessUser  bool              `yaml:"passwordless_user,omitempty"`
	Proxy             string            `yaml:"proxy,omitempty"`
	ConnectTimeoutSec int               `yaml:"connect_timeout_sec,omitempty"`
}

// GeneralConfigDecl is the top-level shape of a config declaration file.
type GeneralConfigDecl struct {
	Hosts []HostDecl `yaml:"hosts"`
}

// LoadGeneralConfig reads and parses the config declaration file at path,
// rejecting duplicate host URLs per the inventory's identity invariant.
func LoadGeneralConfig(path string) ([]model.Host, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var decl GeneralConfigDecl
	if err := yaml.Unmarshal(raw, &decl); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(decl.Hosts))
	hosts := make([]model.Host, 0, len(decl.Hosts))
	for _, h := range decl.Hosts {
		if h.URL == "" {
			return nil, fmt.Errorf("config file %s: host entry missing url", path)
		}
		if _, dup := seen[h.URL]; dup {
			return nil, fmt.Errorf("config file %s: duplicate host url %s", path, h.URL)
		}
		seen[h.URL] = struct{}{}

		hosts = append(hosts, model.Host{
			URL:               h.URL,
			SSHUser:           h.SSHUser,
			SSHPassword:       h.SSHPassword,
			SSHIdentityFile:   h.SSHIdentityFile,
			Name:              h.Name,
			Data:              h.Data,
			PasswordlessUser:  h.PasswordlessUser,
			Proxy:             h.Proxy,
			ConnectTimeoutSec: h.ConnectTimeoutSec,
		})
	}

	return hosts, nil
}
