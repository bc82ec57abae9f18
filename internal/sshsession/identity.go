package sshsession

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// loadSigner reads and parses a private key identity file, defaulting to
// ~/.ssh/id_rsa when none is configured for the host.
func loadSigner(identityFile, password string) (ssh.Signer, error) {
	if identityFile == "" {
		identityFile = "~/.ssh/id_rsa"
	}
	path := expandHome(identityFile)

	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh identity file %s: %w", path, err)
	}

	if password != "" {
		signer, perr := ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(password))
		if perr == nil {
			return signer, nil
		}
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key from %s: %w", path, err)
	}
	return signer, nil
}
