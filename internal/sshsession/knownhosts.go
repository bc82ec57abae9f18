package sshsession

import (
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// autoAcceptCallback wraps golang.org/x/crypto/ssh/knownhosts with a
// best-effort auto-accept policy: unknown hosts are recorded and trusted,
// but a known host whose key changed is always rejected.
//
// ssh_helpers.go:hostKeyCallback hand-rolls known_hosts hashing/matching
// itself; this uses the real library instead of reimplementing the
// hashed-host-line format.
type autoAcceptCallback struct {
	mu   sync.Mutex
	path string
	cb   ssh.HostKeyCallback
}

func newAutoAcceptCallback(knownHostsPath string) (*autoAcceptCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		f, ferr := os.OpenFile(knownHostsPath, os.O_CREATE|os.O_WRONLY, 0600)
		if ferr != nil {
			return nil, fmt.Errorf("failed to create known_hosts file at %s: %w", knownHostsPath, ferr)
		}
		f.Close()
	}

	cb, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts file: %w", err)
	}

	return &autoAcceptCallback{path: knownHostsPath, cb: cb}, nil
}

// Callback returns an ssh.HostKeyCallback that accepts and persists unknown
// host keys rather than rejecting the connection, and still rejects a
// known host whose key has changed (a real MITM indicator, not just an
// unknown host).
func (a *autoAcceptCallback) Callback() ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := a.cb(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if ok := asKeyError(err, &keyErr); ok && len(keyErr.Want) > 0 {
			// Known host, but the key changed - never auto-accept this.
			return fmt.Errorf("REMOTE HOST KEY CHANGED for %s: %w", hostname, err)
		}

		// Unknown host: best-effort auto-accept, append and keep going.
		a.mu.Lock()
		defer a.mu.Unlock()

		f, ferr := os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
		if ferr != nil {
			return fmt.Errorf("failed to open known_hosts for appending: %w", ferr)
		}
		defer f.Close()

		line := knownhosts.Line([]string{knownhosts.Normalize(remote.String())}, key)
		if _, werr := f.WriteString(line + "\n"); werr != nil {
			return fmt.Errorf("failed to record new host key: %w", werr)
		}
		return nil
	}
}

func asKeyError(err error, target **knownhosts.KeyError) bool {
	keyErr, ok := err.(*knownhosts.KeyError)
	if ok {
		*target = keyErr
	}
	return ok
}
