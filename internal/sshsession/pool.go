// Package sshsession implements the pooled remote-shell session layer: a
// cached *ssh.Client per host, PTY-allocated command execution, SCP file
// transfer, and a Localhost shortcut that bypasses the network entirely.
//
// Grounded on ssh.go (connectToSSH/checkConnection/SCPUpload/SCPDownload)
// and ssh_exec.go's SSHexec, generalized from one deployment pass over a
// git commit into a cached session reused across an arbitrary sequence of
// executor invocations.
package sshsession

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultKnownHosts     = "~/.ssh/known_hosts"
	sshVersionString      = "SSH-2.0-OpenSSH_9.8"
	maxConnectionAttempts = 3
)

// HostConfig is the subset of model.Host the session layer needs - kept
// decoupled from the model package's Host type so sshsession has no
// dependency on config/registry and stays a leaf package.
type HostConfig struct {
	URL             string
	User            string
	Password        string
	IdentityFile    string
	ConnectTimeout  time.Duration
	KnownHostsPath  string
	IsLocalhost     bool
}

// Pool is the cached session store: keyed by host URL, populated lazily,
// closed exactly once when the sequence finishes running.
type Pool struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewPool returns an empty session pool.
func NewPool() *Pool {
	return &Pool{sessions: make(map[string]*Session)}
}

// Open returns the cached session for hc.URL, connecting (through proxy, if
// given) on first use. Lookup-or-create checks, connects outside the lock,
// then re-checks under the lock before inserting, so two concurrent workers
// targeting the same host don't both dial.
func (p *Pool) Open(ctx context.Context, hc HostConfig, proxy *HostConfig) (*Session, error) {
	p.mu.Lock()
	if s, ok := p.sessions[hc.URL]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	session, err := connect(ctx, hc, proxy)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[hc.URL]; ok {
		// Lost the race - another worker connected first, close the redundant
		// connection we just opened and use theirs.
		session.Close()
		return s, nil
	}
	p.sessions[hc.URL] = session
	return session, nil
}

// CloseAll closes every cached session exactly once.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sessions {
		s.Close()
	}
	p.sessions = make(map[string]*Session)
}

// Session wraps one connected host - either a real *ssh.Client, or the
// Localhost short-circuit that runs commands with a local shell instead.
type Session struct {
	host        HostConfig
	client      *ssh.Client
	proxyClient *ssh.Client
	isLocal     bool
}

// Close tears down the underlying connection(s). Safe to call on a Localhost
// session (no-op).
func (s *Session) Close() {
	if s.client != nil {
		s.client.Close()
	}
	if s.proxyClient != nil {
		s.proxyClient.Close()
	}
}

func buildClientConfig(hc HostConfig, signer ssh.Signer, hostKeyCallback ssh.HostKeyCallback) *ssh.ClientConfig {
	timeout := hc.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	auth := []ssh.AuthMethod{}
	if signer != nil {
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if hc.Password != "" {
		auth = append(auth, ssh.Password(hc.Password))
	}
	return &ssh.ClientConfig{
		User:            hc.User,
		Auth:            auth,
		ClientVersion:   sshVersionString,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}
}

// connect dials hc, optionally tunneling through proxy first, retrying
// transient "no route to host" errors a bounded number of times - grounded
// on the connectToSSH/checkConnection pair.
func connect(ctx context.Context, hc HostConfig, proxy *HostConfig) (*Session, error) {
	if hc.IsLocalhost {
		return &Session{host: hc, isLocal: true}, nil
	}

	knownHostsPath := hc.KnownHostsPath
	if knownHostsPath == "" {
		knownHostsPath = expandHome(defaultKnownHosts)
	}
	autoAccept, err := newAutoAcceptCallback(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed known_hosts setup for %s: %w", hc.URL, err)
	}

	signer, signerErr := loadSigner(hc.IdentityFile, "")
	if signerErr != nil && hc.Password == "" {
		return nil, fmt.Errorf("failed to establish auth for %s: %w", hc.URL, signerErr)
	}

	clientConfig := buildClientConfig(hc, signer, autoAccept.Callback())

	if proxy != nil {
		return connectThroughProxy(hc, *proxy, clientConfig, autoAccept)
	}

	var lastErr error
	for attempt := 0; attempt < maxConnectionAttempts; attempt++ {
		client, err := ssh.Dial("tcp", hc.URL, clientConfig)
		if err == nil {
			return &Session{host: hc, client: client}, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed connection to %s: %w", hc.URL, lastErr)
}

func connectThroughProxy(hc, proxyHC HostConfig, clientConfig *ssh.ClientConfig, autoAccept *autoAcceptCallback) (*Session, error) {
	proxySigner, err := loadSigner(proxyHC.IdentityFile, "")
	if err != nil && proxyHC.Password == "" {
		return nil, fmt.Errorf("failed to establish auth for proxy %s: %w", proxyHC.URL, err)
	}
	proxyConfig := buildClientConfig(proxyHC, proxySigner, autoAccept.Callback())

	var proxyClient *ssh.Client
	var lastErr error
	for attempt := 0; attempt < maxConnectionAttempts; attempt++ {
		proxyClient, lastErr = ssh.Dial("tcp", proxyHC.URL, proxyConfig)
		if lastErr == nil {
			break
		}
		if !isRetryable(lastErr) {
			return nil, fmt.Errorf("failed connection to proxy %s: %w", proxyHC.URL, lastErr)
		}
		time.Sleep(200 * time.Millisecond)
	}
	if proxyClient == nil {
		return nil, fmt.Errorf("failed connection to proxy %s: %w", proxyHC.URL, lastErr)
	}

	tunnelConn, err := proxyClient.Dial("tcp", hc.URL)
	if err != nil {
		proxyClient.Close()
		return nil, fmt.Errorf("failed tunnel dial to %s through proxy %s: %w", hc.URL, proxyHC.URL, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(tunnelConn, hc.URL, clientConfig)
	if err != nil {
		proxyClient.Close()
		return nil, fmt.Errorf("failed SSH handshake to %s through proxy: %w", hc.URL, err)
	}

	return &Session{
		host:        hc,
		client:      ssh.NewClient(clientConn, chans, reqs),
		proxyClient: proxyClient,
	}, nil
}

func isRetryable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no route to host")
}
