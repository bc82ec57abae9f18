package sshsession

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/creack/pty"
	"golang.org/x/crypto/ssh"
)

// ExecRequest is everything one command invocation needs from the session
// layer: the assembled command string plus the sudo/timeout/streaming
// options that shape how it's run.
type ExecRequest struct {
	Command       string
	SudoRequested bool // the executor asked for sudo
	PasswordlessUser bool // host's sudo never prompts for a password
	SudoPassword  string
	Timeout       time.Duration // 0 uses defaultExecutionTimeout
	StreamStdout  bool
}

// ExecResult is the raw output of one command run, before four-state
// classification happens one layer up in the executor package.
type ExecResult struct {
	Stdout []string // split on newline, trailing empty line preserved
}

// ErrBadSudoPassword is returned when the remote shell rejects the supplied
// sudo password ("Sorry, try again.").
var ErrBadSudoPassword = errors.New("incorrect linux password")

// ErrNoSudoPassword is returned when sudo is required but no password was
// configured for a non-passwordless host.
var ErrNoSudoPassword = errors.New("pass linux password with -p or passwordless_user on hosts")

const defaultExecutionTimeout = 300 * time.Second

// ptyTermModes are the terminal modes sent with every remote pty request
// (echo off, 14400 baud); runRemote requests the pty itself at 80 rows by
// 200 columns so remote commands don't wrap unexpectedly.
var ptyTermModes = ssh.TerminalModes{
	ssh.ECHO:          0,
	ssh.TTY_OP_ISPEED: 14400,
	ssh.TTY_OP_OSPEED: 14400,
}

// Run executes req against the session: a PTY-allocated shell over SSH for
// a remote host, or a local pty-backed shell for the Localhost shortcut -
// both paths go through the same sudo-password handshake.
func (s *Session) Run(ctx context.Context, req ExecRequest) (ExecResult, error) {
	if s.isLocal {
		return s.runLocal(ctx, req)
	}
	return s.runRemote(ctx, req)
}

func (s *Session) runRemote(ctx context.Context, req ExecRequest) (ExecResult, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	if err := session.RequestPty("xterm", 80, 200, ptyTermModes); err != nil {
		return ExecResult{}, fmt.Errorf("failed to allocate pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := session.Start(req.Command); err != nil {
		return ExecResult{}, fmt.Errorf("failed to start command: %w", err)
	}

	reader := bufio.NewReader(stdout)

	if req.SudoRequested && !req.PasswordlessUser {
		if err := fillPassword(reader, stdin, req.SudoPassword); err != nil {
			session.Signal(ssh.SIGTERM)
			return ExecResult{}, err
		}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdoutBuf bytes.Buffer
	copyDone := make(chan error, 1)
	go func() {
		var w io.Writer = &stdoutBuf
		if req.StreamStdout {
			w = io.MultiWriter(os.Stdout, &stdoutBuf)
		}
		_, err := io.Copy(w, reader)
		copyDone <- err
	}()

	waitErr := make(chan error, 1)
	go func() { waitErr <- session.Wait() }()

	select {
	case <-waitErr:
		<-copyDone
	case <-execCtx.Done():
		session.Signal(ssh.SIGTERM)
		session.Close()
		return ExecResult{}, fmt.Errorf("closed ssh session: exceeded timeout (%s) for command %s", timeout, req.Command)
	}

	return ExecResult{Stdout: strings.Split(stdoutBuf.String(), "\n")}, nil
}

// fillPassword implements the interactive sudo password handshake: sleep
// briefly for the prompt to appear, write the password, discard the two
// prompt-echo lines, then read the next line to detect a rejected password.
func fillPassword(reader *bufio.Reader, stdin io.WriteCloser, password string) error {
	if password == "" {
		return ErrNoSudoPassword
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := stdin.Write([]byte(password + "\n")); err != nil {
		return fmt.Errorf("failed to write sudo password: %w", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := reader.ReadString('\n'); err != nil && err != io.EOF {
			return fmt.Errorf("failed to read sudo prompt line: %w", err)
		}
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read sudo response line: %w", err)
	}
	if strings.Contains(line, "Sorry, try again.") {
		stdin.Write([]byte{0x03})
		return ErrBadSudoPassword
	}
	return nil
}

// runLocal mirrors runRemote using a locally allocated pty (via
// github.com/creack/pty) so the Localhost shortcut goes through the same
// sudo handshake and output-collection path as a real SSH session.
func (s *Session) runLocal(ctx context.Context, req ExecRequest) (ExecResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultExecutionTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", req.Command)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to allocate local pty: %w", err)
	}
	defer ptmx.Close()

	reader := bufio.NewReader(ptmx)

	if req.SudoRequested && !req.PasswordlessUser {
		if err := fillPassword(reader, ptmx, req.SudoPassword); err != nil {
			cmd.Process.Kill()
			return ExecResult{}, err
		}
	}

	var stdoutBuf bytes.Buffer
	var w io.Writer = &stdoutBuf
	if req.StreamStdout {
		w = io.MultiWriter(os.Stdout, &stdoutBuf)
	}
	io.Copy(w, reader)

	if err := cmd.Wait(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return ExecResult{}, fmt.Errorf("closed local session: exceeded timeout for command %s", req.Command)
		}
	}

	return ExecResult{Stdout: strings.Split(stdoutBuf.String(), "\n")}, nil
}

// Upload writes content to remoteFilePath on the session's host via SCP,
// grounded on SCPUpload. For Localhost it writes the file directly.
func (s *Session) Upload(ctx context.Context, content []byte, remoteFilePath string) error {
	if s.isLocal {
		return os.WriteFile(remoteFilePath, content, 0640)
	}

	transferClient, err := scp.NewClientBySSHWithTimeout(s.client, 900*time.Second)
	if err != nil {
		return fmt.Errorf("failed to create scp session: %w", err)
	}
	defer transferClient.Close()

	reader := bytes.NewReader(content)
	if err := transferClient.Copy(ctx, reader, remoteFilePath, "0640", int64(len(content))); err != nil {
		if strings.Contains(err.Error(), "permission denied") {
			return fmt.Errorf("unable to write to %s (is it writable by the user?): %w", remoteFilePath, err)
		}
		return fmt.Errorf("failed scp transfer: %w", err)
	}
	return nil
}

// Download reads remoteFilePath's contents via SCP, grounded on SCPDownload.
func (s *Session) Download(ctx context.Context, remoteFilePath string) ([]byte, error) {
	if s.isLocal {
		return os.ReadFile(remoteFilePath)
	}

	transferClient, err := scp.NewClientBySSHWithTimeout(s.client, 90*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to create scp session: %w", err)
	}
	defer transferClient.Close()

	var buf bytes.Buffer
	if _, err := transferClient.CopyFromRemoteFileInfos(ctx, &buf, remoteFilePath, nil); err != nil {
		return nil, fmt.Errorf("failed scp transfer: %w", err)
	}
	return buf.Bytes(), nil
}
