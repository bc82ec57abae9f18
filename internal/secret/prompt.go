// Package secret handles the one-time interactive sudo password prompt used
// when the sudo password isn't passed on the command line.
//
// Grounded on main_helpers.go's promptUserForSecret: raw-mode terminal,
// signal-safe restore, no echo.
package secret

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

// PromptPassword reads a secret from the controlling terminal without
// echoing it back, restoring terminal state on return or on SIGINT/SIGTERM.
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("not in a terminal, password prompts do not work")
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("failed to set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Println()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigs:
			_ = term.Restore(fd, oldState)
			fmt.Println()
			os.Exit(1)
		case <-done:
		}
	}()

	fmt.Print(prompt)
	passwordBytes, err := term.ReadPassword(fd)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	return string(passwordBytes), nil
}
