// Package telemetry provides the program's logging and metrics sinks.
//
// Logging mirrors exception_handling.go's best-effort journald mirror of
// errors and main_helpers.go's printMessage verbosity-gated progress
// printing with timestamps at verbosity>=2. The hand-rolled verbosity
// plumbing is replaced with github.com/charmbracelet/log, which already
// does leveled/timestamped console rendering instead of a manual
// "if requiredVerbosityLevel <= globalVerbosityLevel" check.
package telemetry

import (
	"fmt"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/coreos/go-systemd/v22/journal"
)

// Verbosity is the configured verbose level (0-3), extended with two extra
// levels for the session layer (FullData, Debug) since it has that much to
// say about wire-level exec detail.
type Verbosity int

const (
	VerbosityNone Verbosity = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug
)

// Logger wraps a charmbracelet/log.Logger gated by one of the levels above,
// plus a best-effort journald mirror for anything logged at Error level.
type Logger struct {
	verbosity Verbosity
	console   *charmlog.Logger
	journalOK bool
}

// New builds a logger writing to w (os.Stdout in production, a buffer in
// tests) at the given verbosity. Journald mirroring is attempted lazily and
// silently disabled if no journald socket is present.
func New(w io.Writer, verbosity Verbosity) *Logger {
	console := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: verbosity >= VerbosityProgress,
		TimeFormat:      "15:04:05.000000",
	})
	if verbosity == VerbosityNone {
		console.SetLevel(charmlog.FatalLevel + 1)
	}
	return &Logger{verbosity: verbosity, console: console, journalOK: journal.Enabled()}
}

// Progressf prints a progress-style message gated at the given verbosity
// level, mirroring printMessage(requiredVerbosityLevel, message, vars...).
func (l *Logger) Progressf(level Verbosity, format string, args ...interface{}) {
	if l == nil || level > l.verbosity {
		return
	}
	l.console.Print(fmt.Sprintf(format, args...))
}

// Errorf logs an error unconditionally (verbosity never suppresses errors)
// and best-effort mirrors it to journald, matching logError's dual sink.
func (l *Logger) Errorf(description string, err error) {
	if err == nil {
		return
	}
	msg := fmt.Sprintf("%s: %v", description, err)
	if l != nil {
		l.console.Error(msg)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	l.mirrorToJournald(msg)
}

func (l *Logger) mirrorToJournald(msg string) {
	if l == nil || !l.journalOK {
		return
	}
	err := journal.Send(msg, journal.PriErr, nil)
	if err != nil && !strings.Contains(err.Error(), "could not initialize socket") {
		fmt.Fprintf(os.Stderr, "failed to create journald entry: %v\n", err)
	}
}

// RecordHostFailure mirrors recordDeploymentFailure: a one-line failure
// record for a host, written to journald at info priority so a rerun can be
// driven off the journal rather than only off stdout.
func (l *Logger) RecordHostFailure(hostRepr, executorName, message string) {
	message = strings.ReplaceAll(message, "\n", " ")
	message = strings.ReplaceAll(message, "\r", " ")
	if l == nil || !l.journalOK {
		return
	}
	_ = journal.Send(message, journal.PriInfo, map[string]string{
		"HOST":     hostRepr,
		"EXECUTOR": executorName,
	})
}
