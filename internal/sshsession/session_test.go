package sshsession

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeWriteCloser struct {
	bytes.Buffer
}

func (f *fakeWriteCloser) Close() error { return nil }

func TestFillPasswordAcceptsCorrectPassword(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("[sudo] password for deploy:\n\nok\n"))
	stdin := &fakeWriteCloser{}

	err := fillPassword(reader, stdin, "hunter2")
	require.NoError(t, err)
	require.Contains(t, stdin.String(), "hunter2\n")
}

func TestFillPasswordRejectsWrongPassword(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("[sudo] password for deploy:\n\nSorry, try again.\n"))
	stdin := &fakeWriteCloser{}

	err := fillPassword(reader, stdin, "wrongpass")
	require.ErrorIs(t, err, ErrBadSudoPassword)
}

func TestFillPasswordRequiresAPassword(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader(""))
	stdin := &fakeWriteCloser{}

	err := fillPassword(reader, stdin, "")
	require.ErrorIs(t, err, ErrNoSudoPassword)
}
