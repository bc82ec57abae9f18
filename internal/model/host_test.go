package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostRepr(t *testing.T) {
	require.Equal(t, "db1.example.com", Host{URL: "db1.example.com"}.Repr())
	require.Equal(t, "db-primary", Host{URL: "db1.example.com", Name: "db-primary"}.Repr())
}

func TestHostKeyIgnoresName(t *testing.T) {
	h := Host{URL: "db1.example.com", Name: "db-primary"}
	require.Equal(t, "db1.example.com", h.Key())
}

func TestIsLocalhost(t *testing.T) {
	require.True(t, IsLocalhost(NewLocalhost()))
	require.True(t, IsLocalhost(Host{URL: "127.0.0.1"}))
	require.False(t, IsLocalhost(Host{URL: "db1.example.com"}))
}

func TestNewLocalhostIsPasswordless(t *testing.T) {
	require.True(t, NewLocalhost().PasswordlessUser)
}
