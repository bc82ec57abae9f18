package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evsecdev/orchestrator/internal/model"
)

func TestParseExtraVars(t *testing.T) {
	vars, err := parseExtraVars([]string{"env=prod", "region=us-east-1"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"env": "prod", "region": "us-east-1"}, vars)
}

func TestParseExtraVarsRejectsMalformedToken(t *testing.T) {
	_, err := parseExtraVars([]string{"noequalsign"})
	require.Error(t, err)
}

func TestParseExtraVarsAllowsValueWithEquals(t *testing.T) {
	vars, err := parseExtraVars([]string{"filter=a=b"})
	require.NoError(t, err)
	require.Equal(t, "a=b", vars["filter"])
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitCSV("a, b,c"))
	require.Nil(t, splitCSV(""))
}

func TestSelectHostsAll(t *testing.T) {
	inventory := []model.Host{{URL: "a.example.com"}, {URL: "b.example.com"}}
	selected, err := selectHosts(inventory, "all")
	require.NoError(t, err)
	require.Equal(t, inventory, selected)
}

func TestSelectHostsLocalhost(t *testing.T) {
	selected, err := selectHosts(nil, "localhost")
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.True(t, model.IsLocalhost(selected[0]))
}

func TestSelectHostsCSVSubset(t *testing.T) {
	inventory := []model.Host{{URL: "a.example.com"}, {URL: "b.example.com"}, {URL: "c.example.com"}}
	selected, err := selectHosts(inventory, "a.example.com,c.example.com")
	require.NoError(t, err)
	require.Len(t, selected, 2)
}

func TestSelectHostsUnknownHostErrors(t *testing.T) {
	inventory := []model.Host{{URL: "a.example.com"}}
	_, err := selectHosts(inventory, "z.example.com")
	require.Error(t, err)
}
