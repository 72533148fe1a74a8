package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestRunAndDump(t *testing.T) {
	dir := t.TempDir()
	out := execute(t, "run", "--log-level", "warn",
		"--versions", "50", "--version-limit", "3", "--workers", "3",
		"--checkpoint-dir", dir)
	require.Contains(t, out, "versions=3")

	out = execute(t, "dump", "--log-level", "warn", "--checkpoint-dir", dir, "--limit", "2")
	require.Contains(t, out, "version=")
	require.Contains(t, out, "height=")

	out = execute(t, "dump", "--checkpoint-dir", dir, "--dot")
	require.Contains(t, out, "digraph")
}

func TestRunLedgerOptions(t *testing.T) {
	out := execute(t, "run", "--log-level", "error",
		"--versions", "50", "--version-limit", "2", "--workers", "2",
		"--ledger-options", `{"retry_budget":0,"rebalance_on_delete":true}`)
	require.Contains(t, out, "versions=2")

	cmd := rootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--ledger-options", `{"retry_budget":-1}`})
	require.Error(t, cmd.Execute())

	cmd = rootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"dump"})
	require.Error(t, cmd.Execute())
}
