package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/stretchr/testify/require"
)

// echoResponseCommand is a tiny shell pipeline that reads stdin and writes a fixed,
// well-formed AnalyzeResponse — standing in for a probe child without
// requiring a language runtime to be installed in the test environment.
func echoResponseCommand(t *testing.T) []string {
	t.Helper()
	return []string{"sh", "-c", `cat >/dev/null; printf '%s' '{"session_id":"s1","language":"python","analyzer_version":"1.0.0","analysis_mode":"Dynamic","results":[],"vulnerabilities":[],"summary":{"total_tests":0,"successes":0,"crashes":0,"timeouts":0,"escapes":0,"genuine_escapes":0,"crash_rate":0}}'`}
}

func TestClientRunParsesResponse(t *testing.T) {
	client := NewClient(echoResponseCommand(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Run(ctx, protocol.AnalyzeRequest{SessionID: "s1", Target: "x.py:f"})
	require.NoError(t, err)
	require.Equal(t, "python", resp.Language)
	require.Equal(t, "s1", resp.SessionID)
}

func TestClientRunSurfacesStderrOnNonZeroExit(t *testing.T) {
	client := NewClient([]string{"sh", "-c", "echo boom >&2; exit 1"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Run(ctx, protocol.AnalyzeRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestClientRunRejectsEmptyCommand(t *testing.T) {
	client := NewClient(nil)
	_, err := client.Run(context.Background(), protocol.AnalyzeRequest{})
	require.Error(t, err)
}

func TestClientHealthCheckUsesHealthCommand(t *testing.T) {
	client := NewClient([]string{"sh", "-c", "exit 0"})
	err := client.HealthCheck(context.Background(), []string{"sh", "-c", "exit 0"})
	require.NoError(t, err)

	err = client.HealthCheck(context.Background(), []string{"sh", "-c", "exit 1"})
	require.Error(t, err)
}

func TestClientHealthCheckFallsBackToBinaryExistence(t *testing.T) {
	client := NewClient([]string{"/bin/sh"})
	require.NoError(t, client.HealthCheck(context.Background(), nil))

	missing := NewClient([]string{"/no/such/binary-escapewatch"})
	require.Error(t, missing.HealthCheck(context.Background(), nil))
}
