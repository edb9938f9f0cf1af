package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dkrasner/escapewatch/internal/protocol"
	"github.com/stretchr/testify/require"
)

func TestRunUnknownTargetReportsError(t *testing.T) {
	req := protocol.AnalyzeRequest{SessionID: "s1", Target: "nope.go:Missing", Inputs: []string{"x"}, Repeat: 1, TimeoutSeconds: 1}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(bytes.NewReader(body), &out)
	require.NoError(t, err)

	var resp protocol.AnalyzeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Contains(t, resp.Error, "nope.go:Missing")
}

func TestRunJoinedGoroutineProducesNoEscape(t *testing.T) {
	req := protocol.AnalyzeRequest{
		SessionID:      "s2",
		Target:         "testdata/clean.go:JoinedGoroutine",
		Inputs:         []string{"a", "b"},
		Repeat:         2,
		TimeoutSeconds: 1,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(bytes.NewReader(body), &out))

	var resp protocol.AnalyzeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))

	require.Empty(t, resp.Error)
	require.Equal(t, 4, resp.Summary.TotalTests)
	require.Equal(t, 4, resp.Summary.Successes)
	require.Equal(t, 0, resp.Summary.GenuineEscapes)
	require.Empty(t, resp.Vulnerabilities)
}

func TestRunLeakedGoroutineProducesVulnerability(t *testing.T) {
	req := protocol.AnalyzeRequest{
		SessionID:      "s3",
		Target:         "testdata/leak.go:LeakUnclosedChannel",
		Inputs:         []string{"x"},
		Repeat:         1,
		TimeoutSeconds: 1,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(bytes.NewReader(body), &out))

	var resp protocol.AnalyzeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))

	require.Equal(t, 1, resp.Summary.GenuineEscapes)
	require.Len(t, resp.Vulnerabilities, 1)
	require.Equal(t, "concurrent_escape", resp.Vulnerabilities[0].VulnerabilityType)
	require.Equal(t, "high", resp.Vulnerabilities[0].Severity)
	require.True(t, strings.HasPrefix(resp.Vulnerabilities[0].Description, "goroutine escape detected"))
}

func TestRunTimedOutEscapeStillProducesVulnerability(t *testing.T) {
	req := protocol.AnalyzeRequest{
		SessionID:      "s4",
		Target:         "testdata/leak.go:LeakAndHang",
		Inputs:         []string{"x"},
		Repeat:         1,
		TimeoutSeconds: 0.01,
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(bytes.NewReader(body), &out))

	var resp protocol.AnalyzeResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))

	require.Equal(t, 1, resp.Summary.Timeouts)
	require.Equal(t, 0, resp.Summary.GenuineEscapes, "a timed-out invocation's escape does not count as genuine")
	require.Len(t, resp.Vulnerabilities, 1, "a vulnerability is recorded for every escape_detected result, timed out or not")
	require.Equal(t, "concurrent_escape", resp.Vulnerabilities[0].VulnerabilityType)
	require.Equal(t, "high", resp.Vulnerabilities[0].Severity)
}

func TestRunMalformedRequestReturnsError(t *testing.T) {
	var out bytes.Buffer
	err := run(strings.NewReader("not json"), &out)
	require.Error(t, err)
}
