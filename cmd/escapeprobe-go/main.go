// Command escapeprobe-go is the Go dynamic-analysis probe. It reads a single
// protocol.AnalyzeRequest from stdin, invokes the named target once per
// input x repeat, and writes one protocol.AnalyzeResponse to stdout.
//
// Grounded on analyzers/rust/src/main.rs's analyze(): same per-input/repeat
// loop, same crash/timeout/escape bookkeeping and summary math. Unlike that
// bridge's mock_fn placeholder, targets here are resolved through
// probeharness's registered name table (see internal/probeharness/targets.go
// and targets.go in this package) and actually run under probeharness.Run,
// so escapes are real goroutine leaks detected via go.uber.org/goleak
// rather than a simulated result.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dkrasner/escapewatch/internal/probeharness"
	"github.com/dkrasner/escapewatch/internal/protocol"
)

const analyzerVersion = "1.0.0"

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(in io.Reader, out io.Writer) error {
	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading request: %w", err)
	}

	var req protocol.AnalyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("parsing request: %w", err)
	}

	resp := analyze(req)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func analyze(req protocol.AnalyzeRequest) protocol.AnalyzeResponse {
	resp := protocol.AnalyzeResponse{
		SessionID:       req.SessionID,
		Language:        "go",
		AnalyzerVersion: analyzerVersion,
		AnalysisMode:    protocol.ModeDynamic,
		Results:         []protocol.ExecutionResult{},
		Vulnerabilities: []protocol.Vulnerability{},
	}

	target, ok := probeharness.Lookup(req.Target)
	if !ok {
		resp.Error = probeharness.ErrUnknownTarget(req.Target).Error()
		return resp
	}

	timeout := time.Duration(req.TimeoutSeconds * float64(time.Second))
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	repeat := req.Repeat
	if repeat <= 0 {
		repeat = 1
	}

	var successes, crashes, timeouts, escapes, genuineEscapes int

	for _, input := range req.Inputs {
		for i := 0; i < repeat; i++ {
			baseline := probeharness.Baseline()
			outcome := probeharness.Run(context.Background(), timeout, baseline, target, input)

			result := protocol.ExecutionResult{
				InputData:       input,
				Success:         outcome.Success,
				Crashed:         outcome.Crashed,
				Output:          outcome.Output,
				Error:           outcome.Error,
				ExecutionTimeMs: outcome.ExecutionTimeMs,
				EscapeDetails: protocol.EscapeDetails{
					Goroutines: outcome.Goroutines,
					Threads:    outcome.Threads,
				},
			}
			result.EscapeDetected = !result.EscapeDetails.IsEmpty()

			timedOut := strings.HasPrefix(outcome.Error, "Timeout:")

			if result.Success {
				successes++
			}
			if result.Crashed {
				crashes++
			}
			if timedOut {
				timeouts++
			}
			if result.EscapeDetected {
				escapes++
				if !timedOut {
					genuineEscapes++
				}
				resp.Vulnerabilities = append(resp.Vulnerabilities, protocol.Vulnerability{
					Input:             input,
					VulnerabilityType: "concurrent_escape",
					Severity:          "high",
					Description:       fmt.Sprintf("goroutine escape detected: %s", result.EscapeDetails.Summary()),
					EscapeDetails:     result.EscapeDetails,
				})
			}

			resp.Results = append(resp.Results, result)
		}
	}

	total := len(resp.Results)
	resp.Summary = protocol.ExecutionSummary{
		TotalTests:     total,
		Successes:      successes,
		Crashes:        crashes,
		Timeouts:       timeouts,
		Escapes:        escapes,
		GenuineEscapes: genuineEscapes,
	}
	if total > 0 {
		resp.Summary.CrashRate = float64(crashes) / float64(total)
	}

	return resp
}
