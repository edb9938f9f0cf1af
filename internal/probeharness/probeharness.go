// Package probeharness runs a single target invocation in isolation and
// reports whatever goroutines survive past its return, per spec §4.2's
// dynamic-mode contract. It backs cmd/escapeprobe-go and is grounded on the
// teacher's goroutine-count-delta test style
// (analyzer/goroutine_analyzer_test.go), generalized from a test assertion
// into a reusable runtime harness via go.uber.org/goleak.
package probeharness

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/goleak"

	"github.com/dkrasner/escapewatch/internal/protocol"
)

// GracePeriod is how long Run waits after a target returns before taking
// the goroutine snapshot, giving well-behaved deferred cleanup a chance to
// finish before it is mistaken for an escape.
const GracePeriod = 100 * time.Millisecond

// Baseline captures the goroutines already running before a target is
// invoked, so a later Find call reports only what the invocation itself
// left behind.
func Baseline() goleak.Option {
	return goleak.IgnoreCurrent()
}

// Outcome is one isolated invocation's result.
type Outcome struct {
	Success         bool
	Crashed         bool
	Output          string
	Error           string
	ExecutionTimeMs uint64
	Goroutines      []protocol.GoroutineEscape
	Threads         []protocol.ThreadEscape
}

// Run invokes fn with the given input, bounded by timeout, and reports any
// goroutines that outlive it. fn is expected to run target-specific work
// and return whatever stdout-equivalent text the probe wants surfaced.
func Run(ctx context.Context, timeout time.Duration, baseline goleak.Option, fn func(input string) (string, error), input string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	type result struct {
		output string
		err    error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := fn(input)
		done <- result{output: out, err: err}
	}()

	var outcome Outcome
	select {
	case <-ctx.Done():
		outcome = Outcome{
			Crashed: true,
			Success: false,
			Error:   "Timeout: execution timed out",
		}
	case r := <-done:
		outcome = Outcome{
			Success: r.err == nil,
			Crashed: r.err != nil,
			Output:  r.output,
		}
		if r.err != nil {
			outcome.Error = r.err.Error()
		}
	}
	outcome.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())

	time.Sleep(GracePeriod)

	if err := goleak.Find(baseline); err != nil {
		outcome.Goroutines = parseLeakedGoroutines(err.Error())
	}

	return outcome
}

var goroutineHeaderRe = regexp.MustCompile(`Goroutine (\d+) in state (.+?), with (\S+) on top of the stack:`)

// parseLeakedGoroutines extracts goroutine id, state, and top stack function
// from goleak's multi-goroutine error text. goleak does not expose a
// structured type for this, so the harness scrapes the "Goroutine N in
// state S, with F on top of the stack:" line goleak prints per goroutine.
func parseLeakedGoroutines(report string) []protocol.GoroutineEscape {
	matches := goroutineHeaderRe.FindAllStringSubmatch(report, -1)
	escapes := make([]protocol.GoroutineEscape, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		escapes = append(escapes, protocol.GoroutineEscape{
			GoroutineID: id,
			State:       m[2],
			Function:    strings.TrimSpace(m[3]),
		})
	}
	return escapes
}
