package probeharness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunReportsSuccess(t *testing.T) {
	baseline := Baseline()
	outcome := Run(context.Background(), time.Second, baseline, func(input string) (string, error) {
		return "ok:" + input, nil
	}, "hello")

	require.True(t, outcome.Success)
	require.False(t, outcome.Crashed)
	require.Equal(t, "ok:hello", outcome.Output)
}

func TestRunReportsError(t *testing.T) {
	baseline := Baseline()
	outcome := Run(context.Background(), time.Second, baseline, func(input string) (string, error) {
		return "", errors.New("boom")
	}, "x")

	require.False(t, outcome.Success)
	require.True(t, outcome.Crashed)
	require.Equal(t, "boom", outcome.Error)
}

func TestRunRecoversPanic(t *testing.T) {
	baseline := Baseline()
	outcome := Run(context.Background(), time.Second, baseline, func(input string) (string, error) {
		panic("kaboom")
	}, "x")

	require.True(t, outcome.Crashed)
	require.Contains(t, outcome.Error, "kaboom")
}

func TestRunTimesOutOnSlowTarget(t *testing.T) {
	baseline := Baseline()
	outcome := Run(context.Background(), 10*time.Millisecond, baseline, func(input string) (string, error) {
		time.Sleep(time.Second)
		return "", nil
	}, "x")

	require.False(t, outcome.Success)
	require.True(t, outcome.Crashed)
	require.Equal(t, "Timeout: execution timed out", outcome.Error)
}

func TestRunDetectsLeakedGoroutine(t *testing.T) {
	baseline := Baseline()
	var wg sync.WaitGroup
	wg.Add(1)
	outcome := Run(context.Background(), time.Second, baseline, func(input string) (string, error) {
		go func() {
			wg.Done()
			<-make(chan struct{})
		}()
		return "started", nil
	}, "x")
	wg.Wait()

	require.NotEmpty(t, outcome.Goroutines)
}
