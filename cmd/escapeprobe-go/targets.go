package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/dkrasner/escapewatch/internal/probeharness"
)

// Sample targets exercised by the Go dynamic probe. Each mirrors a
// commonly-seen concurrency-escape shape: a goroutine spawned without a
// join, versus the same work done with one. Real deployments would
// register targets from the code under test here instead.
func init() {
	probeharness.Register("testdata/leak.go:LeakUnjoinedGoroutine", leakUnjoinedGoroutine)
	probeharness.Register("testdata/leak.go:LeakUnclosedChannel", leakUnclosedChannel)
	probeharness.Register("testdata/clean.go:JoinedGoroutine", joinedGoroutine)
	probeharness.Register("testdata/leak.go:LeakAndHang", leakAndHang)
}

// leakAndHang spawns a goroutine that never exits and then blocks past any
// reasonable probe timeout itself, so a single invocation can be both a
// timeout and a goroutine escape at once.
func leakAndHang(input string) (string, error) {
	go func() {
		<-make(chan struct{})
	}()
	time.Sleep(5 * time.Second)
	return "done", nil
}

func leakUnjoinedGoroutine(input string) (string, error) {
	go func() {
		time.Sleep(5 * time.Second)
		_ = input
	}()
	return "spawned", nil
}

func leakUnclosedChannel(input string) (string, error) {
	ch := make(chan string)
	go func() {
		ch <- input
	}()
	return "produced", nil
}

func joinedGoroutine(input string) (string, error) {
	var wg sync.WaitGroup
	wg.Add(1)
	result := ""
	go func() {
		defer wg.Done()
		result = fmt.Sprintf("processed:%s", input)
	}()
	wg.Wait()
	return result, nil
}
