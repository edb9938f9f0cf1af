// Package version holds escapewatch's build identity and the cooperative
// shutdown flag the CLI sets on SIGINT so a long run-all pass can stop
// between targets instead of mid-probe.
package version

import (
	"go.uber.org/atomic"
)

var (
	Version    = "v0.0"    // set via -ldflags at release build time
	CommitHash = "unknown" // git rev-parse HEAD
	BuiltAt    = "unknown" // build timestamp

	// Shutdown is flipped true by the CLI's SIGINT handler. Long-running
	// operations such as run-all poll it between targets rather than
	// tearing down a probe mid-invocation.
	Shutdown = atomic.NewBool(false)
)
