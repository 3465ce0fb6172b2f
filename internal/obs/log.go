// Package obs carries the service's ambient observability: a small
// env-gated stderr logger, plus OpenTelemetry meter/tracer accessors
// for AI-call instrumentation.
package obs

import (
	"fmt"
	"os"
	"sync"
)

var (
	debugEnabled = os.Getenv("SHIROKUMA_LOG_LEVEL") == "debug"
	mu           sync.Mutex
)

// SetDebug overrides the SHIROKUMA_LOG_LEVEL=debug gate programmatically,
// mainly for tests.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugEnabled = enabled
}

// Debugf writes a debug-level line to stderr when SHIROKUMA_LOG_LEVEL=debug.
// It is a no-op otherwise.
func Debugf(format string, args ...interface{}) {
	mu.Lock()
	enabled := debugEnabled
	mu.Unlock()
	if enabled {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// Errorf always writes to stderr: structural failures the caller should
// be able to see regardless of the debug gate (mirror failures,
// enrichment-provider recoveries).
func Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "shirokuma: "+format+"\n", args...)
}
