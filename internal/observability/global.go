package observability

import "sync"

var (
	globalMu     sync.RWMutex
	globalLogger StructuredLogger = NewNoOpLogger()
)

// Logger returns the process-wide structured logger singleton. It is
// initialized once at process start and reused read-only across invocations.
func Logger() StructuredLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the global structured logger singleton.
//
// Passing nil resets the logger to a no-op implementation.
func SetLogger(next StructuredLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if next == nil {
		globalLogger = NewNoOpLogger()
		return
	}
	globalLogger = next
}
