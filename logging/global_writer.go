package logging

import (
	"io"
	"os"
	"sync"
)

// swappableWriter delegates to a writer that can be replaced at runtime.
type swappableWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (sw *swappableWriter) Write(p []byte) (int, error) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.w.Write(p)
}

var stderrSink = &swappableWriter{w: os.Stderr}

// SetStderrOutput redirects the console sink shared by every component
// logger. The picker UI points it at io.Discard while it owns the terminal.
// It returns the previous writer so callers can restore it.
func SetStderrOutput(w io.Writer) io.Writer {
	stderrSink.mu.Lock()
	defer stderrSink.mu.Unlock()
	prev := stderrSink.w
	stderrSink.w = w
	return prev
}

// StderrOutput returns the shared console sink.
func StderrOutput() io.Writer {
	return stderrSink
}
