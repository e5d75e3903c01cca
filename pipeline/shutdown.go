package pipeline

import "sync/atomic"

// Shutdown is the single atomic boolean every thread in the pipeline reads
// to decide whether to keep running (§5: "Shutdown is coordinated by one
// atomic boolean readable by all threads"). It replaces the teacher's
// per-engine stopChan/close pattern with the shared flag the specification
// calls for, since several independent goroutines (receiver, N processors,
// output router) all need to observe the same signal.
type Shutdown struct {
	flag atomic.Bool
}

// NewShutdown returns a Shutdown not yet triggered.
func NewShutdown() *Shutdown { return &Shutdown{} }

// Trigger sets the shutdown flag. Idempotent.
func (s *Shutdown) Trigger() { s.flag.Store(true) }

// Requested reports whether shutdown has been triggered.
func (s *Shutdown) Requested() bool { return s.flag.Load() }
