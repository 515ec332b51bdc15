package gateway

import (
	"net/http"
	"sync"
)

type phase int

const (
	phasePending phase = iota
	phaseAborted
	phaseTimedOut
	phaseResponded
)

func (p phase) String() string {
	switch p {
	case phasePending:
		return "pending"
	case phaseAborted:
		return "aborted"
	case phaseTimedOut:
		return "timed out"
	case phaseResponded:
		return "responded"
	}
	return "unknown"
}

// lifecycle guarantees a request gets at most one response. The first of
// respond, timeout and abort wins; later calls do nothing and return false.
type lifecycle struct {
	mu    sync.Mutex
	w     http.ResponseWriter
	phase phase
	// via is the phase the request passed through on its way to responded.
	via phase
}

func newLifecycle(w http.ResponseWriter) *lifecycle {
	return &lifecycle{w: w}
}

func (l *lifecycle) respond(write func(http.ResponseWriter)) bool {
	return l.finish(phaseResponded, write)
}

func (l *lifecycle) timeout(write func(http.ResponseWriter)) bool {
	return l.finish(phaseTimedOut, write)
}

// abort ends the request without writing anything; the client is gone.
func (l *lifecycle) abort() bool {
	return l.finish(phaseAborted, nil)
}

func (l *lifecycle) finish(via phase, write func(http.ResponseWriter)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != phasePending {
		return false
	}
	l.phase = via
	if write != nil {
		write(l.w)
	}
	l.phase = phaseResponded
	l.via = via
	return true
}

func (l *lifecycle) state() (current, via phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase, l.via
}
