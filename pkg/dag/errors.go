package dag

import (
	"errors"
	"fmt"
	"syscall"
)

var ErrBadEnvelope = errors.New("dag: malformed payload envelope")

// NotFoundError reports a path segment missing from the link table fetched
// at Depth. Links is that table, so callers can render it.
type NotFoundError struct {
	Key     Key
	Segment string
	Depth   int
	Links   []Link
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dag: %q not found under %s (depth %d)", e.Segment, e.Key, e.Depth)
}

// FetchError wraps a transport failure talking to the backing daemon.
type FetchError struct {
	Key            Key
	Err            error
	ConnectionLost bool
}

func NewFetchError(key Key, err error) *FetchError {
	return &FetchError{Key: key, Err: err, ConnectionLost: IsConnectionLost(err)}
}

func (e *FetchError) Error() string {
	if e.ConnectionLost {
		return fmt.Sprintf("dag: fetch %s: connection lost: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("dag: fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsConnectionLost reports whether err means the daemon refused the connection.
func IsConnectionLost(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) && fe.ConnectionLost {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
