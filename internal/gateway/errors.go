package gateway

import (
	"errors"
	"net/http"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/namesys"
)

var (
	// ErrNotReady means no backing daemon handle is installed.
	ErrNotReady = errors.New("gateway: daemon not ready")

	errInvalidURL = errors.New("gateway: invalid url")
)

const (
	textForbidden      = "Forbidden"
	textInvalidURL     = "Invalid URL"
	textMethod         = "Method Not Supported"
	textDaemonNotFound = "IPFS Daemon not found. Start the daemon and try again."
	textTimedOut       = "Timed out"
	textFileNotFound   = "File Not Found"
	textNameNotFound   = "Name Not Found"
	textFailed         = "Failed"
)

// statusFor maps a failure to the status line the client sees.
func statusFor(err error) (int, string) {
	var notFound *dag.NotFoundError
	switch {
	case errors.Is(err, errInvalidURL), errors.Is(err, dag.ErrInvalidKey):
		return http.StatusNotFound, textInvalidURL
	case errors.Is(err, ErrNotReady):
		return http.StatusInternalServerError, textDaemonNotFound
	case errors.As(err, &notFound):
		return http.StatusNotFound, textFileNotFound
	case errors.Is(err, namesys.ErrNotFound):
		return http.StatusNotFound, textNameNotFound
	}
	return http.StatusInternalServerError, textFailed
}
