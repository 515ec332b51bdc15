package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/ipfs"
	"github.com/IceFireDB/IceFireDB-Gateway/utils"
)

const shutdownTimeout = 5 * time.Second

// Handle is the swappable connection to the backing daemon.
type Handle interface {
	// API returns nil while the daemon is not ready.
	API() ipfs.API
	Setup()
	Invalidate(stale ipfs.API)
}

type NameResolver interface {
	Resolve(ctx context.Context, name string) (dag.Key, error)
}

// Server answers host runtime requests on a nonce-gated local listener.
type Server struct {
	state    State
	daemon   Handle
	names    NameResolver
	timeout  time.Duration
	listener net.Listener
	log      *logrus.Entry
}

func New(daemon Handle, names NameResolver) (*Server, error) {
	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}
	return &Server{
		state:   State{Nonce: nonce},
		daemon:  daemon,
		names:   names,
		timeout: RequestTimeout,
		log:     logrus.WithField("component", "gateway"),
	}, nil
}

// Listen binds the listener. Port 0 picks a free port.
func (s *Server) Listen(host string, port int) error {
	if !utils.IsLoopback(host) {
		s.log.Warnf("listening on non-loopback address %s", host)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	s.listener = ln
	s.state.ListenAddr = ln.Addr().String()
	return nil
}

func (s *Server) State() State {
	return s.state
}

// Run serves until ctx is done, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("gateway: Listen must be called before Run")
	}

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	utils.GoWithRecover(func() {
		errCh <- srv.Serve(s.listener)
	}, func(r any) {
		errCh <- errors.New("gateway: server panic")
	})

	s.log.Infof("listening on %s", s.state.ListenAddr)
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
