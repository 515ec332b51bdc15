package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/ipfs"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/mimesniff"
	"github.com/IceFireDB/IceFireDB-Gateway/utils"
)

// outcome is what the resolver worker hands back to the request goroutine.
type outcome struct {
	link dag.Link
	node dag.Node
	err  error
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if subtle.ConstantTimeCompare([]byte(q.Get("nonce")), []byte(s.state.Nonce)) != 1 {
		s.log.WithField("remote", r.RemoteAddr).Warn("rejected request with bad nonce")
		writeError(w, http.StatusForbidden, textForbidden)
		return
	}

	req, err := parseRequest(q.Get("url"))
	if err != nil {
		s.log.Debug(err)
		code, text := statusFor(err)
		writeError(w, code, text)
		return
	}
	log := s.log.WithField("url", req.rawURL)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, textMethod)
		return
	}
	head := r.Method == http.MethodHead

	if req.reqPath == "" {
		writeRedirect(w, Scheme+":"+req.folderKey+"/")
		return
	}

	api := s.daemon.API()
	if api == nil {
		log.Debug("daemon not ready, triggering setup")
		s.daemon.Setup()
		code, text := statusFor(ErrNotReady)
		writeError(w, code, text)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	results := make(chan outcome, 1)
	utils.GoWithRecover(func() {
		results <- s.resolve(ctx, api, req)
	}, func(p any) {
		results <- outcome{err: fmt.Errorf("gateway: resolver panic: %v", p)}
	})

	lc := newLifecycle(w)
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	defer func() {
		_, via := lc.state()
		log.WithField("phase", via).Debug("request finished")
	}()

	select {
	case out := <-results:
		if r.Context().Err() != nil {
			// the worker saw the client's cancellation first
			lc.abort()
			return
		}
		lc.respond(func(w http.ResponseWriter) {
			s.finish(w, log, api, req, out, head)
		})
	case <-timer.C:
		lc.timeout(func(w http.ResponseWriter) {
			log.Warn("request timed out")
			writeError(w, http.StatusRequestTimeout, textTimedOut)
		})
	case <-r.Context().Done():
		lc.abort()
		log.Debug("request aborted by client")
	}
}

// resolve runs the name lookup, the descent and the payload fetch.
func (s *Server) resolve(ctx context.Context, api ipfs.API, req *request) outcome {
	root := req.key
	if req.needsNameResolution() {
		key, err := s.names.Resolve(ctx, req.key.ID)
		if err != nil {
			return outcome{err: err}
		}
		root = key
	}

	if s.daemon.API() == nil {
		return outcome{err: ErrNotReady}
	}

	link, err := dag.DescendSegments(ctx, api, root, req.lookupSegments())
	if err != nil {
		return outcome{err: err}
	}

	payload, err := api.FetchPayload(ctx, link.Target)
	if err != nil {
		return outcome{err: dag.NewFetchError(link.Target, err)}
	}
	node, err := dag.DecodePayload(link.Target, payload)
	if err != nil {
		return outcome{err: err}
	}

	if leaf, ok := node.(dag.Leaf); ok && leaf.Chunked {
		data, err := api.ReadFile(ctx, link.Target)
		if err != nil {
			return outcome{err: dag.NewFetchError(link.Target, err)}
		}
		leaf.Data = data
		node = leaf
	}
	return outcome{link: link, node: node}
}

func (s *Server) finish(w http.ResponseWriter, log *logrus.Entry, api ipfs.API, req *request, out outcome, head bool) {
	if out.err != nil {
		s.fail(w, log, api, req, out.err)
		return
	}

	switch n := out.node.(type) {
	case dag.Tree:
		writeRedirect(w, Scheme+":"+req.folderKey+req.reqPath+"/")
	case dag.Leaf:
		contentType := mimesniff.Classify(n.Data, out.link.Name)
		log.WithField("type", contentType).Debug("serving content")
		writeContent(w, contentType, n.Data, head)
	}
}

func (s *Server) fail(w http.ResponseWriter, log *logrus.Entry, api ipfs.API, req *request, err error) {
	var notFound *dag.NotFoundError
	if errors.As(err, &notFound) && req.isDirectory() && notFound.Links != nil {
		writeListing(w, req.reqPath, notFound.Links)
		return
	}

	switch {
	case errors.Is(err, ErrNotReady):
		s.daemon.Setup()
	case dag.IsConnectionLost(err):
		log.Warnf("lost the daemon: %v", err)
		s.daemon.Invalidate(api)
	default:
		log.Debug(err)
	}

	code, text := statusFor(err)
	writeError(w, code, text)
}
