package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/ipfs/boxo/ipld/unixfs"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/ipfs"
)

func cidKey(t *testing.T, seed string) dag.Key {
	t.Helper()
	sum, err := mh.Sum([]byte(seed), mh.SHA2_256, -1)
	require.NoError(t, err)
	return dag.FromCid(cid.NewCidV1(cid.DagProtobuf, sum))
}

type fakeAPI struct {
	mu        sync.Mutex
	tables    map[string][]dag.Link
	payloads  map[string][]byte
	files     map[string][]byte
	err       error
	block     chan struct{}
	entered   chan struct{}
	linkCalls int
	fileCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		tables:   map[string][]dag.Link{},
		payloads: map[string][]byte{},
		files:    map[string][]byte{},
	}
}

func (f *fakeAPI) FetchLinks(ctx context.Context, key dag.Key) ([]dag.Link, error) {
	f.mu.Lock()
	f.linkCalls++
	block, entered := f.block, f.entered
	f.entered = nil
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	links, ok := f.tables[key.String()]
	if !ok {
		return nil, fmt.Errorf("no link table for %s", key)
	}
	return links, nil
}

func (f *fakeAPI) FetchPayload(_ context.Context, key dag.Key) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payloads[key.String()]
	if !ok {
		return nil, fmt.Errorf("no payload for %s", key)
	}
	return p, nil
}

func (f *fakeAPI) ReadFile(_ context.Context, key dag.Key) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileCalls++
	data, ok := f.files[key.String()]
	if !ok {
		return nil, fmt.Errorf("no file for %s", key)
	}
	return data, nil
}

func (f *fakeAPI) dir(key dag.Key, links ...dag.Link) {
	if links == nil {
		links = []dag.Link{}
	}
	f.tables[key.String()] = links
	f.payloads[key.String()] = unixfs.FolderPBData()
}

func (f *fakeAPI) file(key dag.Key, data []byte) {
	f.tables[key.String()] = []dag.Link{}
	f.payloads[key.String()] = unixfs.FilePBData(data, uint64(len(data)))
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linkCalls
}

type fakeHandle struct {
	mu          sync.Mutex
	api         ipfs.API
	setups      int
	invalidated []ipfs.API
}

func (h *fakeHandle) API() ipfs.API {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.api
}

func (h *fakeHandle) Setup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setups++
}

func (h *fakeHandle) Invalidate(stale ipfs.API) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidated = append(h.invalidated, stale)
	if h.api == stale {
		h.api = nil
	}
}

func (h *fakeHandle) setupCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setups
}

type fakeNames struct {
	mu    sync.Mutex
	keys  map[string]dag.Key
	err   error
	calls int
}

func (n *fakeNames) Resolve(_ context.Context, name string) (dag.Key, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	if n.err != nil {
		return dag.Key{}, n.err
	}
	k, ok := n.keys[name]
	if !ok {
		return dag.Key{}, errors.New("unexpected name " + name)
	}
	return k, nil
}

// countingWriter records how often the handler touched the response.
type countingWriter struct {
	*httptest.ResponseRecorder
	mu      sync.Mutex
	headers int
	writes  int
}

func newCountingWriter() *countingWriter {
	return &countingWriter{ResponseRecorder: httptest.NewRecorder()}
}

func (c *countingWriter) WriteHeader(code int) {
	c.mu.Lock()
	c.headers++
	c.mu.Unlock()
	c.ResponseRecorder.WriteHeader(code)
}

func (c *countingWriter) Write(b []byte) (int, error) {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.ResponseRecorder.Write(b)
}

func (c *countingWriter) touches() (headers, writes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers, c.writes
}

func newTestServer(t *testing.T, api ipfs.API, names NameResolver) (*Server, *fakeHandle) {
	t.Helper()
	h := &fakeHandle{api: api}
	if names == nil {
		names = &fakeNames{}
	}
	s, err := New(h, names)
	require.NoError(t, err)
	return s, h
}

func intake(s *Server, method, target string) *http.Request {
	q := url.Values{}
	q.Set("url", target)
	q.Set("nonce", s.state.Nonce)
	return httptest.NewRequest(method, "/?"+q.Encode(), nil)
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, intake(s, method, target))
	return rec
}
