package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/namesys"
)

func TestParseRequest(t *testing.T) {
	root := cidKey(t, "root")

	tests := []struct {
		raw       string
		folderKey string
		reqPath   string
		resolve   bool
	}{
		{raw: "ipfs:" + root.String(), folderKey: root.String(), reqPath: ""},
		{raw: "ipfs:" + root.String() + "/", folderKey: root.String(), reqPath: "/"},
		{raw: "IPFS:" + root.String() + "/a/b.txt", folderKey: root.String(), reqPath: "/a/b.txt"},
		{raw: "ipfs:" + root.String() + "/a.txt?x=1", folderKey: root.String(), reqPath: "/a.txt"},
		{raw: "ipfs:" + root.String() + "/docs/#intro", folderKey: root.String(), reqPath: "/docs/"},
		{raw: "ipfs:/ipns/en.wikipedia-on-ipfs.org/wiki/", folderKey: "/ipns/en.wikipedia-on-ipfs.org", reqPath: "/wiki/", resolve: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			req, err := parseRequest(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.folderKey, req.folderKey)
			assert.Equal(t, tt.reqPath, req.reqPath)
			assert.Equal(t, tt.resolve, req.needsNameResolution())
		})
	}
}

func TestParseRequestRejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"ipfs:",
		"ipfs:/",
		"ipfs://ipfs/x",
		"ipns:/ipns/example.com/",
		"ipfs:/IPFS/" + cidKey(t, "x").ID,
		"ipfs:/ipns/exa_mple.com/",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := parseRequest(raw)
			assert.ErrorIs(t, err, errInvalidURL)
		})
	}
}

func TestRequestLookupPath(t *testing.T) {
	req, err := parseRequest("ipfs:" + cidKey(t, "root").String() + "/my%20notes/a%2Bb.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"my notes", "a+b.txt"}, req.lookupSegments())
	assert.Equal(t, "/my%20notes/a%2Bb.txt", req.reqPath)

	req.reqPath = "/a%2Fb.txt"
	assert.Equal(t, []string{"a/b.txt"}, req.lookupSegments())

	req.reqPath = "/docs/"
	assert.Equal(t, []string{"docs", ""}, req.lookupSegments())

	req.reqPath = "/bad%zz"
	assert.Equal(t, []string{"bad%zz"}, req.lookupSegments())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
		text string
	}{
		{err: errInvalidURL, code: http.StatusNotFound, text: textInvalidURL},
		{err: fmt.Errorf("%w: %w", errInvalidURL, dag.ErrInvalidKey), code: http.StatusNotFound, text: textInvalidURL},
		{err: ErrNotReady, code: http.StatusInternalServerError, text: textDaemonNotFound},
		{err: &dag.NotFoundError{Segment: "x"}, code: http.StatusNotFound, text: textFileNotFound},
		{err: fmt.Errorf("%w: a.example", namesys.ErrNotFound), code: http.StatusNotFound, text: textNameNotFound},
		{err: fmt.Errorf("%w: a.example", namesys.ErrLookupFailed), code: http.StatusInternalServerError, text: textFailed},
		{err: dag.NewFetchError(dag.Key{}, errors.New("boom")), code: http.StatusInternalServerError, text: textFailed},
		{err: dag.ErrBadEnvelope, code: http.StatusInternalServerError, text: textFailed},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, text := statusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.text, text)
		})
	}
}
