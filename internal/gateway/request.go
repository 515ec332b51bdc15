package gateway

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
)

// targetURL captures the folder key of an ipfs: URL; everything after it is
// the request path.
var targetURL = regexp.MustCompile(`^(?i:ipfs):(/[a-z]+/[0-9A-Za-z.-]+)`)

type request struct {
	rawURL    string
	folderKey string
	reqPath   string
	key       dag.Key
}

func parseRequest(raw string) (*request, error) {
	m := targetURL.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", errInvalidURL, raw)
	}

	key, err := dag.ParseKey(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidURL, err)
	}

	reqPath := raw[len(m[0]):]
	if i := strings.IndexAny(reqPath, "?#"); i >= 0 {
		reqPath = reqPath[:i]
	}
	if reqPath != "" && !strings.HasPrefix(reqPath, "/") {
		return nil, fmt.Errorf("%w: %q", errInvalidURL, raw)
	}

	return &request{
		rawURL:    raw,
		folderKey: m[1],
		reqPath:   reqPath,
		key:       key,
	}, nil
}

// needsNameResolution reports whether the key is a DNSLink name rather
// than a hash the daemon can resolve on its own.
func (r *request) needsNameResolution() bool {
	return r.key.Namespace == dag.NamespaceIPNS && !dag.IsContentHash(r.key.ID)
}

// lookupSegments splits reqPath and then decodes each segment, so an
// escaped "/" stays part of its name. Undecodable segments are used as is.
func (r *request) lookupSegments() []string {
	segments := dag.Segments(r.reqPath)
	for i, seg := range segments {
		if s, err := url.PathUnescape(seg); err == nil {
			segments[i] = s
		}
	}
	return segments
}

func (r *request) isDirectory() bool {
	return strings.HasSuffix(r.reqPath, "/")
}
