package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

const (
	// NamespaceIPFS addresses immutable content by hash.
	NamespaceIPFS = "ipfs"
	// NamespaceIPNS addresses a mutable name, a DNSLink domain or a key hash.
	NamespaceIPNS = "ipns"
)

var ErrInvalidKey = errors.New("dag: invalid key")

// Key addresses a node of the DAG. Path is either empty or starts with "/".
type Key struct {
	Namespace string
	ID        string
	Path      string
}

// ParseKey parses "/<namespace>/<id>[/<path>]". A trailing "/" on the
// path is dropped.
func ParseKey(p string) (Key, error) {
	parts := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 3)
	if len(parts) < 2 || parts[1] == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, p)
	}

	k := Key{Namespace: parts[0], ID: parts[1]}
	switch k.Namespace {
	case NamespaceIPFS:
		if !IsContentHash(k.ID) {
			return Key{}, fmt.Errorf("%w: %q is not a content hash", ErrInvalidKey, k.ID)
		}
	case NamespaceIPNS:
	default:
		return Key{}, fmt.Errorf("%w: unknown namespace %q", ErrInvalidKey, k.Namespace)
	}

	if len(parts) == 3 {
		if rest := strings.TrimSuffix(parts[2], "/"); rest != "" {
			k.Path = "/" + rest
		}
	}
	return k, nil
}

// FromCid returns the immutable key of c.
func FromCid(c cid.Cid) Key {
	return Key{Namespace: NamespaceIPFS, ID: c.String()}
}

func (k Key) String() string {
	return "/" + k.Namespace + "/" + k.ID + k.Path
}

// Immutable reports whether the object graph below k can never change.
func (k Key) Immutable() bool {
	return k.Namespace == NamespaceIPFS
}

// IsRaw reports whether k points straight at a raw-codec block, which
// carries bare bytes instead of a UnixFS envelope.
func (k Key) IsRaw() bool {
	if k.Namespace != NamespaceIPFS || k.Path != "" {
		return false
	}
	c, err := cid.Decode(k.ID)
	if err != nil {
		return false
	}
	return c.Prefix().Codec == cid.Raw
}

// IsContentHash reports whether id decodes as a CID or a base58 multihash.
func IsContentHash(id string) bool {
	if _, err := cid.Decode(id); err == nil {
		return true
	}
	_, err := mh.FromB58String(id)
	return err == nil
}
