package dag

import (
	"fmt"

	"github.com/ipfs/boxo/ipld/unixfs"
)

// Node is either a Tree or a Leaf.
type Node interface {
	isNode()
}

// Tree marks a directory. Its entries live in the link table, not the payload.
type Tree struct{}

type LeafKind int

const (
	KindFile LeafKind = iota
	KindRaw
	KindSymlink
	KindMetadata
)

func (k LeafKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindRaw:
		return "raw"
	case KindSymlink:
		return "symlink"
	case KindMetadata:
		return "metadata"
	}
	return fmt.Sprintf("LeafKind(%d)", int(k))
}

// Leaf carries payload bytes. Chunked is set when the bytes held in the
// envelope are only a prefix and the body spans child blocks.
type Leaf struct {
	Kind    LeafKind
	Data    []byte
	Chunked bool
}

func (Tree) isNode() {}
func (Leaf) isNode() {}

// DecodeEnvelope decodes a UnixFS data envelope.
func DecodeEnvelope(raw []byte) (Node, error) {
	fsn, err := unixfs.FSNodeFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	switch fsn.Type() {
	case unixfs.TDirectory, unixfs.THAMTShard:
		return Tree{}, nil
	case unixfs.TFile, unixfs.TRaw:
		return Leaf{Kind: KindFile, Data: fsn.Data(), Chunked: fsn.NumChildren() > 0}, nil
	case unixfs.TSymlink:
		return Leaf{Kind: KindSymlink, Data: fsn.Data()}, nil
	default:
		return Leaf{Kind: KindMetadata, Data: fsn.Data()}, nil
	}
}

// DecodePayload turns the payload fetched for key into a Node. Raw-codec
// blocks are leaves as they are; everything else goes through DecodeEnvelope.
func DecodePayload(key Key, payload []byte) (Node, error) {
	if key.IsRaw() {
		return Leaf{Kind: KindRaw, Data: payload}, nil
	}
	return DecodeEnvelope(payload)
}
