package dag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/ipfs/boxo/ipld/unixfs"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T, seed string) Key {
	t.Helper()
	sum, err := mh.Sum([]byte(seed), mh.SHA2_256, -1)
	require.NoError(t, err)
	return FromCid(cid.NewCidV1(cid.DagProtobuf, sum))
}

type countingFetcher struct {
	tables map[string][]Link
	calls  int
	err    error
}

func (f *countingFetcher) FetchLinks(_ context.Context, key Key) ([]Link, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	links, ok := f.tables[key.String()]
	if !ok {
		return []Link{}, nil
	}
	return links, nil
}

// root/{index.html, docs/{index.html, guide/{intro.md}}}
func sampleTree(t *testing.T) (Key, *countingFetcher) {
	root := testKey(t, "root")
	docs := testKey(t, "docs")
	guide := testKey(t, "guide")

	f := &countingFetcher{tables: map[string][]Link{
		root.String(): {
			{Name: "index.html", Target: testKey(t, "root-index"), Size: 12},
			{Name: "docs", Target: docs, Size: 300},
		},
		docs.String(): {
			{Name: "guide", Target: guide, Size: 200},
			{Name: "index.html", Target: testKey(t, "docs-index"), Size: 40},
		},
		guide.String(): {
			{Name: "intro.md", Target: testKey(t, "intro"), Size: 99},
		},
	}}
	return root, f
}

func TestParseKey(t *testing.T) {
	hash := testKey(t, "x").ID

	tests := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{in: "/ipfs/" + hash, want: Key{Namespace: NamespaceIPFS, ID: hash}},
		{in: "/ipfs/" + hash + "/a/b/", want: Key{Namespace: NamespaceIPFS, ID: hash, Path: "/a/b"}},
		{in: "/ipns/docs.ipfs.tech", want: Key{Namespace: NamespaceIPNS, ID: "docs.ipfs.tech"}},
		{in: "/ipns/example.com/", want: Key{Namespace: NamespaceIPNS, ID: "example.com"}},
		{in: "/ipfs/not-a-hash", wantErr: true},
		{in: "/ipld/" + hash, wantErr: true},
		{in: "/ipfs/", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyString(t *testing.T) {
	k := Key{Namespace: NamespaceIPNS, ID: "example.com", Path: "/blog"}
	assert.Equal(t, "/ipns/example.com/blog", k.String())
	assert.False(t, k.Immutable())
	assert.True(t, testKey(t, "y").Immutable())
}

func TestIsContentHash(t *testing.T) {
	assert.True(t, IsContentHash("QmPZ9gcCEpqKTo6aq61g2nXGUhM4iCL3ewB6LDXZCtioEB"))
	assert.True(t, IsContentHash(testKey(t, "z").ID))
	assert.False(t, IsContentHash("example.com"))
	assert.False(t, IsContentHash("en.wikipedia-on-ipfs.org"))
}

func TestIsRaw(t *testing.T) {
	sum, err := mh.Sum([]byte("raw"), mh.SHA2_256, -1)
	require.NoError(t, err)

	assert.True(t, FromCid(cid.NewCidV1(cid.Raw, sum)).IsRaw())
	assert.False(t, FromCid(cid.NewCidV1(cid.DagProtobuf, sum)).IsRaw())
	assert.False(t, Key{Namespace: NamespaceIPNS, ID: "example.com"}.IsRaw())
}

func TestDescendFetchCount(t *testing.T) {
	root, f := sampleTree(t)

	link, err := Descend(context.Background(), f, root, "/docs/guide/intro.md")
	require.NoError(t, err)
	assert.Equal(t, "intro.md", link.Name)
	assert.Equal(t, testKey(t, "intro"), link.Target)
	assert.Equal(t, 3, f.calls)

	again, err := Descend(context.Background(), f, root, "/docs/guide/intro.md")
	require.NoError(t, err)
	assert.Equal(t, link, again)
	assert.Equal(t, 6, f.calls)
}

func TestDescendDefaultIndex(t *testing.T) {
	tests := []struct {
		path   string
		target Key
		calls  int
	}{
		{path: "/", target: testKey(t, "root-index"), calls: 1},
		{path: "", target: testKey(t, "root-index"), calls: 1},
		{path: "/docs/", target: testKey(t, "docs-index"), calls: 2},
		{path: "/index.html", target: testKey(t, "root-index"), calls: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("path=%q", tt.path), func(t *testing.T) {
			root, f := sampleTree(t)
			link, err := Descend(context.Background(), f, root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, DefaultIndex, link.Name)
			assert.Equal(t, tt.target, link.Target)
			assert.Equal(t, tt.calls, f.calls)
		})
	}
}

func TestDescendNotFound(t *testing.T) {
	root, f := sampleTree(t)

	_, err := Descend(context.Background(), f, root, "/docs/missing/deeper.txt")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Segment)
	assert.Equal(t, 1, nf.Depth)
	assert.Len(t, nf.Links, 2)
	assert.Equal(t, 2, f.calls)

	// names compare exactly
	_, err = Descend(context.Background(), f, root, "/DOCS/index.html")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 0, nf.Depth)
	assert.Equal(t, "DOCS", nf.Segment)
}

func TestDescendSegments(t *testing.T) {
	root, f := sampleTree(t)
	odd := testKey(t, "odd")
	f.tables[root.String()] = append(f.tables[root.String()], Link{Name: "a/b.txt", Target: odd})

	link, err := DescendSegments(context.Background(), f, root, []string{"a/b.txt"})
	require.NoError(t, err)
	assert.Equal(t, odd, link.Target)

	link, err = DescendSegments(context.Background(), f, root, nil)
	require.NoError(t, err)
	assert.Equal(t, "index.html", link.Name)
}

func TestDescendMissingIndexKeepsTable(t *testing.T) {
	root, f := sampleTree(t)

	_, err := Descend(context.Background(), f, root, "/docs/guide/")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, DefaultIndex, nf.Segment)
	assert.Equal(t, 2, nf.Depth)
	require.Len(t, nf.Links, 1)
	assert.Equal(t, "intro.md", nf.Links[0].Name)
}

func TestDescendFetchError(t *testing.T) {
	root := testKey(t, "root")

	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	f := &countingFetcher{err: fmt.Errorf("post: %w", refused)}
	_, err := Descend(context.Background(), f, root, "/a")

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.ConnectionLost)
	assert.Equal(t, root, fe.Key)
	assert.True(t, IsConnectionLost(err))

	f = &countingFetcher{err: errors.New("merkledag: not found")}
	_, err = Descend(context.Background(), f, root, "/a")
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.ConnectionLost)
	assert.False(t, IsConnectionLost(err))
}

func TestDescendCancelled(t *testing.T) {
	root, f := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Descend(ctx, f, root, "/docs")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.calls)
}

func TestDecodeEnvelope(t *testing.T) {
	node, err := DecodeEnvelope(unixfs.FolderPBData())
	require.NoError(t, err)
	assert.Equal(t, Tree{}, node)

	shard, err := unixfs.NewFSNode(unixfs.THAMTShard).GetBytes()
	require.NoError(t, err)
	node, err = DecodeEnvelope(shard)
	require.NoError(t, err)
	assert.Equal(t, Tree{}, node)

	node, err = DecodeEnvelope(unixfs.FilePBData([]byte("hello"), 5))
	require.NoError(t, err)
	leaf, ok := node.(Leaf)
	require.True(t, ok)
	assert.Equal(t, KindFile, leaf.Kind)
	assert.Equal(t, []byte("hello"), leaf.Data)
	assert.False(t, leaf.Chunked)

	chunked := unixfs.NewFSNode(unixfs.TFile)
	chunked.AddBlockSize(262144)
	chunked.AddBlockSize(1024)
	raw, err := chunked.GetBytes()
	require.NoError(t, err)
	node, err = DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.True(t, node.(Leaf).Chunked)

	raw, err = unixfs.SymlinkData("../target")
	require.NoError(t, err)
	node, err = DecodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, KindSymlink, node.(Leaf).Kind)

	_, err = DecodeEnvelope([]byte{0xff, 0xff, 0xff})
	assert.ErrorIs(t, err, ErrBadEnvelope)
}

func TestDecodePayloadRaw(t *testing.T) {
	sum, err := mh.Sum([]byte("raw"), mh.SHA2_256, -1)
	require.NoError(t, err)

	node, err := DecodePayload(FromCid(cid.NewCidV1(cid.Raw, sum)), []byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, Leaf{Kind: KindRaw, Data: []byte("raw")}, node)
}
