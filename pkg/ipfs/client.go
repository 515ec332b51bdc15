package ipfs

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/dgraph-io/ristretto"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/monitor"
)

const (
	MB                         int64 = 1024 * 1024
	defaultHotCacheSize        int64 = 64  // unit:MB
	defaultHotCacheNumCounters int64 = 1e6 // ~10x the expected number of cached items
	linkEntryOverhead          int64 = 64
)

// API is the slice of the daemon HTTP API the gateway reads through.
type API interface {
	FetchLinks(ctx context.Context, key dag.Key) ([]dag.Link, error)
	FetchPayload(ctx context.Context, key dag.Key) ([]byte, error)
	ReadFile(ctx context.Context, key dag.Key) ([]byte, error)
}

// Client talks to one daemon endpoint. Results for immutable keys are kept
// in a ristretto cache when one is configured.
type Client struct {
	endpoint    string
	remoteShell *shell.Shell
	cache       *ristretto.Cache
	// ownsCache is false when the cache is shared with other clients.
	ownsCache bool
}

var _ API = (*Client)(nil)

// NewClient connects to endpoint, an http URL or a multiaddr. A
// hotCacheSize of zero or less disables the cache.
func NewClient(endpoint string, hotCacheSize int64) (*Client, error) {
	cache, err := newCache(hotCacheSize)
	if err != nil {
		return nil, err
	}
	c := newSharedClient(endpoint, cache)
	c.ownsCache = cache != nil
	return c, nil
}

// newSharedClient uses cache without taking ownership; Close leaves it open.
func newSharedClient(endpoint string, cache *ristretto.Cache) *Client {
	return &Client{
		endpoint:    endpoint,
		remoteShell: shell.NewShell(endpoint),
		cache:       cache,
	}
}

func newCache(hotCacheSize int64) (*ristretto.Cache, error) {
	if hotCacheSize <= 0 {
		return nil, nil
	}
	return ristretto.NewCache(&ristretto.Config{
		MaxCost:     hotCacheSize * MB,
		NumCounters: defaultHotCacheNumCounters,
		BufferItems: 64,
		Metrics:     true,
		Cost:        cost,
	})
}

func cost(value any) int64 {
	switch v := value.(type) {
	case []byte:
		return int64(len(v))
	case []dag.Link:
		n := int64(0)
		for _, l := range v {
			n += int64(len(l.Name)+len(l.Target.ID)) + linkEntryOverhead
		}
		return n
	}
	return 1
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// dagNode is the dag-json rendering of a dag-pb node.
type dagNode struct {
	Data  *dagBytes `json:"Data"`
	Links []struct {
		Hash  cidLink `json:"Hash"`
		Name  string  `json:"Name"`
		Tsize uint64  `json:"Tsize"`
	} `json:"Links"`
}

type cidLink struct {
	Target string `json:"/"`
}

type dagBytes struct {
	Slash struct {
		Bytes string `json:"bytes"`
	} `json:"/"`
}

func (c *Client) getNode(ctx context.Context, key dag.Key) (*dagNode, error) {
	var n dagNode
	err := c.remoteShell.Request("dag/get", key.String()).
		Option("output-codec", "dag-json").
		Exec(ctx, &n)
	if err != nil {
		return nil, fmt.Errorf("ipfs: dag/get %s: %w", key, err)
	}
	return &n, nil
}

func (c *Client) FetchLinks(ctx context.Context, key dag.Key) ([]dag.Link, error) {
	cacheKey := "links:" + key.String()
	if v, ok := c.cached(key, cacheKey); ok {
		return v.([]dag.Link), nil
	}

	monitor.LinkFetches.Inc()
	logrus.WithField("key", key.String()).Debug("fetching link table")
	n, err := c.getNode(ctx, key)
	if err != nil {
		return nil, err
	}

	links := make([]dag.Link, 0, len(n.Links))
	for _, l := range n.Links {
		links = append(links, dag.Link{
			Name:   l.Name,
			Target: dag.Key{Namespace: dag.NamespaceIPFS, ID: l.Hash.Target},
			Size:   l.Tsize,
		})
	}
	c.store(key, cacheKey, links)
	return links, nil
}

// FetchPayload returns the UnixFS envelope of key, or the block itself for
// raw-codec keys.
func (c *Client) FetchPayload(ctx context.Context, key dag.Key) ([]byte, error) {
	cacheKey := "payload:" + key.String()
	if v, ok := c.cached(key, cacheKey); ok {
		return v.([]byte), nil
	}

	logrus.WithField("key", key.String()).Debug("fetching payload")
	var (
		data []byte
		err  error
	)
	if key.IsRaw() {
		data, err = c.readAll(ctx, "block/get", key)
	} else {
		data, err = c.envelope(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	c.store(key, cacheKey, data)
	return data, nil
}

func (c *Client) envelope(ctx context.Context, key dag.Key) ([]byte, error) {
	n, err := c.getNode(ctx, key)
	if err != nil {
		return nil, err
	}
	if n.Data == nil {
		return nil, fmt.Errorf("ipfs: %s: %w", key, dag.ErrBadEnvelope)
	}
	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(n.Data.Slash.Bytes, "="))
	if err != nil {
		return nil, fmt.Errorf("ipfs: %s: %w: %v", key, dag.ErrBadEnvelope, err)
	}
	return data, nil
}

// ReadFile returns the whole body of the file at key, following child blocks.
func (c *Client) ReadFile(ctx context.Context, key dag.Key) ([]byte, error) {
	cacheKey := "file:" + key.String()
	if v, ok := c.cached(key, cacheKey); ok {
		return v.([]byte), nil
	}

	logrus.WithField("key", key.String()).Debug("reading file")
	data, err := c.readAll(ctx, "cat", key)
	if err != nil {
		return nil, err
	}
	c.store(key, cacheKey, data)
	return data, nil
}

func (c *Client) readAll(ctx context.Context, cmd string, key dag.Key) ([]byte, error) {
	resp, err := c.remoteShell.Request(cmd, key.String()).Send(ctx)
	if err != nil {
		return nil, fmt.Errorf("ipfs: %s %s: %w", cmd, key, err)
	}
	defer resp.Close()
	if resp.Error != nil {
		return nil, fmt.Errorf("ipfs: %s %s: %w", cmd, key, resp.Error)
	}

	data, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("ipfs: %s %s: %w", cmd, key, err)
	}
	return data, nil
}

// Version asks the daemon for its version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v struct {
		Version string
		Commit  string
	}
	if err := c.remoteShell.Request("version").Exec(ctx, &v); err != nil {
		return "", fmt.Errorf("ipfs: version: %w", err)
	}
	if v.Commit != "" {
		return v.Version + "-" + v.Commit, nil
	}
	return v.Version, nil
}

func (c *Client) cached(key dag.Key, cacheKey string) (any, bool) {
	if c.cache == nil || !key.Immutable() {
		return nil, false
	}
	return c.cache.Get(cacheKey)
}

func (c *Client) store(key dag.Key, cacheKey string, value any) {
	if c.cache == nil || !key.Immutable() {
		return
	}
	c.cache.Set(cacheKey, value, 0)
}

// CacheMetrics returns the cache metrics, nil when caching is off.
func (c *Client) CacheMetrics() *ristretto.Metrics {
	if c.cache == nil {
		return nil
	}
	return c.cache.Metrics
}

func (c *Client) Metrics() (tit string, metrics []map[string]any) {
	tit = "gateway cache"
	m := c.CacheMetrics()
	if m == nil {
		return
	}
	costAdd := m.CostAdded()
	costEvicted := m.CostEvicted()
	metrics = []map[string]any{
		{"used_cost": costAdd - costEvicted},
		{"hits": m.Hits()},
		{"misses": m.Misses()},
		{"ratio": fmt.Sprintf("%.2f", m.Ratio())},
		{"keys_added": m.KeysAdded()},
		{"keys_evicted": m.KeysEvicted()},
	}
	return
}

func (c *Client) Close() {
	if c.ownsCache {
		c.cache.Close()
	}
}
