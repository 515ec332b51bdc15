package ipfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/ristretto"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/monitor"
	"github.com/IceFireDB/IceFireDB-Gateway/utils"
)

const (
	DefaultEndpoint     = "/ip4/127.0.0.1/tcp/5001"
	defaultSetupRetries = 3
	setupTimeout        = 30 * time.Second
	apiFile             = "api"
)

/*
	ipfs:
		endpoint: ""          # http URL or multiaddr, empty reads $IPFS_PATH/api
		repo_path: ""         # defaults to $IPFS_PATH, then ~/.ipfs
		setup_retries: 3
*/

type Config struct {
	Endpoint     string `mapstructure:"endpoint"`
	RepoPath     string `mapstructure:"repo_path"`
	SetupRetries uint64 `mapstructure:"setup_retries"`
	HotCacheSize int64  `mapstructure:"-"`
}

var DefaultConfig = Config{
	SetupRetries: defaultSetupRetries,
	HotCacheSize: defaultHotCacheSize,
}

// Daemon holds the current connection to the backing daemon. The handle is
// replaced wholesale: Setup installs a fresh Client, Invalidate drops it.
// Every Client shares the daemon's cache, which only Close shuts down, so a
// dropped handle still in use by a request keeps a working cache.
type Daemon struct {
	conf       Config
	api        atomic.Pointer[Client]
	attempting atomic.Bool

	cacheOnce sync.Once
	cache     *ristretto.Cache
	cacheErr  error
}

func NewDaemon(conf Config) *Daemon {
	return &Daemon{conf: conf}
}

// API returns the live handle, or nil when the daemon is not ready.
func (d *Daemon) API() API {
	c := d.api.Load()
	if c == nil {
		return nil
	}
	return c
}

// Setup connects in the background. Calls made while an attempt is running
// return immediately.
func (d *Daemon) Setup() {
	if !d.attempting.CompareAndSwap(false, true) {
		return
	}
	utils.GoWithRecover(func() {
		defer d.attempting.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		if err := d.SetupSync(ctx); err != nil {
			logrus.Warnf("[IPFS] setup failed: %v", err)
		}
	}, nil)
}

// SetupSync connects, checks the daemon answers and installs the handle.
func (d *Daemon) SetupSync(ctx context.Context) error {
	endpoint, err := d.Endpoint()
	if err != nil {
		monitor.SetupAttempts.WithLabelValues("error").Inc()
		return err
	}

	cache, err := d.sharedCache()
	if err != nil {
		monitor.SetupAttempts.WithLabelValues("error").Inc()
		return err
	}
	client := newSharedClient(endpoint, cache)

	var version string
	op := func() error {
		v, err := client.Version(ctx)
		if err != nil {
			logrus.Debugf("[IPFS] daemon at %s not answering: %v", endpoint, err)
			return err
		}
		version = v
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.conf.SetupRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		client.Close()
		monitor.SetupAttempts.WithLabelValues("error").Inc()
		return fmt.Errorf("ipfs: daemon not reachable at %s: %w", endpoint, err)
	}

	logrus.Infof("[IPFS] connected to %s, using IPFS version %s", endpoint, version)
	monitor.SetupAttempts.WithLabelValues("ok").Inc()
	if old := d.api.Swap(client); old != nil {
		old.Close()
	}
	return nil
}

// Invalidate drops stale if it is still the live handle. A handle installed
// by a newer Setup is left alone.
func (d *Daemon) Invalidate(stale API) {
	c, ok := stale.(*Client)
	if !ok || c == nil {
		return
	}
	if d.api.CompareAndSwap(c, nil) {
		logrus.Warnf("[IPFS] lost connection to %s", c.Endpoint())
		c.Close()
	}
}

func (d *Daemon) sharedCache() (*ristretto.Cache, error) {
	d.cacheOnce.Do(func() {
		d.cache, d.cacheErr = newCache(d.conf.HotCacheSize)
	})
	return d.cache, d.cacheErr
}

func (d *Daemon) Close() {
	if c := d.api.Swap(nil); c != nil {
		tit, metrics := c.Metrics()
		logrus.Debugf("[IPFS] closing %s, %s: %v", c.Endpoint(), tit, metrics)
		c.Close()
	}
	d.cacheOnce.Do(func() {})
	if d.cache != nil {
		d.cache.Close()
	}
}

// CacheMetrics reports the shared cache through the live handle, nil when
// the daemon is not ready or caching is off.
func (d *Daemon) CacheMetrics() *ristretto.Metrics {
	c := d.api.Load()
	if c == nil {
		return nil
	}
	return c.CacheMetrics()
}

// Endpoint returns the API address to dial, as an http URL. The configured
// endpoint wins, then the repo's api file, then DefaultEndpoint.
func (d *Daemon) Endpoint() (string, error) {
	if d.conf.Endpoint != "" {
		return normalizeEndpoint(d.conf.Endpoint)
	}

	if p := filepath.Join(d.repoPath(), apiFile); utils.IsFileExist(p) {
		b, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("ipfs: read %s: %w", p, err)
		}
		return normalizeEndpoint(strings.TrimSpace(string(b)))
	}
	return normalizeEndpoint(DefaultEndpoint)
}

func (d *Daemon) repoPath() string {
	if d.conf.RepoPath != "" {
		return d.conf.RepoPath
	}
	if p := os.Getenv("IPFS_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ipfs"
	}
	return filepath.Join(home, ".ipfs")
}

func normalizeEndpoint(endpoint string) (string, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint, nil
	}
	addr, err := ma.NewMultiaddr(endpoint)
	if err != nil {
		return "", fmt.Errorf("ipfs: bad endpoint %q: %w", endpoint, err)
	}
	_, host, err := manet.DialArgs(addr)
	if err != nil {
		return "", fmt.Errorf("ipfs: bad endpoint %q: %w", endpoint, err)
	}
	return "http://" + host, nil
}
