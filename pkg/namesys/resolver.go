// Package namesys resolves DNSLink names to content keys.
package namesys

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Gateway/pkg/dag"
)

// LookupTXTFunc returns the TXT record values of name.
type LookupTXTFunc func(ctx context.Context, name string) ([]string, error)

var (
	ErrNotFound     = errors.New("namesys: name not found")
	ErrLookupFailed = errors.New("namesys: lookup failed")
)

// dnslinkSubdomain is queried before the bare name.
const dnslinkSubdomain = "_dnslink."

var dnslinkEntry = regexp.MustCompile(`^dnslink=(/ip[nf]s/.+)`)

type Resolver struct {
	lookupTXT LookupTXTFunc
}

func NewResolver(lookup LookupTXTFunc) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver.LookupTXT
	}
	return &Resolver{lookupTXT: lookup}
}

// Resolve maps a DNSLink name to the key named by its first dnslink record.
// The _dnslink subdomain is consulted first and the name itself second.
// Lookups are never retried.
func (r *Resolver) Resolve(ctx context.Context, name string) (dag.Key, error) {
	name = strings.TrimSuffix(name, "/")
	if _, ok := dns.IsDomainName(name); !ok || name == "" {
		return dag.Key{}, fmt.Errorf("%w: %q is not a domain name", ErrNotFound, name)
	}

	key, err := r.resolveOnce(ctx, dnslinkSubdomain+name)
	if errors.Is(err, ErrNotFound) {
		key, err = r.resolveOnce(ctx, name)
	}
	if err != nil {
		return dag.Key{}, err
	}

	logrus.WithFields(logrus.Fields{"name": name, "key": key.String()}).Debug("dnslink resolved")
	return key, nil
}

func (r *Resolver) resolveOnce(ctx context.Context, name string) (dag.Key, error) {
	logrus.WithField("name", name).Debug("dnslink TXT lookup")

	txt, err := r.lookupTXT(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return dag.Key{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return dag.Key{}, fmt.Errorf("%w: %s: %w", ErrLookupFailed, name, err)
	}

	for _, record := range txt {
		m := dnslinkEntry.FindStringSubmatch(record)
		if m == nil {
			continue
		}
		key, err := dag.ParseKey(m[1])
		if err != nil {
			logrus.WithField("record", record).Debugf("ignoring dnslink record: %v", err)
			continue
		}
		return key, nil
	}
	return dag.Key{}, fmt.Errorf("%w: no dnslink record for %s", ErrNotFound, name)
}
