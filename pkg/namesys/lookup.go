package namesys

import (
	"fmt"
	"net"
	"strings"

	doh "github.com/libp2p/go-doh-resolver"
	"github.com/miekg/dns"
	madns "github.com/multiformats/go-multiaddr-dns"
)

// NewLookupTXT builds a TXT lookup that sends queries for each configured
// domain to its DNS-over-HTTPS endpoint. The key "." replaces the default
// resolver; every other key must be a fully qualified domain name.
func NewLookupTXT(resolvers map[string]string) (LookupTXTFunc, error) {
	if len(resolvers) == 0 {
		return net.DefaultResolver.LookupTXT, nil
	}

	opts := make([]madns.Option, 0, len(resolvers))
	for domain, url := range resolvers {
		if domain != "." && !dns.IsFqdn(domain) {
			return nil, fmt.Errorf("namesys: invalid domain %q; must be FQDN", domain)
		}
		if !strings.HasPrefix(url, "https://") {
			return nil, fmt.Errorf("namesys: resolver for %q must be an https:// URL, got %q", domain, url)
		}

		r, err := doh.NewResolver(url)
		if err != nil {
			return nil, fmt.Errorf("namesys: bad resolver for %s: %w", domain, err)
		}
		if domain == "." {
			opts = append(opts, madns.WithDefaultResolver(r))
		} else {
			opts = append(opts, madns.WithDomainResolver(domain, r))
		}
	}

	rslv, err := madns.NewResolver(opts...)
	if err != nil {
		return nil, err
	}
	return rslv.LookupTXT, nil
}
