package gateway

import (
	"crypto/rand"
	"net/url"
	"time"

	"github.com/mr-tron/base58"
)

const (
	// Scheme is the custom URL scheme the host runtime forwards to the gateway.
	Scheme = "ipfs"

	// RequestTimeout bounds a request from acceptance to response.
	RequestTimeout = 30 * time.Second

	// NonceSize is the number of random bytes in the access nonce.
	NonceSize = 16
)

// State is created once at startup and never changes afterwards.
type State struct {
	ListenAddr string
	Nonce      string
}

func newNonce() (string, error) {
	b := make([]byte, NonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// IntakeURL is the listener URL the host runtime fetches for target, a
// full ipfs: URL.
func (s State) IntakeURL(target string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("nonce", s.Nonce)
	return (&url.URL{Scheme: "http", Host: s.ListenAddr, Path: "/", RawQuery: q.Encode()}).String()
}
