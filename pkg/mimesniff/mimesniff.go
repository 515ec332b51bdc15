// Package mimesniff picks the Content-Type of a payload served by the gateway.
package mimesniff

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	octetStream = "application/octet-stream"
	plainText   = "text/plain"
)

// Classify prefers a signature match on payload and falls back to the
// extension of fallbackName. It never fails: anything unknown is text/plain.
func Classify(payload []byte, fallbackName string) string {
	if t, ok := Sniff(payload); ok {
		return t
	}
	return ByName(fallbackName)
}

// Sniff detects the type from leading bytes. Generic results, binary or
// plain text, are not reported as matches.
func Sniff(payload []byte) (string, bool) {
	if len(payload) == 0 {
		return "", false
	}
	m := mimetype.Detect(payload)
	if m.Is(octetStream) || m.Is(plainText) {
		return "", false
	}
	return m.String(), true
}

func ByName(name string) string {
	t := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if t == "" || strings.HasPrefix(t, octetStream) {
		return plainText
	}
	return t
}
