// Package storage persists captured pages.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

type Storage interface {
	// Put stores data under key and returns its location.
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// Key derives a stable storage key for a captured page from its URL.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	host := "page"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ReplaceAll(u.Hostname(), ":", "_")
	}
	return host + "-" + hex.EncodeToString(sum[:])[:16] + ".html"
}
