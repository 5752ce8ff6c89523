// Package sha256 computes content hashes for page bodies.
package sha256

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements crawler.Hasher using SHA-256.
type Hasher struct {
	collapse bool
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithCollapsedWhitespace makes bodies that differ only in whitespace hash
// to the same digest. Runs of whitespace become a single space.
func WithCollapsedWhitespace() Option {
	return func(h *Hasher) { h.collapse = true }
}

// New returns a SHA-256 hasher.
func New(opts ...Option) *Hasher {
	h := &Hasher{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	if h.collapse {
		data = bytes.Join(bytes.Fields(data), []byte(" "))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
