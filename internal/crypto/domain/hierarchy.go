// Package domain defines the core cryptographic domain models for the secrets
// platform.
//
// It implements a two-tier key hierarchy: a root key held only in memory, and
// purpose-bound subkeys derived from it with HKDF-SHA256. Subkeys protect data
// at rest (KV payloads, transit key material, connection configuration, audit
// fields) so the root key itself never touches a cipher directly.
package domain

import (
	"crypto/sha256"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/usphq/usp/internal/errors"
)

// KeyHierarchy holds the in-memory root key and derives purpose-bound subkeys
// on demand. The root key is never persisted; it exists only between a
// successful unseal and the next Zeroize.
//
// Thread safety: all methods are safe for concurrent use. Derived subkeys are
// cached so repeated lookups after the first derivation take a read lock only.
type KeyHierarchy struct {
	mu        sync.RWMutex
	root      []byte
	subkeys   map[Purpose][]byte
	destroyed bool
}

// NewKeyHierarchy creates a hierarchy from a 32-byte root key. The root is
// copied, so the caller may (and should) zero its own buffer afterwards.
func NewKeyHierarchy(root []byte) (*KeyHierarchy, error) {
	if len(root) != KeySize {
		return nil, ErrInvalidKeySize
	}

	h := &KeyHierarchy{
		root:    make([]byte, KeySize),
		subkeys: make(map[Purpose][]byte),
	}
	copy(h.root, root)
	return h, nil
}

// Subkey returns the 32-byte subkey for the given purpose, deriving it with
// HKDF-SHA256 on first use. Derivation is deterministic: the same root and
// purpose always yield the same subkey, across restarts and processes.
//
// The returned slice is the cached key; callers must treat it as read-only and
// must not retain it past the hierarchy's lifetime.
func (h *KeyHierarchy) Subkey(purpose Purpose) ([]byte, error) {
	h.mu.RLock()
	if h.destroyed {
		h.mu.RUnlock()
		return nil, ErrHierarchyDestroyed
	}
	if key, ok := h.subkeys[purpose]; ok {
		h.mu.RUnlock()
		return key, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return nil, ErrHierarchyDestroyed
	}
	if key, ok := h.subkeys[purpose]; ok {
		return key, nil
	}

	reader := hkdf.New(sha256.New, h.root, nil, []byte(subkeyInfoPrefix+string(purpose)))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, errors.Wrap(err, "failed to derive subkey")
	}

	h.subkeys[purpose] = key
	return key, nil
}

// Checksum returns SHA-256 over the root key, a fingerprint for comparing
// hierarchies without exposing key material. Integrity of a recombined share
// set is established by the authenticated unwrap of the stored root key, not
// by this checksum.
func (h *KeyHierarchy) Checksum() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.destroyed {
		return nil, ErrHierarchyDestroyed
	}
	sum := sha256.Sum256(h.root)
	return sum[:], nil
}

// Zeroize overwrites the root key and every cached subkey, then marks the
// hierarchy destroyed. All subsequent Subkey calls fail with
// ErrHierarchyDestroyed. Zeroize is idempotent.
func (h *KeyHierarchy) Zeroize() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return
	}

	Zero(h.root)
	h.root = nil
	for purpose, key := range h.subkeys {
		Zero(key)
		delete(h.subkeys, purpose)
	}
	h.destroyed = true
}

// Destroyed reports whether Zeroize has been called.
func (h *KeyHierarchy) Destroyed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.destroyed
}
