// Package stormglass implements the rotating-credential client for the
// StormGlass-style weather point API: a credential pool with a round-robin
// cursor, HTTP status classification, bounded transient retries, and
// reconciliation of multi-source readings into single scalars.
package stormglass

import (
	"fmt"

	"swellcast/internal/types"
)

// CredentialPool is an ordered set of opaque provider credentials with a
// mutable round-robin cursor. The cursor advances on every attempt, success
// or failure, and wraps modulo the pool size.
//
// The pool is deliberately not thread-safe: the acquisition pipeline is a
// single-threaded request loop, and concurrent forecast workers each own an
// independent pool. The starting cursor is injectable so rotation order is
// deterministic under test.
type CredentialPool struct {
	creds  []types.SecretString
	cursor int
}

// NewCredentialPool constructs a pool over the given credentials with the
// cursor positioned at startCursor (wrapped into range).
func NewCredentialPool(creds []types.SecretString, startCursor int) (*CredentialPool, error) {
	if len(creds) == 0 {
		return nil, fmt.Errorf("credential pool must contain at least one credential")
	}
	if startCursor < 0 {
		startCursor = 0
	}
	return &CredentialPool{
		creds:  creds,
		cursor: startCursor % len(creds),
	}, nil
}

// Size returns the number of credentials in the pool.
func (p *CredentialPool) Size() int {
	return len(p.creds)
}

// Cursor returns the current cursor position.
func (p *CredentialPool) Cursor() int {
	return p.cursor
}

// Current returns the credential at the cursor without advancing.
func (p *CredentialPool) Current() (int, types.SecretString) {
	return p.cursor, p.creds[p.cursor]
}

// Advance moves the cursor forward by exactly one, wrapping modulo the pool
// size. It is called once per attempt regardless of outcome, so load spreads
// evenly across credentials over time.
func (p *CredentialPool) Advance() {
	p.cursor = (p.cursor + 1) % len(p.creds)
}

// At returns the credential at index i. It panics if i is out of range, like
// a slice access would; callers bound i by Size().
func (p *CredentialPool) At(i int) types.SecretString {
	return p.creds[i]
}
