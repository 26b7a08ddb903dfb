package prestotype

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// SignatureCache memoizes Parse by input text. It is safe for concurrent use.
// Failed parses are not cached.
type SignatureCache struct {
	maxDepth int
	entries  map[string]*Signature

	mu sync.RWMutex
}

// NewSignatureCache creates an empty cache whose parses use maxDepth as the
// nesting limit. A non-positive maxDepth selects DefaultMaxDepth.
func NewSignatureCache(maxDepth int) *SignatureCache {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &SignatureCache{
		maxDepth: maxDepth,
		entries:  make(map[string]*Signature),
	}
}

// Parse returns the cached signature for text, parsing it on first use.
// Every caller receives the same *Signature; it must not be modified.
func (c *SignatureCache) Parse(text string) (*Signature, error) {
	c.mu.RLock()
	sig, ok := c.entries[text]
	c.mu.RUnlock()
	if ok {
		return sig, nil
	}

	sig, err := parseSignature(text, c.maxDepth)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("signature", text).Msg("parsed type signature")

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[text]; ok {
		return existing, nil
	}
	c.entries[text] = sig
	return sig, nil
}

// Len returns the number of cached signatures.
func (c *SignatureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
