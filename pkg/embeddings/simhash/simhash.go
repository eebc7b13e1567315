// Package simhash provides a deterministic, dependency-free embedder derived
// from a SHA-256 digest of the input text.
//
// The vectors carry no semantic signal — identical text maps to identical
// vectors, but similar text does not map to nearby vectors. It exists as the
// universal fallback so every backend can run without a model service;
// production deployments should plug in a model-backed Embedder.
package simhash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// DefaultDimensions matches the output length of common sentence-transformer
// models so a model-backed embedder can be swapped in without re-indexing
// configuration.
const DefaultDimensions = 384

// Embedder generates hash-derived embeddings of a fixed dimensionality.
type Embedder struct {
	dims int
}

// New creates an embedder. Non-positive dims falls back to
// DefaultDimensions.
func New(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Embed maps text to a vector with components in [-1, 1]. The function is
// pure: the same text always produces the same vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])

	// Eight hex characters per component gives 8 base components from the
	// 64-character digest.
	base := make([]float32, 0, len(digest)/8)
	for i := 0; i+8 <= len(digest); i += 8 {
		n, err := strconv.ParseUint(digest[i:i+8], 16, 64)
		if err != nil {
			return nil, err
		}
		base = append(base, float32(float64(n)/float64(1<<32-1)*2-1))
	}

	// Repeat the base pattern until the configured dimensionality is
	// reached.
	out := make([]float32, 0, e.dims)
	out = append(out, base...)
	for len(out) < e.dims {
		n := e.dims - len(out)
		if n > len(out) {
			n = len(out)
		}
		out = append(out, out[:n]...)
	}

	return out[:e.dims], nil
}

// Dimensions returns the configured output length.
func (e *Embedder) Dimensions() int {
	return e.dims
}

// Close is a no-op; the embedder holds no resources.
func (e *Embedder) Close() error {
	return nil
}
