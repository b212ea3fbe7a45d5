// Package catalog serves the rendered products payload for a distribution
// context through a cache-aside layer with a negative cache.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoDataAvailable means there is nothing to render for the context. Callers
// cannot tell the cause apart: missing or malformed ids, a cached negative
// result, or a fresh render that found no products.
var ErrNoDataAvailable = errors.New("no products available")

// KeyPrefix starts every products cache key
const KeyPrefix = "products-json-"

// RenderContext identifies one distribution. Empty ids mean "not set".
type RenderContext struct {
	DistributorID string
	OrderCycleID  string
}

// Valid reports whether both ids are set and are positive decimal integers
// in canonical form (no sign, no leading zeros).
func (rc RenderContext) Valid() bool {
	return validID(rc.DistributorID) && validID(rc.OrderCycleID)
}

func validID(s string) bool {
	if s == "" || s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// CacheKey returns products-json-{distributor}-{order cycle}. Keys of valid
// contexts are unique per context since ids never contain the separator.
func (rc RenderContext) CacheKey() string {
	return fmt.Sprintf("%s%s-%s", KeyPrefix, rc.DistributorID, rc.OrderCycleID)
}

// Renderer computes the products payload. It returns an error wrapping
// ErrNoDataAvailable when the distribution has no products.
type Renderer interface {
	Render(ctx context.Context, rc RenderContext) ([]byte, error)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(ctx context.Context, rc RenderContext) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, rc RenderContext) ([]byte, error) {
	return f(ctx, rc)
}
