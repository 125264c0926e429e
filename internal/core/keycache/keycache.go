// Package keycache is the Key Cache (C4): maps AES-128 key URIs to raw key
// bytes, fetching lazily and coalescing concurrent misses for the same URI
// via singleflight so exactly one GET is issued per key per job.
package keycache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
	"github.com/streamvault/hlsfetch/internal/core/httpclient"
)

const keySize = 16

// Cache is a content-addressed store of raw AES-128 key bytes, shared
// across segment workers for the lifetime of one job.
type Cache struct {
	client  *httpclient.Client
	headers map[string]string

	mu    sync.RWMutex
	cache map[string][]byte

	flight singleflight.Group
}

// New builds a Cache that fetches misses through client using the given
// header set (the same headers applied to segment fetches).
func New(client *httpclient.Client, headers map[string]string) *Cache {
	return &Cache{
		client:  client,
		headers: headers,
		cache:   make(map[string][]byte),
	}
}

// Get returns the 16-byte key for keyURI, fetching it on first demand.
// Concurrent Get calls for the same keyURI coalesce into a single HTTP GET.
func (c *Cache) Get(ctx context.Context, keyURI string) ([]byte, error) {
	c.mu.RLock()
	if key, ok := c.cache[keyURI]; ok {
		c.mu.RUnlock()
		return key, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.flight.Do(keyURI, func() (any, error) {
		c.mu.RLock()
		if key, ok := c.cache[keyURI]; ok {
			c.mu.RUnlock()
			return key, nil
		}
		c.mu.RUnlock()

		body, err := c.client.GetBytes(ctx, keyURI, c.headers, nil)
		if err != nil {
			return nil, hlserr.NewKeyError(keyURI, err)
		}
		if len(body) != keySize {
			return nil, hlserr.NewKeyError(keyURI, hlserr.NewParseError(0, "key %s is %d bytes, want %d", keyURI, len(body), keySize))
		}

		c.mu.Lock()
		c.cache[keyURI] = body
		c.mu.Unlock()

		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
