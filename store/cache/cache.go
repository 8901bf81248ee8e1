// Package cache is a keyed entity/listing cache sitting in front of the
// metadata store, with LZ4-compressed values and pattern-based
// invalidation on writes (directory listings, library listings). There
// is no direct analogue in the teacher repo's cluster runners (AIStore
// caches LOMs on local disk, not serialized blobs in memory); grounded
// instead on ext/dsort/shard/tarlz4.go for the lz4.NewWriter/NewReader
// idiom, generalized from a tar-stream compressor to an in-process
// byte-blob cache.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cache

import (
	"bytes"
	"io"
	"path"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pierrec/lz4/v3"
)

type entry struct {
	compressed []byte
	expiresAt  time.Time
}

// Cache is a single process-local map guarded by one RWMutex; entries
// carry their own TTL so a background sweep can drop anything stale
// without tracking a separate expiry index.
type Cache struct {
	mu     sync.RWMutex
	data   map[string]entry
	prefix string
	ttl    time.Duration
}

func New(prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{data: make(map[string]entry), prefix: prefix, ttl: ttl}
}

func (c *Cache) key(k string) string { return path.Join(c.prefix, k) }

// Set marshals v to JSON, compresses it with lz4, and stores it under
// key with the cache's default TTL.
func (c *Cache) Set(key string, v interface{}) error {
	raw, err := jsoniter.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	c.mu.Lock()
	c.data[c.key(key)] = entry{compressed: buf.Bytes(), expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Get decompresses and unmarshals the cached value into out. Returns
// false if the key is absent or has expired.
func (c *Cache) Get(key string, out interface{}) (bool, error) {
	c.mu.RLock()
	e, ok := c.data[c.key(key)]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return false, nil
	}
	zr := lz4.NewReader(bytes.NewReader(e.compressed))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return false, err
	}
	if err := jsoniter.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.data, c.key(key))
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix — the
// mechanism directory/file writes use to invalidate a stale listing
// cached under "library:{id}:listing:{directory_id}".
func (c *Cache) InvalidatePrefix(prefix string) {
	full := c.key(prefix)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if len(k) >= len(full) && k[:len(full)] == full {
			delete(c.data, k)
		}
	}
}

// Sweep removes every expired entry; intended to run on a ticker
// alongside the upload registry's own GC pass.
func (c *Cache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
}
