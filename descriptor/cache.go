// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package descriptor

import (
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/metrics"
)

// Invocation-heavy methods keep asking for the same handful of descriptors,
// so parsed results are cached process-wide.
const methodCacheCap = 4096

var (
	methodCache = lru.NewCache[string, *Method](methodCacheCap)

	cacheHitCounter  = metrics.NewRegisteredCounter("jvmstack/descriptor/cache/hit", nil)
	cacheMissCounter = metrics.NewRegisteredCounter("jvmstack/descriptor/cache/miss", nil)
)

// Lookup is ParseMethod backed by a shared LRU cache. The returned Method is
// shared between callers and must not be modified.
func Lookup(desc string) (*Method, error) {
	if m, ok := methodCache.Get(desc); ok {
		cacheHitCounter.Inc(1)
		return m, nil
	}
	cacheMissCounter.Inc(1)
	m, err := ParseMethod(desc)
	if err != nil {
		return nil, err
	}
	methodCache.Add(desc, m)
	return m, nil
}

// PurgeCache drops every cached descriptor.
func PurgeCache() {
	methodCache.Purge()
}

// CacheLen returns the number of cached descriptors.
func CacheLen() int {
	return methodCache.Len()
}
