// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about relocation planning, library copies, install-name
// rewrites, and inspection cache usage.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRelocationHooks(&myRelocationHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Relocation().OnCopy(lib, dest)
package observability

import (
	"sync"
)

// =============================================================================
// Relocation Hooks
// =============================================================================

// RelocationHooks receives events from the relocation engine.
type RelocationHooks interface {
	// OnPlan is called once a relocation plan has been validated.
	OnPlan(root string, external, internal int)

	// OnCopy records a library copied into a bundling directory.
	OnCopy(lib, dest string)

	// OnRPath records a runtime search path added to a binary.
	OnRPath(binary, rpath string)

	// OnRewrite records an install name change inside a binary.
	OnRewrite(binary, oldName, newName string)

	// OnClosurePass is called after each pass of the transitive closure.
	OnClosurePass(libPath string, pass, newCopies int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRelocationHooks is a no-op implementation of RelocationHooks.
type NoopRelocationHooks struct{}

func (NoopRelocationHooks) OnPlan(string, int, int)          {}
func (NoopRelocationHooks) OnCopy(string, string)            {}
func (NoopRelocationHooks) OnRPath(string, string)           {}
func (NoopRelocationHooks) OnRewrite(string, string, string) {}
func (NoopRelocationHooks) OnClosurePass(string, int, int)   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(string)      {}
func (NoopCacheHooks) OnCacheMiss(string)     {}
func (NoopCacheHooks) OnCacheSet(string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	relocationHooks RelocationHooks = NoopRelocationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetRelocationHooks registers custom relocation hooks.
// This should be called once at application startup before any relocation runs.
func SetRelocationHooks(h RelocationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		relocationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Relocation returns the registered relocation hooks.
func Relocation() RelocationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return relocationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	relocationHooks = NoopRelocationHooks{}
	cacheHooks = NoopCacheHooks{}
}
