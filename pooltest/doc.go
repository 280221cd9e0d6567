// Package pooltest provides a backend-agnostic conformance suite for cache
// pools. Driver packages and integration tests call RunPoolContract against
// a pool factory to verify item lifecycle, deferred writes, expiry, tag
// invalidation, and hierarchical invalidation behave uniformly.
package pooltest
