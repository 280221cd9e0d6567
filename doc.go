// Package cachepool implements an item-oriented cache pool over pluggable
// byte-value stores: load/save item lifecycle, deferred writes with explicit
// commit, TTL expiry against a replaceable clock, tag-based invalidation,
// and hierarchical (delimiter-prefixed) key invalidation.
//
// The pool contract is backend-agnostic; any implementation of Store can
// back a Pool. The pooltest subpackage exports a conformance suite that
// validates the full contract against an arbitrary pool factory.
package cachepool
