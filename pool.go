package cachepool

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Pool composes a Store with the deferred queue, tag index, and hierarchy
// index into the item-oriented cache contract.
//
// A Pool is single-owner: it is not safe for concurrent use without external
// synchronization, but every operation leaves the store and both indexes
// mutually consistent. Staged writes are flushed by Commit or, at the
// latest, by Close.
type Pool struct {
	store     Store
	clock     clockwork.Clock
	queue     *deferredQueue
	tags      *tagIndex
	hierarchy *hierarchyIndex
	observer  Observer
	delimiter string
	closed    bool
}

// PoolOption mutates a Pool during construction.
type PoolOption func(*Pool)

// WithClock replaces the wall clock used for expiry decisions. Tests pass a
// clockwork fake clock to advance logical time without sleeping.
func WithClock(clock clockwork.Clock) PoolOption {
	return func(p *Pool) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithHierarchyDelimiter overrides the hierarchical key delimiter.
func WithHierarchyDelimiter(delimiter string) PoolOption {
	return func(p *Pool) {
		if delimiter != "" {
			p.delimiter = delimiter
		}
	}
}

// NewPool creates a pool bound to a concrete store.
//
// Example: pool over the in-process store
//
//	ctx := context.Background()
//	pool := cachepool.NewPool(cachepool.NewMemoryStore(ctx))
//	fmt.Println(pool.Driver()) // memory
func NewPool(store Store, opts ...PoolOption) *Pool {
	p := &Pool{
		store:     store,
		clock:     clockwork.NewRealClock(),
		queue:     newDeferredQueue(),
		tags:      newTagIndex(),
		delimiter: defaultHierarchyDelimiter,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.hierarchy = newHierarchyIndex(p.delimiter)
	return p
}

// WithObserver attaches an observer to receive operation events.
func (p *Pool) WithObserver(o Observer) *Pool {
	p.observer = o
	return p
}

// Store returns the underlying store implementation.
func (p *Pool) Store() Store { return p.store }

// Driver reports the underlying store driver.
func (p *Pool) Driver() Driver { return p.store.Driver() }

// GetItem loads key and always returns an Item for a well-formed key; a
// miss is an Item with Hit()==false, never an error.
func (p *Pool) GetItem(key string) (*Item, error) {
	return p.GetItemCtx(context.Background(), key)
}

func (p *Pool) GetItemCtx(ctx context.Context, key string) (*Item, error) {
	start := time.Now()
	item, err := p.getItem(ctx, key)
	p.observe(ctx, "get_item", key, item != nil && item.Hit(), err, start)
	return item, err
}

// GetItems resolves each key independently and returns the items in input
// order. An empty input yields an empty result; one invalid key fails the
// whole call before any key is read.
func (p *Pool) GetItems(keys ...string) ([]*Item, error) {
	return p.GetItemsCtx(context.Background(), keys...)
}

func (p *Pool) GetItemsCtx(ctx context.Context, keys ...string) ([]*Item, error) {
	start := time.Now()
	if err := p.guard(keys...); err != nil {
		p.observe(ctx, "get_items", "", false, err, start)
		return nil, err
	}
	items := make([]*Item, 0, len(keys))
	for _, key := range keys {
		item, err := p.resolveItem(ctx, key)
		if err != nil {
			p.observe(ctx, "get_items", key, false, err, start)
			return nil, err
		}
		items = append(items, item)
	}
	p.observe(ctx, "get_items", "", true, nil, start)
	return items, nil
}

// HasItem is a cheap existence-and-expiry check; it never decodes the
// payload into a caller value.
func (p *Pool) HasItem(key string) (bool, error) {
	return p.HasItemCtx(context.Background(), key)
}

func (p *Pool) HasItemCtx(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	if err := p.guard(key); err != nil {
		p.observe(ctx, "has_item", key, false, err, start)
		return false, err
	}
	e, err := p.liveEntry(ctx, key)
	hit := err == nil && e != nil
	p.observe(ctx, "has_item", key, hit, err, start)
	return hit, err
}

// Save persists the item immediately: payload, expiry, and tags become
// authoritative in one operation. An item whose expiry already passed is
// stored as absent (an immediate delete) and still succeeds.
func (p *Pool) Save(item *Item) error {
	return p.SaveCtx(context.Background(), item)
}

func (p *Pool) SaveCtx(ctx context.Context, item *Item) error {
	start := time.Now()
	err := p.save(ctx, item)
	p.observe(ctx, "save", item.Key(), err == nil, err, start)
	return err
}

// SaveDeferred stages the item in the deferred queue. The staged value is
// visible to reads on this pool before Commit, but does not reach the store
// until Commit or Close.
func (p *Pool) SaveDeferred(item *Item) error {
	return p.SaveDeferredCtx(context.Background(), item)
}

func (p *Pool) SaveDeferredCtx(ctx context.Context, item *Item) error {
	start := time.Now()
	err := p.saveDeferred(item)
	p.observe(ctx, "save_deferred", item.Key(), err == nil, err, start)
	return err
}

// Commit applies every staged operation to the store in staging order and
// empties the queue. Committing an empty queue succeeds.
func (p *Pool) Commit() error {
	return p.CommitCtx(context.Background())
}

func (p *Pool) CommitCtx(ctx context.Context) error {
	start := time.Now()
	if p.closed {
		p.observe(ctx, "commit", "", false, ErrPoolClosed, start)
		return ErrPoolClosed
	}
	err := p.commit(ctx)
	p.observe(ctx, "commit", "", err == nil, err, start)
	return err
}

// DeleteItem removes key from the store, the deferred queue, and both
// indexes. For a hierarchical key it also removes every delimiter-bounded
// descendant. Deleting an absent key succeeds.
func (p *Pool) DeleteItem(key string) error {
	return p.DeleteItemCtx(context.Background(), key)
}

func (p *Pool) DeleteItemCtx(ctx context.Context, key string) error {
	start := time.Now()
	if err := p.guard(key); err != nil {
		p.observe(ctx, "delete_item", key, false, err, start)
		return err
	}
	err := p.deleteOne(ctx, key)
	p.observe(ctx, "delete_item", key, err == nil, err, start)
	return err
}

// DeleteItems validates every key before deleting any, so one malformed key
// fails the whole call with no partial deletion.
func (p *Pool) DeleteItems(keys ...string) error {
	return p.DeleteItemsCtx(context.Background(), keys...)
}

func (p *Pool) DeleteItemsCtx(ctx context.Context, keys ...string) error {
	start := time.Now()
	if err := p.guard(keys...); err != nil {
		p.observe(ctx, "delete_items", "", false, err, start)
		return err
	}
	for _, key := range keys {
		if err := p.deleteOne(ctx, key); err != nil {
			p.observe(ctx, "delete_items", key, false, err, start)
			return err
		}
	}
	p.observe(ctx, "delete_items", "", true, nil, start)
	return nil
}

// Clear resets the store scope, discards staged operations, and empties both
// indexes in one call.
func (p *Pool) Clear() error {
	return p.ClearCtx(context.Background())
}

func (p *Pool) ClearCtx(ctx context.Context) error {
	start := time.Now()
	if p.closed {
		p.observe(ctx, "clear", "", false, ErrPoolClosed, start)
		return ErrPoolClosed
	}
	if err := p.store.Flush(ctx); err != nil {
		p.observe(ctx, "clear", "", false, err, start)
		return err
	}
	p.queue.discardAll()
	p.tags.clear()
	p.hierarchy.clear()
	p.observe(ctx, "clear", "", true, nil, start)
	return nil
}

// InvalidateTag deletes every key currently carrying tag. An unknown tag is
// a successful no-op.
func (p *Pool) InvalidateTag(tag string) error {
	return p.InvalidateTagsCtx(context.Background(), tag)
}

// InvalidateTags deletes every key carrying any of the listed tags,
// including keys that also carry other tags.
func (p *Pool) InvalidateTags(tags ...string) error {
	return p.InvalidateTagsCtx(context.Background(), tags...)
}

func (p *Pool) InvalidateTagsCtx(ctx context.Context, tags ...string) error {
	start := time.Now()
	if err := p.guard(tags...); err != nil {
		p.observe(ctx, "invalidate_tags", "", false, err, start)
		return err
	}
	keys := p.tags.keysFor(tags)
	if len(keys) == 0 {
		p.observe(ctx, "invalidate_tags", "", true, nil, start)
		return nil
	}
	if err := p.store.DeleteMany(ctx, keys...); err != nil {
		p.observe(ctx, "invalidate_tags", "", false, err, start)
		return err
	}
	for _, key := range keys {
		p.queue.remove(key)
		p.tags.remove(key)
		p.hierarchy.remove(key)
	}
	p.observe(ctx, "invalidate_tags", "", true, nil, start)
	return nil
}

// Close flushes any staged writes and marks the pool closed. It is the
// explicit replacement for commit-on-destruction: call it on every exit
// path, typically via defer. A failed flush leaves the pool open with the
// unapplied operations restaged, so a retried Close (or Commit) can drain
// them. Close is idempotent; operations after a successful Close fail with
// ErrPoolClosed.
func (p *Pool) Close() error {
	start := time.Now()
	if p.closed {
		return nil
	}
	err := p.commit(context.Background())
	if err == nil {
		p.closed = true
	}
	p.observe(context.Background(), "close", "", err == nil, err, start)
	return err
}

func (p *Pool) getItem(ctx context.Context, key string) (*Item, error) {
	if err := p.guard(key); err != nil {
		return nil, err
	}
	return p.resolveItem(ctx, key)
}

// resolveItem assumes key is already validated. The deferred queue wins over
// the store so staged writes and deletes are visible before Commit.
func (p *Pool) resolveItem(ctx context.Context, key string) (*Item, error) {
	e, err := p.liveEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return newMissItem(key, p.clock), nil
	}
	return newHitItem(key, e, p.clock), nil
}

// liveEntry returns the current non-expired entry for key, or nil for a
// miss. Expired store entries are purged eagerly, cascading through both
// indexes.
func (p *Pool) liveEntry(ctx context.Context, key string) (*entry, error) {
	if op, ok := p.queue.peek(key); ok {
		if op.isDelete() || op.entry.expired(p.clock.Now()) {
			return nil, nil
		}
		return op.entry.clone(), nil
	}
	body, ok, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cachepool: get %q: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	e := decodeEntry(body)
	if e.expired(p.clock.Now()) {
		if err := p.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("cachepool: purge expired %q: %w", key, err)
		}
		p.tags.remove(key)
		p.hierarchy.remove(key)
		return nil, nil
	}
	// Re-register entries written by an earlier pool instance over a shared
	// backend so tag and hierarchy invalidation can reach them.
	p.tags.attach(key, e.tags)
	p.hierarchy.add(key)
	return e, nil
}

func (p *Pool) save(ctx context.Context, item *Item) error {
	if err := p.guard(item.Key()); err != nil {
		return err
	}
	if err := validateKeys(item.tags); err != nil {
		return err
	}
	e := item.entry()
	now := p.clock.Now()
	if e.expired(now) {
		// Expired at save time acts as a delete of this key and still
		// succeeds. Descendants of a hierarchical key are untouched.
		if err := p.store.Delete(ctx, item.key); err != nil {
			return fmt.Errorf("cachepool: save %q: %w", item.key, err)
		}
		p.queue.remove(item.key)
		p.tags.remove(item.key)
		p.hierarchy.remove(item.key)
		return nil
	}
	body, err := encodeEntry(e)
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, item.key, body, e.ttlHint(now)); err != nil {
		return fmt.Errorf("cachepool: save %q: %w", item.key, err)
	}
	// Save bypasses the queue; a pending op for this key is superseded.
	p.queue.remove(item.key)
	p.tags.attach(item.key, e.tags)
	p.hierarchy.add(item.key)
	return nil
}

func (p *Pool) saveDeferred(item *Item) error {
	if err := p.guard(item.Key()); err != nil {
		return err
	}
	if err := validateKeys(item.tags); err != nil {
		return err
	}
	e := item.entry()
	if e.expired(p.clock.Now()) {
		p.queue.stage(item.key, nil)
		p.tags.remove(item.key)
		p.hierarchy.remove(item.key)
		return nil
	}
	p.queue.stage(item.key, e)
	// Staged tags are part of the observable state: invalidation must reach
	// keys that only exist in the queue.
	p.tags.attach(item.key, e.tags)
	p.hierarchy.add(item.key)
	return nil
}

func (p *Pool) commit(ctx context.Context) error {
	ops := p.queue.drain()
	for i, op := range ops {
		if err := p.applyOp(ctx, op); err != nil {
			p.queue.restage(ops[i:])
			return fmt.Errorf("cachepool: commit %q: %w", op.key, err)
		}
	}
	return nil
}

func (p *Pool) applyOp(ctx context.Context, op *deferredOp) error {
	now := p.clock.Now()
	if op.isDelete() || op.entry.expired(now) {
		if err := p.store.Delete(ctx, op.key); err != nil {
			return err
		}
		p.tags.remove(op.key)
		p.hierarchy.remove(op.key)
		return nil
	}
	body, err := encodeEntry(op.entry)
	if err != nil {
		return err
	}
	if err := p.store.Set(ctx, op.key, body, op.entry.ttlHint(now)); err != nil {
		return err
	}
	p.tags.attach(op.key, op.entry.tags)
	p.hierarchy.add(op.key)
	return nil
}

// deleteOne removes key and, for hierarchical keys, its whole subtree: the
// affected set is computed first, then removed from the store and both
// indexes as one batch.
func (p *Pool) deleteOne(ctx context.Context, key string) error {
	keys := []string{key}
	if p.hierarchy.tracks(key) {
		keys = mergeKeys(key, p.hierarchy.collect(key))
	}
	if err := p.store.DeleteMany(ctx, keys...); err != nil {
		return fmt.Errorf("cachepool: delete %q: %w", key, err)
	}
	for _, k := range keys {
		p.queue.remove(k)
		p.tags.remove(k)
		p.hierarchy.remove(k)
	}
	return nil
}

// guard rejects malformed keys and operations on a closed pool before any
// state is touched.
func (p *Pool) guard(keys ...string) error {
	if p.closed {
		return ErrPoolClosed
	}
	return validateKeys(keys)
}

func mergeKeys(key string, rest []string) []string {
	keys := make([]string, 0, len(rest)+1)
	keys = append(keys, key)
	for _, k := range rest {
		if k != key {
			keys = append(keys, k)
		}
	}
	return keys
}

func (p *Pool) observe(ctx context.Context, op, key string, hit bool, err error, start time.Time) {
	if p.observer == nil {
		return
	}
	p.observer.OnPoolOp(ctx, op, key, hit, err, time.Since(start), p.Driver())
}
