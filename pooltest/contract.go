package pooltest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/goforj/cachepool"
)

// Options configures shared pool contract checks.
type Options struct {
	// CaseName is used to namespace keys. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// SkipTags disables the tag invalidation assertions.
	SkipTags bool
	// SkipHierarchy disables the hierarchical invalidation assertions.
	SkipHierarchy bool
}

// Factory builds a fresh pool for each contract section. Implementations may
// share a backend between pools; keys are namespaced per case.
type Factory func(t *testing.T, opts ...cachepool.PoolOption) *cachepool.Pool

// RunPoolContract runs the backend-agnostic pool conformance suite.
func RunPoolContract(t *testing.T, newPool Factory, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	ns := sanitize(caseName)
	key := func(s string) string { return ns + "." + s }
	ctx := context.Background()

	if opts.NullSemantics {
		runNullContract(t, newPool, key)
		return
	}

	// Lifecycle: miss, save, hit, overwrite.
	{
		pool := newPool(t)
		item, err := pool.GetItem(key("alpha"))
		if err != nil {
			t.Fatalf("get miss failed: %v", err)
		}
		if item.Hit() || item.Value() != nil {
			t.Fatalf("expected miss item, got hit=%v value=%q", item.Hit(), item.Value())
		}
		if item.Key() != key("alpha") {
			t.Fatalf("expected item key %q, got %q", key("alpha"), item.Key())
		}
		if err := pool.Save(item.Set([]byte("value"))); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := pool.GetItem(key("alpha"))
		if err != nil || !got.Hit() || string(got.Value()) != "value" {
			t.Fatalf("unexpected get after save: hit=%v value=%q err=%v", got.Hit(), got.Value(), err)
		}
		if err := pool.Save(got.Set([]byte("updated"))); err != nil {
			t.Fatalf("overwrite failed: %v", err)
		}
		got, err = pool.GetItem(key("alpha"))
		if err != nil || string(got.Value()) != "updated" {
			t.Fatalf("expected last write to win, got value=%q err=%v", got.Value(), err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// A saved item with no payload is present, not absent: the key reports
	// existing and the value reads back as nil.
	{
		pool := newPool(t)
		item, err := pool.GetItem(key("value-nil"))
		if err != nil {
			t.Fatalf("get miss failed: %v", err)
		}
		if err := pool.Save(item); err != nil {
			t.Fatalf("save nil value failed: %v", err)
		}
		if ok, err := pool.HasItem(key("value-nil")); err != nil || !ok {
			t.Fatalf("expected nil-valued key present: ok=%v err=%v", ok, err)
		}
		got, err := pool.GetItem(key("value-nil"))
		if err != nil || !got.Hit() {
			t.Fatalf("expected hit for nil value: hit=%v err=%v", got.Hit(), err)
		}
		if got.Value() != nil {
			t.Fatalf("expected nil value, got %q", got.Value())
		}

		// Structured values survive a full round trip through the JSON
		// helpers and the store.
		type metrics struct {
			Name    string
			Count   int
			Ratio   float64
			Enabled bool
			Steps   []string
		}
		want := metrics{Name: "p95", Count: 42, Ratio: 0.25, Enabled: true, Steps: []string{"load", "decode"}}
		item, _ = pool.GetItem(key("value-json"))
		if err := cachepool.SetJSON(item, want); err != nil {
			t.Fatalf("set json failed: %v", err)
		}
		if err := pool.Save(item); err != nil {
			t.Fatalf("save json failed: %v", err)
		}
		got, err = pool.GetItem(key("value-json"))
		if err != nil {
			t.Fatalf("get json failed: %v", err)
		}
		decoded, ok, err := cachepool.GetJSON[metrics](got)
		if err != nil || !ok {
			t.Fatalf("decode json failed: ok=%v err=%v", ok, err)
		}
		if decoded.Name != want.Name || decoded.Count != want.Count ||
			decoded.Ratio != want.Ratio || !decoded.Enabled || len(decoded.Steps) != 2 {
			t.Fatalf("json round trip mismatch: %+v", decoded)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// HasItem reports presence without decoding a value.
	{
		pool := newPool(t)
		ok, err := pool.HasItem(key("has"))
		if err != nil || ok {
			t.Fatalf("expected absent key: ok=%v err=%v", ok, err)
		}
		item, _ := pool.GetItem(key("has"))
		if err := pool.Save(item.Set([]byte("x"))); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		ok, err = pool.HasItem(key("has"))
		if err != nil || !ok {
			t.Fatalf("expected present key: ok=%v err=%v", ok, err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// DeleteItem: absent keys succeed, present keys become misses.
	{
		pool := newPool(t)
		if err := pool.DeleteItem(key("ghost")); err != nil {
			t.Fatalf("delete absent failed: %v", err)
		}
		item, _ := pool.GetItem(key("gone"))
		if err := pool.Save(item.Set([]byte("x"))); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := pool.DeleteItem(key("gone")); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if ok, err := pool.HasItem(key("gone")); err != nil || ok {
			t.Fatalf("expected key deleted: ok=%v err=%v", ok, err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// GetItems preserves input order and treats an empty input as empty output.
	{
		pool := newPool(t)
		one, _ := pool.GetItem(key("multi-1"))
		if err := pool.Save(one.Set([]byte("1"))); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		items, err := pool.GetItems(key("multi-2"), key("multi-1"))
		if err != nil || len(items) != 2 {
			t.Fatalf("get items failed: n=%d err=%v", len(items), err)
		}
		if items[0].Key() != key("multi-2") || items[0].Hit() {
			t.Fatalf("expected first item to be a miss for %q", key("multi-2"))
		}
		if items[1].Key() != key("multi-1") || !items[1].Hit() {
			t.Fatalf("expected second item to be a hit for %q", key("multi-1"))
		}
		items, err = pool.GetItems()
		if err != nil || len(items) != 0 {
			t.Fatalf("expected empty result for empty input: n=%d err=%v", len(items), err)
		}
		if _, err := pool.GetItems(key("multi-1"), "bad{key"); !errors.Is(err, cachepool.ErrInvalidKey) {
			t.Fatalf("expected invalid key to fail the batch, got %v", err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// Key validation: reserved characters and the empty key are rejected with
	// a KeyError; long keys are accepted.
	{
		pool := newPool(t)
		for _, bad := range []string{"", "a{b", "a}b", "a(b", "a)b", "a/b", `a\b`, "a@b", "a:b"} {
			_, err := pool.GetItem(bad)
			if !errors.Is(err, cachepool.ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey for %q, got %v", bad, err)
			}
			var keyErr *cachepool.KeyError
			if !errors.As(err, &keyErr) {
				t.Fatalf("expected KeyError for %q, got %T", bad, err)
			}
			if keyErr.Key != bad {
				t.Fatalf("expected KeyError.Key=%q, got %q", bad, keyErr.Key)
			}
		}
		long := key(strings.Repeat("k", 300))
		item, err := pool.GetItem(long)
		if err != nil {
			t.Fatalf("expected long key accepted: %v", err)
		}
		if err := pool.Save(item.Set([]byte("long"))); err != nil {
			t.Fatalf("save long key failed: %v", err)
		}
		if got, err := pool.GetItem(long); err != nil || !got.Hit() {
			t.Fatalf("expected long key round-trip: hit=%v err=%v", got.Hit(), err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// Expiry is driven by the pool clock: items live until the deadline and
	// become misses at or after it, without sleeping.
	{
		clk := clockwork.NewFakeClock()
		pool := newPool(t, cachepool.WithClock(clk))
		item, _ := pool.GetItem(key("ttl"))
		if err := pool.Save(item.Set([]byte("v")).ExpiresAfter(time.Minute)); err != nil {
			t.Fatalf("save ttl failed: %v", err)
		}
		if got, err := pool.GetItem(key("ttl")); err != nil || !got.Hit() {
			t.Fatalf("expected hit before deadline: hit=%v err=%v", got.Hit(), err)
		}
		clk.Advance(2 * time.Minute)
		if got, err := pool.GetItem(key("ttl")); err != nil || got.Hit() {
			t.Fatalf("expected miss after deadline: hit=%v err=%v", got.Hit(), err)
		}

		// A zero or negative duration expires immediately.
		item, _ = pool.GetItem(key("ttl-zero"))
		if err := pool.Save(item.Set([]byte("v")).ExpiresAfter(0)); err != nil {
			t.Fatalf("save zero ttl failed: %v", err)
		}
		if ok, err := pool.HasItem(key("ttl-zero")); err != nil || ok {
			t.Fatalf("expected immediate miss for zero ttl: ok=%v err=%v", ok, err)
		}

		// A past absolute expiration saves successfully as an absent entry.
		item, _ = pool.GetItem(key("ttl-past"))
		if err := pool.Save(item.Set([]byte("v")).ExpiresAt(clk.Now().Add(-time.Hour))); err != nil {
			t.Fatalf("save past expiry failed: %v", err)
		}
		if ok, err := pool.HasItem(key("ttl-past")); err != nil || ok {
			t.Fatalf("expected miss for past expiry: ok=%v err=%v", ok, err)
		}

		// ExpiresAt(zero time) clears the deadline.
		item, _ = pool.GetItem(key("ttl-none"))
		if err := pool.Save(item.Set([]byte("v")).ExpiresAfter(time.Minute).ExpiresAt(time.Time{})); err != nil {
			t.Fatalf("save without expiry failed: %v", err)
		}
		clk.Advance(24 * time.Hour)
		if got, err := pool.GetItem(key("ttl-none")); err != nil || !got.Hit() {
			t.Fatalf("expected unexpiring item to survive: hit=%v err=%v", got.Hit(), err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// Deferred writes are visible on this pool before Commit but only reach
	// the store on Commit.
	{
		pool := newPool(t)
		item, _ := pool.GetItem(key("deferred"))
		if err := pool.SaveDeferred(item.Set([]byte("staged"))); err != nil {
			t.Fatalf("save deferred failed: %v", err)
		}
		if got, err := pool.GetItem(key("deferred")); err != nil || !got.Hit() || string(got.Value()) != "staged" {
			t.Fatalf("expected staged item visible: hit=%v value=%q err=%v", got.Hit(), got.Value(), err)
		}
		if _, ok, err := pool.Store().Get(ctx, key("deferred")); err != nil || ok {
			t.Fatalf("expected store untouched before commit: ok=%v err=%v", ok, err)
		}
		if err := pool.Commit(); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
		if _, ok, err := pool.Store().Get(ctx, key("deferred")); err != nil || !ok {
			t.Fatalf("expected store written after commit: ok=%v err=%v", ok, err)
		}
		// Committing an empty queue succeeds.
		if err := pool.Commit(); err != nil {
			t.Fatalf("empty commit failed: %v", err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// Restaging the same key replaces the pending value; deleting a staged key
	// drops it before it ever reaches the store.
	{
		pool := newPool(t)
		item, _ := pool.GetItem(key("restage"))
		if err := pool.SaveDeferred(item.Set([]byte("first"))); err != nil {
			t.Fatalf("save deferred failed: %v", err)
		}
		item, _ = pool.GetItem(key("restage"))
		if err := pool.SaveDeferred(item.Set([]byte("second"))); err != nil {
			t.Fatalf("restage failed: %v", err)
		}
		if got, _ := pool.GetItem(key("restage")); string(got.Value()) != "second" {
			t.Fatalf("expected restaged value, got %q", got.Value())
		}
		dropped, _ := pool.GetItem(key("dropped"))
		if err := pool.SaveDeferred(dropped.Set([]byte("x"))); err != nil {
			t.Fatalf("save deferred failed: %v", err)
		}
		if err := pool.DeleteItem(key("dropped")); err != nil {
			t.Fatalf("delete staged failed: %v", err)
		}
		if err := pool.Commit(); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
		if _, ok, err := pool.Store().Get(ctx, key("dropped")); err != nil || ok {
			t.Fatalf("expected dropped key never written: ok=%v err=%v", ok, err)
		}
		if got, err := pool.GetItem(key("restage")); err != nil || string(got.Value()) != "second" {
			t.Fatalf("expected committed value, got %q err=%v", got.Value(), err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}

	// Close flushes staged writes, is idempotent, and fences later calls.
	{
		pool := newPool(t)
		item, _ := pool.GetItem(key("closed"))
		if err := pool.SaveDeferred(item.Set([]byte("flushed"))); err != nil {
			t.Fatalf("save deferred failed: %v", err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if _, ok, err := pool.Store().Get(ctx, key("closed")); err != nil || !ok {
			t.Fatalf("expected close to flush staged write: ok=%v err=%v", ok, err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("second close failed: %v", err)
		}
		if _, err := pool.GetItem(key("closed")); !errors.Is(err, cachepool.ErrPoolClosed) {
			t.Fatalf("expected ErrPoolClosed after close, got %v", err)
		}
		if err := pool.Commit(); !errors.Is(err, cachepool.ErrPoolClosed) {
			t.Fatalf("expected ErrPoolClosed for commit after close, got %v", err)
		}
	}

	if !opts.SkipTags {
		runTagContract(t, newPool, key)
	}
	if !opts.SkipHierarchy {
		runHierarchyContract(t, newPool, ns)
	}

	// Clear wipes persisted entries and discards staged ones.
	{
		pool := newPool(t)
		saved, _ := pool.GetItem(key("clear-saved"))
		if err := pool.Save(saved.Set([]byte("x"))); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		staged, _ := pool.GetItem(key("clear-staged"))
		if err := pool.SaveDeferred(staged.Set([]byte("y"))); err != nil {
			t.Fatalf("save deferred failed: %v", err)
		}
		if err := pool.Clear(); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if ok, err := pool.HasItem(key("clear-saved")); err != nil || ok {
			t.Fatalf("expected saved key cleared: ok=%v err=%v", ok, err)
		}
		if ok, err := pool.HasItem(key("clear-staged")); err != nil || ok {
			t.Fatalf("expected staged key discarded: ok=%v err=%v", ok, err)
		}
		if err := pool.Commit(); err != nil {
			t.Fatalf("commit after clear failed: %v", err)
		}
		if ok, err := pool.HasItem(key("clear-staged")); err != nil || ok {
			t.Fatalf("expected discarded key to stay absent: ok=%v err=%v", ok, err)
		}
		if err := pool.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
	}
}

func runTagContract(t *testing.T, newPool Factory, key func(string) string) {
	t.Helper()

	pool := newPool(t)
	save := func(k string, tags ...string) {
		t.Helper()
		item, err := pool.GetItem(k)
		if err != nil {
			t.Fatalf("get %q failed: %v", k, err)
		}
		if err := pool.Save(item.Set([]byte("v")).SetTags(tags...)); err != nil {
			t.Fatalf("save %q failed: %v", k, err)
		}
	}

	save(key("tag-1"), "news")
	save(key("tag-2"), "news", "sports")
	save(key("tag-3"), "sports")

	if err := pool.InvalidateTag("news"); err != nil {
		t.Fatalf("invalidate tag failed: %v", err)
	}
	for _, k := range []string{key("tag-1"), key("tag-2")} {
		if ok, err := pool.HasItem(k); err != nil || ok {
			t.Fatalf("expected %q invalidated: ok=%v err=%v", k, ok, err)
		}
	}
	if ok, err := pool.HasItem(key("tag-3")); err != nil || !ok {
		t.Fatalf("expected untagged survivor %q: ok=%v err=%v", key("tag-3"), ok, err)
	}

	// Re-saving without the tag detaches it: a second invalidation must not
	// resurrect the delete.
	save(key("tag-1"))
	if err := pool.InvalidateTag("news"); err != nil {
		t.Fatalf("invalidate tag failed: %v", err)
	}
	if ok, err := pool.HasItem(key("tag-1")); err != nil || !ok {
		t.Fatalf("expected retagged key to survive: ok=%v err=%v", ok, err)
	}

	// Unknown tags are successful no-ops.
	if err := pool.InvalidateTag("unknown-tag"); err != nil {
		t.Fatalf("invalidate unknown tag failed: %v", err)
	}

	// Invalidation reaches keys that only exist in the deferred queue.
	staged, _ := pool.GetItem(key("tag-staged"))
	if err := pool.SaveDeferred(staged.Set([]byte("v")).Tag("sports")); err != nil {
		t.Fatalf("save deferred failed: %v", err)
	}
	if err := pool.InvalidateTags("sports"); err != nil {
		t.Fatalf("invalidate tags failed: %v", err)
	}
	for _, k := range []string{key("tag-3"), key("tag-staged")} {
		if ok, err := pool.HasItem(k); err != nil || ok {
			t.Fatalf("expected %q invalidated: ok=%v err=%v", k, ok, err)
		}
	}
	if err := pool.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if ok, err := pool.HasItem(key("tag-staged")); err != nil || ok {
		t.Fatalf("expected staged key to stay invalidated: ok=%v err=%v", ok, err)
	}

	// Tags share the key grammar.
	bad, _ := pool.GetItem(key("tag-bad"))
	if err := pool.Save(bad.Set([]byte("v")).Tag("bad{tag")); !errors.Is(err, cachepool.ErrInvalidKey) {
		t.Fatalf("expected invalid tag rejected, got %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func runHierarchyContract(t *testing.T, newPool Factory, ns string) {
	t.Helper()

	pool := newPool(t)
	key := func(s string) string { return "|" + ns + s }
	save := func(k string) {
		t.Helper()
		item, err := pool.GetItem(k)
		if err != nil {
			t.Fatalf("get %q failed: %v", k, err)
		}
		if err := pool.Save(item.Set([]byte("v"))); err != nil {
			t.Fatalf("save %q failed: %v", k, err)
		}
	}

	save(key("|users|1"))
	save(key("|users|1|posts"))
	save(key("|users|12"))
	plain := ns + ".plain"
	plainItem, _ := pool.GetItem(plain)
	if err := pool.Save(plainItem.Set([]byte("v"))); err != nil {
		t.Fatalf("save plain failed: %v", err)
	}

	// Deleting a hierarchical key removes its descendants but not siblings
	// that merely share a string prefix.
	if err := pool.DeleteItem(key("|users|1")); err != nil {
		t.Fatalf("delete subtree failed: %v", err)
	}
	for _, k := range []string{key("|users|1"), key("|users|1|posts")} {
		if ok, err := pool.HasItem(k); err != nil || ok {
			t.Fatalf("expected %q removed: ok=%v err=%v", k, ok, err)
		}
	}
	if ok, err := pool.HasItem(key("|users|12")); err != nil || !ok {
		t.Fatalf("expected sibling %q to survive: ok=%v err=%v", key("|users|12"), ok, err)
	}

	// Deleting the case root removes the remaining subtree and leaves plain
	// keys alone.
	if err := pool.DeleteItem(key("")); err != nil {
		t.Fatalf("delete root failed: %v", err)
	}
	if ok, err := pool.HasItem(key("|users|12")); err != nil || ok {
		t.Fatalf("expected %q removed with root: ok=%v err=%v", key("|users|12"), ok, err)
	}
	if ok, err := pool.HasItem(plain); err != nil || !ok {
		t.Fatalf("expected plain key to survive: ok=%v err=%v", ok, err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func runNullContract(t *testing.T, newPool Factory, key func(string) string) {
	t.Helper()

	pool := newPool(t)
	item, err := pool.GetItem(key("null"))
	if err != nil || item.Hit() {
		t.Fatalf("expected miss: hit=%v err=%v", item.Hit(), err)
	}
	if err := pool.Save(item.Set([]byte("v"))); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if got, err := pool.GetItem(key("null")); err != nil || got.Hit() {
		t.Fatalf("expected null store to forget saves: hit=%v err=%v", got.Hit(), err)
	}

	// Staged writes live in the pool, so they are visible until Commit even
	// over a store that persists nothing.
	staged, _ := pool.GetItem(key("null-staged"))
	if err := pool.SaveDeferred(staged.Set([]byte("v"))); err != nil {
		t.Fatalf("save deferred failed: %v", err)
	}
	if got, err := pool.GetItem(key("null-staged")); err != nil || !got.Hit() {
		t.Fatalf("expected staged item visible: hit=%v err=%v", got.Hit(), err)
	}
	if err := pool.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if got, err := pool.GetItem(key("null-staged")); err != nil || got.Hit() {
		t.Fatalf("expected staged item gone after commit: hit=%v err=%v", got.Hit(), err)
	}

	if _, err := pool.GetItem("bad{key"); !errors.Is(err, cachepool.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
