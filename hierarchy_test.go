package cachepool

import (
	"reflect"
	"testing"
)

func TestHierarchyIndexTracksOnlyDelimitedKeys(t *testing.T) {
	h := newHierarchyIndex("|")
	if h.tracks("users") || h.tracks("") {
		t.Fatalf("flat keys must not participate in the hierarchy")
	}
	if !h.tracks("|users") {
		t.Fatalf("delimiter-prefixed key not tracked")
	}

	h.add("users")
	if got := h.collect("|"); len(got) != 0 {
		t.Fatalf("flat key leaked into the trie: %v", got)
	}
}

func TestHierarchyIndexCollectSubtree(t *testing.T) {
	h := newHierarchyIndex("|")
	for _, k := range []string{"|users|1", "|users|1|posts", "|users|12", "|orders|7"} {
		h.add(k)
	}

	// Descendants are delimiter-bounded: |users|12 is a sibling of |users|1,
	// not a child.
	got := h.collect("|users|1")
	if !reflect.DeepEqual(got, []string{"|users|1", "|users|1|posts"}) {
		t.Fatalf("unexpected subtree: %v", got)
	}
	got = h.collect("|users")
	if !reflect.DeepEqual(got, []string{"|users|1", "|users|1|posts", "|users|12"}) {
		t.Fatalf("unexpected users subtree: %v", got)
	}
	// The bare delimiter addresses every hierarchical key.
	got = h.collect("|")
	if !reflect.DeepEqual(got, []string{"|orders|7", "|users|1", "|users|1|posts", "|users|12"}) {
		t.Fatalf("unexpected full collection: %v", got)
	}
	if got := h.collect("|ghost"); len(got) != 0 {
		t.Fatalf("unknown path yielded keys: %v", got)
	}
}

func TestHierarchyIndexCollectInteriorNode(t *testing.T) {
	h := newHierarchyIndex("|")
	h.add("|a|b|c")
	// |a|b was never stored itself but still addresses its subtree.
	if got := h.collect("|a|b"); !reflect.DeepEqual(got, []string{"|a|b|c"}) {
		t.Fatalf("unexpected interior collection: %v", got)
	}
}

func TestHierarchyIndexRemovePrunes(t *testing.T) {
	h := newHierarchyIndex("|")
	h.add("|a|b|c")
	h.add("|a|d")
	h.remove("|a|b|c")

	if got := h.collect("|a"); !reflect.DeepEqual(got, []string{"|a|d"}) {
		t.Fatalf("unexpected keys after remove: %v", got)
	}
	// The b subtree should be gone entirely, not just unmarked.
	if _, ok := h.root.children["a"].children["b"]; ok {
		t.Fatalf("empty branch not pruned")
	}
	// Removing an interior path with live children keeps the children.
	h.add("|a|d|e")
	h.remove("|a|d")
	if got := h.collect("|a"); !reflect.DeepEqual(got, []string{"|a|d|e"}) {
		t.Fatalf("remove dropped live descendants: %v", got)
	}
	// Removing unknown keys is a no-op.
	h.remove("|ghost")
	h.remove("flat")
}

func TestHierarchyIndexCustomDelimiter(t *testing.T) {
	h := newHierarchyIndex("~")
	h.add("~a~b")
	h.add("|a|b")
	if got := h.collect("~a"); !reflect.DeepEqual(got, []string{"~a~b"}) {
		t.Fatalf("unexpected subtree for custom delimiter: %v", got)
	}
	if got := h.collect("~"); !reflect.DeepEqual(got, []string{"~a~b"}) {
		t.Fatalf("pipe key must be flat under a custom delimiter: %v", got)
	}
}

func TestHierarchyIndexClear(t *testing.T) {
	h := newHierarchyIndex("|")
	h.add("|a")
	h.clear()
	if got := h.collect("|"); len(got) != 0 {
		t.Fatalf("clear left keys behind: %v", got)
	}
}
