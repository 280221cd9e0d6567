package cachepool

import (
	"sort"
	"strings"
)

// defaultHierarchyDelimiter separates the segments of hierarchical keys.
const defaultHierarchyDelimiter = "|"

// hierarchyIndex is a trie over delimiter-segmented keys. Only keys that
// begin with the delimiter participate; everything else is flat and ignored
// here. The trie makes subtree collection proportional to the number of
// matching keys rather than the total key count.
type hierarchyIndex struct {
	delimiter string
	root      *hierarchyNode
}

type hierarchyNode struct {
	children map[string]*hierarchyNode
	// present marks that a stored key terminates at this node.
	present bool
	key     string
}

func newHierarchyIndex(delimiter string) *hierarchyIndex {
	if delimiter == "" {
		delimiter = defaultHierarchyDelimiter
	}
	return &hierarchyIndex{
		delimiter: delimiter,
		root:      &hierarchyNode{},
	}
}

// tracks reports whether key participates in the hierarchy.
func (h *hierarchyIndex) tracks(key string) bool {
	return strings.HasPrefix(key, h.delimiter)
}

func (h *hierarchyIndex) segments(key string) []string {
	return strings.Split(strings.TrimPrefix(key, h.delimiter), h.delimiter)
}

func (h *hierarchyIndex) add(key string) {
	if !h.tracks(key) {
		return
	}
	node := h.root
	for _, segment := range h.segments(key) {
		if node.children == nil {
			node.children = make(map[string]*hierarchyNode)
		}
		child, ok := node.children[segment]
		if !ok {
			child = &hierarchyNode{}
			node.children[segment] = child
		}
		node = child
	}
	node.present = true
	node.key = key
}

func (h *hierarchyIndex) remove(key string) {
	if !h.tracks(key) {
		return
	}
	segments := h.segments(key)
	path := make([]*hierarchyNode, 0, len(segments)+1)
	node := h.root
	path = append(path, node)
	for _, segment := range segments {
		child, ok := node.children[segment]
		if !ok {
			return
		}
		node = child
		path = append(path, node)
	}
	node.present = false
	node.key = ""
	// Prune now-empty nodes bottom-up so the trie does not leak.
	for i := len(path) - 1; i > 0; i-- {
		n := path[i]
		if n.present || len(n.children) > 0 {
			break
		}
		delete(path[i-1].children, segments[i-1])
	}
}

// collect returns every stored key equal to path or having path as a
// delimiter-bounded prefix. The root path (the delimiter itself) matches all
// hierarchical keys; flat keys are never returned.
func (h *hierarchyIndex) collect(path string) []string {
	if !h.tracks(path) {
		return nil
	}
	node := h.root
	if path != h.delimiter {
		for _, segment := range h.segments(path) {
			child, ok := node.children[segment]
			if !ok {
				return nil
			}
			node = child
		}
	}
	var keys []string
	var walk func(n *hierarchyNode)
	walk = func(n *hierarchyNode) {
		if n.present {
			keys = append(keys, n.key)
		}
		for _, child := range n.children {
			walk(child)
		}
	}
	walk(node)
	sort.Strings(keys)
	return keys
}

func (h *hierarchyIndex) clear() {
	h.root = &hierarchyNode{}
}
