package cachepool

import "sort"

// tagIndex keeps the bidirectional tag<->keys mapping the pool consults for
// invalidation. Both directions are updated together so a key appears under
// a tag exactly while that tag is recorded for the key.
type tagIndex struct {
	byTag map[string]map[string]struct{}
	byKey map[string]map[string]struct{}
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		byTag: make(map[string]map[string]struct{}),
		byKey: make(map[string]map[string]struct{}),
	}
}

// attach makes tags the authoritative set for key, dropping the key from
// every tag not in the new set.
func (ti *tagIndex) attach(key string, tags []string) {
	ti.remove(key)
	if len(tags) == 0 {
		return
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
		keys, ok := ti.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			ti.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	ti.byKey[key] = set
}

// remove strips key from every tag it holds. Called on every deletion path
// so a later reuse of the key cannot inherit stale tags.
func (ti *tagIndex) remove(key string) {
	for tag := range ti.byKey[key] {
		keys := ti.byTag[tag]
		delete(keys, key)
		if len(keys) == 0 {
			delete(ti.byTag, tag)
		}
	}
	delete(ti.byKey, key)
}

// keysFor returns the union of keys under the given tags, sorted for
// deterministic batch deletes.
func (ti *tagIndex) keysFor(tags []string) []string {
	seen := make(map[string]struct{})
	for _, tag := range tags {
		for key := range ti.byTag[tag] {
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (ti *tagIndex) tagsFor(key string) []string {
	set := ti.byKey[key]
	if len(set) == 0 {
		return nil
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (ti *tagIndex) clear() {
	ti.byTag = make(map[string]map[string]struct{})
	ti.byKey = make(map[string]map[string]struct{})
}
