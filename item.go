package cachepool

import (
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
)

// Item is the value object returned by every pool read. It is detached from
// the pool: mutating an Item changes nothing until it is passed back to
// Save or SaveDeferred, and later pool mutations are invisible to an Item
// that was already returned.
type Item struct {
	key          string
	value        []byte
	hit          bool
	expiresAt    time.Time
	tags         []string
	previousTags []string
	clock        clockwork.Clock
}

func newHitItem(key string, e *entry, clock clockwork.Clock) *Item {
	return &Item{
		key:          key,
		value:        cloneBytes(e.value),
		hit:          true,
		expiresAt:    e.expiresAt,
		tags:         cloneStrings(e.tags),
		previousTags: cloneStrings(e.tags),
		clock:        clock,
	}
}

func newMissItem(key string, clock clockwork.Clock) *Item {
	return &Item{key: key, clock: clock}
}

// Key returns the key the item was loaded for.
func (i *Item) Key() string { return i.key }

// Hit reports whether the read found a live, non-expired value.
func (i *Item) Hit() bool { return i.hit }

// Value returns the opaque payload, nil on a miss. A present-but-empty
// payload is distinguishable from a miss via Hit.
func (i *Item) Value() []byte { return cloneBytes(i.value) }

// Set replaces the payload staged for the next save.
func (i *Item) Set(value []byte) *Item {
	i.value = cloneBytes(value)
	return i
}

// SetString replaces the payload with a UTF-8 string.
func (i *Item) SetString(value string) *Item {
	i.value = []byte(value)
	return i
}

// ExpiresAt sets an absolute expiry. The zero time clears it, meaning the
// item never expires.
func (i *Item) ExpiresAt(t time.Time) *Item {
	i.expiresAt = t
	return i
}

// ExpiresAfter sets a relative expiry measured from the pool's clock.
// A non-positive duration makes the item expire immediately.
func (i *Item) ExpiresAfter(d time.Duration) *Item {
	i.expiresAt = i.clock.Now().Add(d)
	return i
}

// Expiration returns the staged expiry and whether one is set.
func (i *Item) Expiration() (time.Time, bool) {
	return i.expiresAt, !i.expiresAt.IsZero()
}

// SetTags replaces the tag set staged for the next save.
func (i *Item) SetTags(tags ...string) *Item {
	i.tags = cloneStrings(tags)
	return i
}

// Tag appends tags to the staged set.
func (i *Item) Tag(tags ...string) *Item {
	i.tags = append(i.tags, tags...)
	return i
}

// Tags returns the tag set staged for the next save. On a fresh hit this
// starts as a copy of the stored tags, so a plain re-save keeps them.
func (i *Item) Tags() []string { return cloneStrings(i.tags) }

// PreviousTags returns the tags recorded for the key when the item was
// loaded. It is a read-only snapshot; SetTags does not affect it.
func (i *Item) PreviousTags() []string { return cloneStrings(i.previousTags) }

func (i *Item) entry() *entry {
	return &entry{
		value:     cloneBytes(i.value),
		expiresAt: i.expiresAt,
		tags:      cloneStrings(i.tags),
	}
}

// GetJSON decodes the item payload into T. The boolean mirrors Hit.
func GetJSON[T any](item *Item) (T, bool, error) {
	var zero T
	if !item.Hit() {
		return zero, false, nil
	}
	var out T
	if err := json.Unmarshal(item.value, &out); err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// SetJSON encodes value as JSON and stages it as the item payload.
func SetJSON[T any](item *Item, value T) error {
	body, err := json.Marshal(value)
	if err != nil {
		return err
	}
	item.value = body
	return nil
}
