package cachepool

import (
	"encoding/json"
	"fmt"
	"time"
)

const envelopeMarker = "pool-v1"

// entry is the pool's authoritative record for one key: the opaque payload,
// the logical expiry (zero means never), and the tags attached at save time.
type entry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// ttlHint converts the logical expiry into a backend TTL. Zero means the
// backend should keep the entry indefinitely.
func (e *entry) ttlHint(now time.Time) time.Duration {
	if e.expiresAt.IsZero() {
		return 0
	}
	return e.expiresAt.Sub(now)
}

func (e *entry) clone() *entry {
	return &entry{
		value:     cloneBytes(e.value),
		expiresAt: e.expiresAt,
		tags:      cloneStrings(e.tags),
	}
}

// poolEnvelope is the wire form written to the backing store. Expiry is unix
// milliseconds; 0 means no expiry.
type poolEnvelope struct {
	Marker    string   `json:"m"`
	Value     []byte   `json:"v"`
	ExpiresAt int64    `json:"ea,omitempty"`
	Tags      []string `json:"tg,omitempty"`
}

func encodeEntry(e *entry) ([]byte, error) {
	envelope := poolEnvelope{
		Marker: envelopeMarker,
		Value:  cloneBytes(e.value),
		Tags:   cloneStrings(e.tags),
	}
	if !e.expiresAt.IsZero() {
		envelope.ExpiresAt = e.expiresAt.UnixMilli()
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal cache envelope: %w", err)
	}
	return body, nil
}

// decodeEntry unwraps a stored envelope. Bytes written outside the pool
// (no marker) are surfaced as a raw value with no expiry and no tags.
func decodeEntry(body []byte) *entry {
	if len(body) == 0 || body[0] != '{' {
		return &entry{value: cloneBytes(body)}
	}
	var envelope poolEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Marker != envelopeMarker {
		return &entry{value: cloneBytes(body)}
	}
	e := &entry{
		value: cloneBytes(envelope.Value),
		tags:  cloneStrings(envelope.Tags),
	}
	if envelope.ExpiresAt > 0 {
		e.expiresAt = time.UnixMilli(envelope.ExpiresAt)
	}
	return e
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
