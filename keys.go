package cachepool

import (
	"errors"
	"fmt"
	"strings"
)

// reservedKeyChars are rejected in keys and tags. The set matches the common
// cache-pool contract so keys stay portable across backends.
const reservedKeyChars = `{}()/\@:`

var (
	// ErrInvalidKey marks validation failures for keys and tags. Use
	// errors.Is to distinguish them from backend errors; a miss is never
	// reported as an error.
	ErrInvalidKey = errors.New("cachepool: invalid key")

	// ErrPoolClosed is returned by every operation after Close.
	ErrPoolClosed = errors.New("cachepool: pool is closed")
)

// KeyError reports a malformed key or tag. It wraps ErrInvalidKey.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("cachepool: invalid key %q: %s", e.Key, e.Reason)
}

func (e *KeyError) Unwrap() error { return ErrInvalidKey }

// validateKey accepts any non-empty key free of reserved characters.
// There is no upper length bound; keys of several hundred characters are fine.
func validateKey(key string) error {
	if key == "" {
		return &KeyError{Key: key, Reason: "key is empty"}
	}
	if i := strings.IndexAny(key, reservedKeyChars); i >= 0 {
		return &KeyError{Key: key, Reason: fmt.Sprintf("reserved character %q", key[i])}
	}
	return nil
}

// validateKeys checks every key up front so batch operations fail whole,
// before any element is touched.
func validateKeys(keys []string) error {
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return err
		}
	}
	return nil
}
