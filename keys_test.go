package cachepool

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateKeyAcceptsOrdinaryKeys(t *testing.T) {
	for _, key := range []string{"alpha", "user.42", "|users|1|posts", "with spaces", "_-."} {
		if err := validateKey(key); err != nil {
			t.Fatalf("expected %q accepted, got %v", key, err)
		}
	}
}

func TestValidateKeyRejectsReservedCharacters(t *testing.T) {
	for _, r := range reservedKeyChars {
		key := "a" + string(r) + "b"
		err := validateKey(key)
		if err == nil {
			t.Fatalf("expected %q rejected", key)
		}
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey for %q, got %v", key, err)
		}
		var keyErr *KeyError
		if !errors.As(err, &keyErr) || keyErr.Key != key {
			t.Fatalf("expected KeyError with key %q, got %v", key, err)
		}
	}
}

func TestValidateKeyRejectsEmptyKey(t *testing.T) {
	err := validateKey("")
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for empty key, got %v", err)
	}
}

func TestValidateKeyHasNoLengthLimit(t *testing.T) {
	if err := validateKey(strings.Repeat("k", 1024)); err != nil {
		t.Fatalf("expected long key accepted, got %v", err)
	}
}

func TestValidateKeysFailsOnFirstBadKey(t *testing.T) {
	err := validateKeys([]string{"ok", "also-ok", "bad{", "never-checked"})
	var keyErr *KeyError
	if !errors.As(err, &keyErr) || keyErr.Key != "bad{" {
		t.Fatalf("expected failure on %q, got %v", "bad{", err)
	}
	if err := validateKeys(nil); err != nil {
		t.Fatalf("expected empty slice valid, got %v", err)
	}
}
