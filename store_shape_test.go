package cachepool

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShapingStorePassthroughWhenDisabled(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	if got := newShapingStore(inner, CompressionNone, 0); got != inner {
		t.Fatalf("expected inner store returned when shaping is disabled")
	}
}

func TestShapingStoreGzipRoundTrip(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	store := newShapingStore(inner, CompressionGzip, 0)
	ctx := context.Background()

	payload := []byte(strings.Repeat("compressible ", 100))
	if err := store.Set(ctx, "k", payload, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	// The backend holds the compressed form.
	raw, ok, err := inner.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("inner get failed: ok=%v err=%v", ok, err)
	}
	if !bytes.HasPrefix(raw, compressMagic) {
		t.Fatalf("expected compressed payload in backend")
	}
	if len(raw) >= len(payload) {
		t.Fatalf("compression did not shrink payload: %d >= %d", len(raw), len(payload))
	}

	got, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, payload) {
		t.Fatalf("round trip failed: ok=%v err=%v", ok, err)
	}
}

func TestShapingStoreReadsUncompressedValues(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	store := newShapingStore(inner, CompressionGzip, 0)
	ctx := context.Background()

	if err := inner.Set(ctx, "legacy", []byte("plain"), 0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	got, ok, err := store.Get(ctx, "legacy")
	if err != nil || !ok || string(got) != "plain" {
		t.Fatalf("expected plain value read through: ok=%v got=%q err=%v", ok, got, err)
	}
}

func TestShapingStoreMaxValueSize(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	store := newShapingStore(inner, CompressionNone, 8)
	ctx := context.Background()

	if err := store.Set(ctx, "small", []byte("ok"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	err := store.Set(ctx, "big", []byte("far too large"), 0)
	if !errors.Is(err, ErrValueTooLarge) {
		t.Fatalf("expected ErrValueTooLarge, got %v", err)
	}
}

func TestEncryptingStoreRoundTrip(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	key := []byte("0123456789abcdef0123456789abcdef")
	store, err := newEncryptingStore(inner, key)
	if err != nil {
		t.Fatalf("encrypting store create failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("secret"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, ok, err := inner.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("inner get failed: ok=%v err=%v", ok, err)
	}
	if !bytes.HasPrefix(raw, encryptionMagic) {
		t.Fatalf("expected encrypted payload in backend")
	}
	if bytes.Contains(raw, []byte("secret")) {
		t.Fatalf("plaintext visible in backend")
	}

	got, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || string(got) != "secret" {
		t.Fatalf("round trip failed: ok=%v got=%q err=%v", ok, got, err)
	}
}

func TestEncryptingStoreNoKeyPassthrough(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	store, err := newEncryptingStore(inner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != inner {
		t.Fatalf("expected inner store returned without a key")
	}
}

func TestEncryptingStoreBadKey(t *testing.T) {
	if _, err := newEncryptingStore(newMemoryStore(time.Minute), []byte("short")); !errors.Is(err, ErrEncryptionKey) {
		t.Fatalf("expected ErrEncryptionKey, got %v", err)
	}
}

func TestEncryptingStoreTamperedPayload(t *testing.T) {
	inner := newMemoryStore(time.Minute)
	store, err := newEncryptingStore(inner, []byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("encrypting store create failed: %v", err)
	}
	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("secret"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, _, _ := inner.Get(ctx, "k")
	raw[len(raw)-1] ^= 0xff
	if err := inner.Set(ctx, "k", raw, 0); err != nil {
		t.Fatalf("tamper write failed: %v", err)
	}
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecodeValueCorruptCompression(t *testing.T) {
	body := append(append([]byte{}, compressMagic...), 'g')
	body = append(body, []byte("not gzip")...)
	if _, err := decodeValue(body); !errors.Is(err, ErrCorruptCompression) {
		t.Fatalf("expected ErrCorruptCompression, got %v", err)
	}
	if _, err := decodeValue(append(append([]byte{}, compressMagic...), 'z')); !errors.Is(err, ErrUnsupportedCodec) {
		t.Fatalf("expected ErrUnsupportedCodec, got %v", err)
	}
}
