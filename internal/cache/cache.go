package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Cache is the key-value collaborator the pipeline caches provider
// payloads and badge counts in. The core never assumes a particular
// backing store.
type Cache interface {
	// Get returns the stored value and whether the key existed.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EncodeJSON marshals v and gzips the result. Provider payloads are
// large and repetitive; compression keeps both the cache and the archive
// small.
func EncodeJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJSON reverses EncodeJSON.
func DecodeJSON(compressed []byte, v any) error {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err := zr.Close(); err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// SetJSON stores v under key as gzip-compressed JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	encoded, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, encoded, ttl)
}

// GetJSON loads a value stored with SetJSON. The second return reports
// whether the key existed.
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	compressed, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := DecodeJSON(compressed, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
