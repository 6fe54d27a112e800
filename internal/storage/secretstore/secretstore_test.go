package secretstore

import (
	"context"
	"errors"
	"testing"
)

func TestInMemorySetGet(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Set(ctx, "qdrant-api-key", "super-secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := s.Get(ctx, "qdrant-api-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "super-secret" {
		t.Fatalf("unexpected value: %q", v)
	}
}
