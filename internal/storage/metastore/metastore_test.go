package metastore

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Put(ctx, "p-1", map[string]any{"name": "pipeline-1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := s.Get(ctx, "p-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v["name"] != "pipeline-1" {
		t.Fatalf("unexpected value: %v", v)
	}

	if err := s.Delete(ctx, "p-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "p-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryGetReturnsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	_ = s.Put(ctx, "p-1", map[string]any{"count": 1})

	v, _ := s.Get(ctx, "p-1")
	v["count"] = 999

	v2, _ := s.Get(ctx, "p-1")
	if v2["count"] != 1 {
		t.Fatalf("mutation of returned map leaked into store: %v", v2)
	}
}

func TestInMemoryList(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	_ = s.Put(ctx, "a", map[string]any{"x": 1})
	_ = s.Put(ctx, "b", map[string]any{"x": 2})

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
}
