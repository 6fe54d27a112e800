package source

import (
	"context"
	"testing"
	"time"

	"github.com/querent-ai/querent-go/internal/pipeline"
)

func TestStaticReplaysItems(t *testing.T) {
	items := []pipeline.CollectedBytes{
		{File: "a.txt", Data: []byte("hello")},
		{File: "a.txt", Data: nil, Eof: true},
	}
	s := NewStatic(items)
	if err := s.CheckConnectivity(context.Background()); err != nil {
		t.Fatalf("CheckConnectivity: %v", err)
	}
	ch, err := s.PollData(context.Background())
	if err != nil {
		t.Fatalf("PollData: %v", err)
	}
	var got []pipeline.CollectedBytes
	for r := range ch {
		v, err := r.Unwrap()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, v)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
}

func TestFlakyFailsThenSucceeds(t *testing.T) {
	f := NewFlaky([]pipeline.CollectedBytes{{File: "b.txt", Data: []byte("x")}}, 2)
	ctx := context.Background()

	if err := f.CheckConnectivity(ctx); err == nil {
		t.Fatal("expected first connectivity check to fail")
	}
	if err := f.CheckConnectivity(ctx); err == nil {
		t.Fatal("expected second connectivity check to fail")
	}
	if err := f.CheckConnectivity(ctx); err != nil {
		t.Fatalf("expected third connectivity check to succeed, got %v", err)
	}

	if _, err := f.PollData(ctx); err == nil {
		t.Fatal("expected first poll to fail")
	}
	if _, err := f.PollData(ctx); err == nil {
		t.Fatal("expected second poll to fail")
	}
	ch, err := f.PollData(ctx)
	if err != nil {
		t.Fatalf("expected third poll to succeed, got %v", err)
	}
	count := 0
	for range ch {
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 item, got %d", count)
	}
}

func TestPollWithRetryEventuallySucceeds(t *testing.T) {
	f := NewFlaky([]pipeline.CollectedBytes{{File: "c.txt", Data: []byte("y")}}, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := PollWithRetry(ctx, f)
	if err != nil {
		t.Fatalf("PollWithRetry: %v", err)
	}
	count := 0
	for range ch {
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 item, got %d", count)
	}
}

func TestRequestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := NewRequestSemaphore(2, 1000)
	ctx := context.Background()

	release1, err := sem.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release2, err := sem.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		release, err := sem.Acquire(ctx)
		if err == nil {
			release()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should have blocked while two slots are held")
	case <-time.After(50 * time.Millisecond):
	}

	release1()
	release2()
	<-acquired
}
