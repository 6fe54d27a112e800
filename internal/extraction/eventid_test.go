package extraction

import (
	"strconv"
	"testing"
	"time"
)

func TestNewEventIDIsTimeOrdered(t *testing.T) {
	t1 := epoch2020.Add(10 * time.Second)
	t2 := epoch2020.Add(20 * time.Second)
	id1 := NewEventID(t1)
	id2 := NewEventID(t2)

	n1, err := strconv.ParseUint(id1, 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := strconv.ParseUint(id2, 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	if n2 <= n1 {
		t.Fatalf("expected id2 (%d) > id1 (%d)", n2, n1)
	}
}

func TestNewEventIDNowProducesDecimal(t *testing.T) {
	id := NewEventIDNow()
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		t.Fatalf("expected valid decimal id, got %q: %v", id, err)
	}
}
