package cache

import (
	"testing"
	"time"
)

func TestGetReturnsFreshValue(t *testing.T) {
	t.Parallel()

	s := NewStore()
	t.Cleanup(s.Close)

	s.Set("tasks/list", []string{"a", "b"})
	value, fresh := s.Get("tasks/list")
	if !fresh {
		t.Fatal("expected fresh entry")
	}
	if got := value.([]string); len(got) != 2 {
		t.Fatalf("value = %v", got)
	}

	if _, fresh := s.Get("missing"); fresh {
		t.Fatal("expected miss for unknown key")
	}
}

func TestInvalidatePrefixMarksMatchingEntriesStale(t *testing.T) {
	t.Parallel()

	s := NewStore()
	t.Cleanup(s.Close)

	s.Set("tasks/list", 1)
	s.Set("tasks/list/technician", 2)
	s.Set("tasks/detail/42", 3)
	s.Set("taskstats", 4) // shares a textual prefix but not a path segment
	s.Set("payments", 5)

	if got := s.InvalidatePrefix("tasks/list"); got != 2 {
		t.Fatalf("touched = %d, want 2", got)
	}

	if _, fresh := s.Get("tasks/list"); fresh {
		t.Fatal("tasks/list should be stale")
	}
	if _, fresh := s.Get("tasks/list/technician"); fresh {
		t.Fatal("tasks/list/technician should be stale")
	}
	if _, fresh := s.Get("tasks/detail/42"); !fresh {
		t.Fatal("tasks/detail/42 should stay fresh")
	}
	if _, fresh := s.Get("taskstats"); !fresh {
		t.Fatal("taskstats should stay fresh (segment boundary)")
	}
	if _, fresh := s.Get("payments"); !fresh {
		t.Fatal("payments should stay fresh")
	}
}

func TestStaleValueStillReadable(t *testing.T) {
	t.Parallel()

	s := NewStore()
	t.Cleanup(s.Close)

	s.Set("revenue/summary", 1200)
	s.InvalidatePrefix("revenue/summary")

	value, fresh := s.Get("revenue/summary")
	if fresh {
		t.Fatal("expected stale entry")
	}
	if value != 1200 {
		t.Fatalf("stale value = %v, want 1200 for stale-while-revalidate", value)
	}

	// A refetch makes it fresh again.
	s.Set("revenue/summary", 1250)
	if _, fresh := s.Get("revenue/summary"); !fresh {
		t.Fatal("expected fresh entry after Set")
	}
}

func TestInvalidateNotifiesSubscribers(t *testing.T) {
	t.Parallel()

	s := NewStore()
	t.Cleanup(s.Close)

	ch, unsubscribe := s.Subscribe(4)
	defer unsubscribe()

	// No cached entry yet; subscribers are still told so screens can fetch.
	if got := s.InvalidatePrefix("customers"); got != 0 {
		t.Fatalf("touched = %d, want 0", got)
	}

	select {
	case prefix := <-ch:
		if prefix != "customers" {
			t.Fatalf("prefix = %q, want customers", prefix)
		}
	case <-time.After(time.Second):
		t.Fatal("no invalidation notification")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	t.Parallel()

	s := NewStore()
	t.Cleanup(s.Close)

	ch, unsubscribe := s.Subscribe(1)
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}

	s.InvalidatePrefix("accounts")
}
