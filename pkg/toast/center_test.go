package toast

import (
	"testing"
	"time"
)

func TestPushReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	t.Cleanup(c.Close)

	first, unsubFirst := c.Subscribe(2)
	defer unsubFirst()
	second, unsubSecond := c.Subscribe(2)
	defer unsubSecond()

	pushed := c.Push(LevelInfo, "Scheduler run", "3 reminders sent")
	if pushed.ID == "" {
		t.Fatal("expected generated toast id")
	}

	for _, ch := range []<-chan Toast{first, second} {
		select {
		case got := <-ch:
			if got.ID != pushed.ID {
				t.Fatalf("toast id = %q, want %q", got.ID, pushed.ID)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive toast")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	t.Cleanup(c.Close)

	ch, unsubscribe := c.Subscribe(1)
	unsubscribe()
	unsubscribe() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}

	// Pushing after unsubscribe must not panic.
	c.Push(LevelInfo, "after", "")
}

func TestSubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	t.Parallel()

	c := NewCenter()
	c.Close()

	ch, _ := c.Subscribe(1)
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from closed center")
	}
}
