package observe

import (
	"context"
	"testing"
	"time"
)

func TestValue_LoadStoreUpdate(t *testing.T) {
	v := NewValue(1)
	if got := v.Load(); got != 1 {
		t.Errorf("Expected 1, got %d", got)
	}
	v.Store(5)
	if got := v.Update(func(n int) int { return n * 2 }); got != 10 {
		t.Errorf("Expected 10 from Update, got %d", got)
	}
	if got := v.Load(); got != 10 {
		t.Errorf("Expected 10, got %d", got)
	}
}

func TestValue_SubscribeReceivesCurrentAndLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := NewValue("a")
	ch := v.Subscribe(ctx)
	if got := <-ch; got != "a" {
		t.Errorf("Expected initial value 'a', got %q", got)
	}

	v.Store("b")
	v.Store("c")
	if got := <-ch; got != "c" {
		t.Errorf("Expected latest value 'c', got %q", got)
	}
}

func TestValue_SubscriptionClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := NewValue(0)
	ch := v.Subscribe(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// a value may race with the close; the next receive must see it closed
			if _, ok := <-ch; ok {
				t.Error("Expected channel to be closed")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("Subscription was not closed after cancel")
	}
	if n := v.Subscribers(); n != 0 {
		t.Errorf("Expected no subscribers, got %d", n)
	}
}
