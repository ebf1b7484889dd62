package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestLockSerializesSameKey(t *testing.T) {
	kl := New()
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.Lock("file")
			defer unlock()

			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}

	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}

	if kl.Len() != 0 {
		t.Fatalf("lock entries leaked: %d", kl.Len())
	}
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	kl := New()
	unlockA := kl.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := kl.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}
