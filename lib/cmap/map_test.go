package cmap

import (
	"sort"
	"sync"
	"testing"
)

func TestMapGetSetDelete(t *testing.T) {
	m := NewMap[string, int]()

	if _, ok := m.Get("a"); ok {
		t.Fatal("expected empty map")
	}

	m.Set("a", 1)
	v, ok := m.Get("a")
	if !ok || *v != 1 {
		t.Fatalf("got %v %v, want 1 true", v, ok)
	}

	if m.SetIfAbsent("a", 2) {
		t.Fatal("SetIfAbsent overwrote existing key")
	}

	popped, ok := m.Pop("a")
	if !ok || *popped != 1 {
		t.Fatalf("Pop returned %v %v", popped, ok)
	}

	if m.Has("a") {
		t.Fatal("key still present after Pop")
	}
}

func TestMapKeysAndClear(t *testing.T) {
	m := NewMap[string, int]()
	m.Set("b", 2)
	m.Set("a", 1)

	keys := m.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}

	m.Clear()
	if m.Len() != 0 {
		t.Fatalf("Len after Clear = %d", m.Len())
	}
}

func TestMapSetIfAbsentSingleWinner(t *testing.T) {
	m := NewMap[string, int]()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if m.SetIfAbsent("k", i) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}
