package cmap

import "sync"

// Map is a typed wrapper around sync.Map. Each operation is individually
// atomic; compound read-modify-write sequences need external locking.
type Map[K comparable, V any] struct {
	cMap sync.Map
}

func NewMap[K comparable, V any]() Map[K, V] {
	return Map[K, V]{}
}

func (m *Map[K, V]) Get(k K) (*V, bool) {
	v, exists := m.cMap.Load(k)
	if !exists {
		return nil, false
	}

	val := v.(V)
	return &val, true
}

func (m *Map[K, V]) Has(k K) bool {
	_, exists := m.cMap.Load(k)
	return exists
}

func (m *Map[K, V]) Set(k K, v V) {
	m.cMap.Store(k, v)
}

// SetIfAbsent stores v under k only if k is not present and reports whether it did.
func (m *Map[K, V]) SetIfAbsent(k K, v V) bool {
	_, loaded := m.cMap.LoadOrStore(k, v)
	return !loaded
}

func (m *Map[K, V]) Delete(k K) {
	m.cMap.Delete(k)
}

// Pop removes k and returns the value it held.
func (m *Map[K, V]) Pop(k K) (*V, bool) {
	v, loaded := m.cMap.LoadAndDelete(k)
	if !loaded {
		return nil, false
	}

	val := v.(V)
	return &val, true
}

func (m *Map[K, V]) Range(f func(k K, v V) bool) {
	m.cMap.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}

func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0)
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})

	return keys
}

func (m *Map[K, V]) Len() int {
	n := 0
	m.cMap.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.cMap.Range(func(k, _ any) bool {
		m.cMap.Delete(k)
		return true
	})
}
