package cache

import "sync"

type LRUNode[K comparable, V any] struct {
	Key K
	Val V

	Prev *LRUNode[K, V]
	Next *LRUNode[K, V]
}

// LRU is a fixed capacity least-recently-used cache, safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	cache    map[K]*LRUNode[K, V]

	left  *LRUNode[K, V]
	right *LRUNode[K, V]
}

func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	left, right := &LRUNode[K, V]{}, &LRUNode[K, V]{}

	left.Next = right
	right.Prev = left

	return &LRU[K, V]{
		left:     left,
		right:    right,
		capacity: capacity,
		cache:    make(map[K]*LRUNode[K, V]),
	}
}

func (l *LRU[K, V]) Put(key K, value V) {
	if l.capacity <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	node, exists := l.cache[key]
	if exists {
		l.deleteNode(node)
	}

	node = &LRUNode[K, V]{Key: key, Val: value}
	l.cache[key] = node
	l.insertNode(node)

	if l.capacityReached() {
		l.evict()
	}
}

func (l *LRU[K, V]) Get(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, exists := l.cache[key]
	if !exists {
		var zero V
		return zero, false
	}

	l.deleteNode(node)
	l.insertNode(node)

	return node.Val, true
}

// Remove drops key from the cache if present.
func (l *LRU[K, V]) Remove(key K) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, exists := l.cache[key]
	if !exists {
		return
	}

	l.deleteNode(node)
	delete(l.cache, key)
}

func (l *LRU[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.cache)
}

func (l *LRU[K, V]) capacityReached() bool {
	return len(l.cache) > l.capacity
}

func (l *LRU[K, V]) evict() {
	lru := l.left.Next
	l.deleteNode(lru)

	delete(l.cache, lru.Key)
}

func (l *LRU[K, V]) insertNode(node *LRUNode[K, V]) {
	prev, next := l.right.Prev, l.right

	node.Prev = prev
	node.Next = next

	prev.Next = node
	next.Prev = node
}

func (l *LRU[K, V]) deleteNode(node *LRUNode[K, V]) {
	prev, next := node.Prev, node.Next

	prev.Next = next
	next.Prev = prev
}
