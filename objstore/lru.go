package objstore

import (
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// lru is a mutex-guarded least-recently-used cache. Each value has a cost;
// the cache evicts the oldest entries while the total cost exceeds budget.
// A budget of zero or less disables eviction.
type lru[K comparable, V any] struct {
	mu      sync.Mutex
	c       *simplelru.LRU[K, V]
	budget  int64
	used    int64
	cost    func(V) int64
	evicted func()
}

func newLRU[K comparable, V any](budget int64, cost func(V) int64) *lru[K, V] {
	l := &lru[K, V]{budget: budget, cost: cost}
	// Capacity is unbounded; eviction follows the cost budget.
	c, err := simplelru.NewLRU[K, V](math.MaxInt, func(_ K, v V) { l.used -= l.cost(v) })
	if err != nil {
		panic(err)
	}
	l.c = c
	return l
}

func (l *lru[K, V]) get(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Get(key)
}

func (l *lru[K, V]) put(key K, val V) {
	cost := l.cost(val)
	l.mu.Lock()
	defer l.mu.Unlock()
	if old, ok := l.c.Peek(key); ok {
		l.used -= l.cost(old)
	}
	l.c.Add(key, val)
	l.used += cost
	l.evictLocked()
}

// evictLocked drops the oldest entries until within budget. The most
// recent entry is always kept so a single oversized value still caches.
func (l *lru[K, V]) evictLocked() {
	if l.budget <= 0 {
		return
	}
	for l.used > l.budget && l.c.Len() > 1 {
		if _, _, ok := l.c.RemoveOldest(); !ok {
			return
		}
		if l.evicted != nil {
			l.evicted()
		}
	}
}

func (l *lru[K, V]) setBudget(budget int64) {
	l.mu.Lock()
	l.budget = budget
	l.evictLocked()
	l.mu.Unlock()
}

func (l *lru[K, V]) clear() {
	l.mu.Lock()
	l.c.Purge()
	l.used = 0
	l.mu.Unlock()
}

func (l *lru[K, V]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Len()
}
