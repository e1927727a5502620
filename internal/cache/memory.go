// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"container/list"
	"sync"
)

const (
	// DefaultMaxEntries bounds the number of decoded pictures held in memory.
	DefaultMaxEntries = 100
	// DefaultMaxCost bounds their summed cost in bytes (50 MiB).
	DefaultMaxCost int64 = 50 << 20
)

// Memory is a least-recently-used map bounded by both an entry count and a
// total cost. A limit <= 0 disables that bound. Safe for concurrent use.
type Memory[V any] struct {
	mu         sync.Mutex
	maxEntries int
	maxCost    int64
	cost       int64
	ll         *list.List
	items      map[string]*list.Element
}

type memoryEntry[V any] struct {
	key   string
	value V
	cost  int64
}

// NewMemory returns an empty Memory with the given limits.
func NewMemory[V any](maxEntries int, maxCost int64) *Memory[V] {
	return &Memory[V]{
		maxEntries: maxEntries,
		maxCost:    maxCost,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the value for key and marks it most recently used.
func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.ll.MoveToFront(el)
		return el.Value.(*memoryEntry[V]).value, true
	}
	var zero V
	return zero, false
}

// Put stores value under key with the given cost, replacing any previous
// value, then evicts from the least recently used end until both limits
// hold. A value whose cost alone exceeds the cost limit is not stored and
// Put reports false.
func (m *Memory[V]) Put(key string, value V, cost int64) bool {
	if cost < 0 {
		cost = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxCost > 0 && cost > m.maxCost {
		if el, ok := m.items[key]; ok {
			m.removeElement(el)
		}
		return false
	}

	if el, ok := m.items[key]; ok {
		e := el.Value.(*memoryEntry[V])
		m.cost += cost - e.cost
		e.value = value
		e.cost = cost
		m.ll.MoveToFront(el)
	} else {
		el := m.ll.PushFront(&memoryEntry[V]{key: key, value: value, cost: cost})
		m.items[key] = el
		m.cost += cost
	}

	m.evict()
	return true
}

// Remove drops key if present.
func (m *Memory[V]) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}
}

// Clear drops every entry.
func (m *Memory[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ll.Init()
	m.items = make(map[string]*list.Element)
	m.cost = 0
}

// Len is the number of entries held.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

// Cost is the summed cost of the entries held.
func (m *Memory[V]) Cost() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cost
}

// Limits returns the configured entry and cost bounds.
func (m *Memory[V]) Limits() (int, int64) {
	return m.maxEntries, m.maxCost
}

// evict must be called with mu held.
func (m *Memory[V]) evict() {
	for m.ll.Len() > 0 && m.over() {
		m.removeElement(m.ll.Back())
	}
}

func (m *Memory[V]) over() bool {
	if m.maxEntries > 0 && m.ll.Len() > m.maxEntries {
		return true
	}
	return m.maxCost > 0 && m.cost > m.maxCost
}

func (m *Memory[V]) removeElement(el *list.Element) {
	e := el.Value.(*memoryEntry[V])
	m.ll.Remove(el)
	delete(m.items, e.key)
	m.cost -= e.cost
}
