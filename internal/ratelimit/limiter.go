// Package ratelimit throttles session creation per client IP with a fixed
// window counter. The in-memory limiter is the default; a Redis-backed one
// lets several relay instances share a budget.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the admission-control contract used by the HTTP surface.
// Check consumes one slot if available; Info reports live counters without
// consuming anything.
type Limiter interface {
	Check(ctx context.Context, key string) bool
	Info(ctx context.Context, key string) (remaining int, resetAt time.Time)
}

type entry struct {
	count   int
	resetAt time.Time
}

// Memory is a mutex-guarded fixed-window counter per key.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	max     int
}

func NewMemory(window time.Duration, max int) *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
	}
}

// Check returns true and counts the request if the key is under its limit.
// A missing or expired window starts fresh with count 1.
func (m *Memory) Check(_ context.Context, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, ok := m.entries[key]
	if !ok || now.After(e.resetAt) {
		m.entries[key] = &entry{count: 1, resetAt: now.Add(m.window)}
		return true
	}
	if e.count >= m.max {
		return false
	}
	e.count++
	return true
}

// Info returns the remaining budget and window reset time. A fresh or
// expired window reports the full budget.
func (m *Memory) Info(_ context.Context, key string) (int, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, ok := m.entries[key]
	if !ok || now.After(e.resetAt) {
		return m.max, now.Add(m.window)
	}
	remaining := m.max - e.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, e.resetAt
}

// Sweep drops entries whose window has passed, bounding memory. Returns the
// number removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range m.entries {
		if now.After(e.resetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
