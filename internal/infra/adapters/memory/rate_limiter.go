package memory

import (
	"sync"
	"time"
)

// RateLimiter - ограничитель частоты по ключу в скользящем окне
type RateLimiter interface {
	Allow(key string) bool
}

type slidingWindowLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time

	max    int
	window time.Duration

	// lastSweep - момент последней чистки затихших ключей
	lastSweep time.Time
}

// NewRateLimiter создает лимитер: не более max событий на ключ за window
func NewRateLimiter(max int, window time.Duration) RateLimiter {
	return &slidingWindowLimiter{
		events:    make(map[string][]time.Time),
		max:       max,
		window:    window,
		lastSweep: time.Now(),
	}
}

func (l *slidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	// Затихшие ключи иначе копятся вечно: раз в окно выбрасываем пустые
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	kept := pruneOld(l.events[key], cutoff)
	if len(kept) >= l.max {
		l.events[key] = kept
		return false
	}

	l.events[key] = append(kept, now)

	return true
}

func (l *slidingWindowLimiter) sweep(cutoff time.Time) {
	for key, ts := range l.events {
		kept := pruneOld(ts, cutoff)
		if len(kept) == 0 {
			delete(l.events, key)
			continue
		}

		l.events[key] = kept
	}
}

func pruneOld(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}
