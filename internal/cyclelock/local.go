package cyclelock

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/internal/observability/metrics"
)

// LocalLocker is a keyed mutex for single-process deployments.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[snowflake.ID]*slot
	metrics *metrics.EngineMetrics
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(m *metrics.EngineMetrics) *LocalLocker {
	return &LocalLocker{slots: map[snowflake.ID]*slot{}, metrics: m}
}

func (l *LocalLocker) Backend() string { return metrics.LockBackendLocal }

func (l *LocalLocker) Acquire(ctx context.Context, cycleID snowflake.ID) (func(), error) {
	s := l.ref(cycleID)
	start := time.Now()
	contended := false

	select {
	case s.ch <- struct{}{}:
	default:
		contended = true
		select {
		case s.ch <- struct{}{}:
		case <-ctx.Done():
			l.unref(cycleID)
			return nil, ctx.Err()
		}
	}
	l.metrics.ObserveLockWait(metrics.LockBackendLocal, time.Since(start), contended)

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(cycleID)
		})
	}, nil
}

func (l *LocalLocker) ref(id snowflake.ID) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[id] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) unref(id snowflake.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(l.slots, id)
	}
}
