package cyclelock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerSerializesSameCycle(t *testing.T) {
	l := NewLocalLocker(nil)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, snowflake.ID(1))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.slots)
}

func TestLocalLockerDifferentCyclesIndependent(t *testing.T) {
	l := NewLocalLocker(nil)
	ctx := context.Background()

	r1, err := l.Acquire(ctx, snowflake.ID(1))
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(ctx, snowflake.ID(2))
	require.NoError(t, err)
	r2()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker(nil)
	release, err := l.Acquire(context.Background(), snowflake.ID(1))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, snowflake.ID(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Empty(t, l.slots)
}
