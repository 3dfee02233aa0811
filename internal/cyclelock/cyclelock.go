// Package cyclelock serializes state transitions of one billing cycle
// across requests, and across processes when Redis is configured.
package cyclelock

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	DefaultTTL      = 30 * time.Second
	DefaultWait     = 10 * time.Second
	defaultInterval = 50 * time.Millisecond
	keyCycleLock    = "buildingbills:cycle:lock:%s"
)

var ErrLockTimeout = errors.New("cycle_lock_timeout")

// Locker hands out an exclusive hold on a cycle. The returned release func
// is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, cycleID snowflake.ID) (release func(), err error)
	Backend() string
}
