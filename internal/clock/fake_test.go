package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2024, 3, 31, 23, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	c := NewFakeClock(start)
	assert.Equal(t, time.UTC, c.Now().Location())

	c.Advance(2 * time.Hour)
	assert.Equal(t, start.Add(2*time.Hour).UTC(), c.Now())

	var _ Clock = c
	var _ Clock = SystemClock{}
}
