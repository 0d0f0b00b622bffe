package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fake(start)
	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "time stands still")

	c.Advance(7 * 24 * time.Hour)
	assert.Equal(t, start.AddDate(0, 0, 7), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestRealClockMoves(t *testing.T) {
	before := time.Now()
	assert.False(t, Real().Now().Before(before))
}
