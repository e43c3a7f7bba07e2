package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToday_TruncatesToDate(t *testing.T) {
	c := NewMockClock(time.Date(2024, 3, 9, 17, 45, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Today(c))
}

func TestMockClock_SetAndAdd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	c.Add(48 * time.Hour)
	assert.Equal(t, start.AddDate(0, 0, 2), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestRealClock_Advances(t *testing.T) {
	c := NewRealClock()
	before := time.Now()
	assert.False(t, c.Now().Before(before))
}
