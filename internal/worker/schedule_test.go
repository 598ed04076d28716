package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailyAt(t *testing.T) {
	s := DailyAt(9, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), s.Next(time.Date(2026, 3, 10, 8, 59, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), s.Next(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), s.Next(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)))
}

func TestDailyAtMidnightInZone(t *testing.T) {
	rome := time.FixedZone("CET", 3600)
	s := DailyAt(0, 0, rome)

	next := s.Next(time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), next.UTC())
}

func TestEveryHours(t *testing.T) {
	s := EveryHours(6, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), s.Next(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC), s.Next(time.Date(2026, 3, 10, 13, 5, 0, 0, time.UTC)))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), s.Next(time.Date(2026, 3, 10, 18, 0, 1, 0, time.UTC)))
}

func TestEvery(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Minute), Every(time.Minute).Next(now))
	assert.Panics(t, func() { Every(0) })
}
