package worker

import (
	"fmt"
	"time"
)

// Schedule yields the next fire time strictly after now.
type Schedule interface {
	Next(now time.Time) time.Time
}

type every struct {
	interval time.Duration
}

// Every fires at a fixed interval from the previous run.
func Every(interval time.Duration) Schedule {
	if interval <= 0 {
		panic(fmt.Sprintf("worker: non-positive interval %s", interval))
	}
	return every{interval: interval}
}

func (e every) Next(now time.Time) time.Time {
	return now.Add(e.interval)
}

type dailyAt struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt fires once a day at hour:minute wall-clock time in loc.
func DailyAt(hour, minute int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.Local
	}
	return dailyAt{hour: hour, minute: minute, loc: loc}
}

func (d dailyAt) Next(now time.Time) time.Time {
	local := now.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

type hourStep struct {
	step int
	loc  *time.Location
}

// EveryHours fires on the hour whenever the hour of day is a multiple of
// step, e.g. 00:00, 06:00, 12:00 and 18:00 for a step of 6.
func EveryHours(step int, loc *time.Location) Schedule {
	if step <= 0 || step > 24 {
		panic(fmt.Sprintf("worker: hour step %d out of range", step))
	}
	if loc == nil {
		loc = time.Local
	}
	return hourStep{step: step, loc: loc}
}

func (h hourStep) Next(now time.Time) time.Time {
	local := now.In(h.loc)
	hour := (local.Hour()/h.step + 1) * h.step
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, h.loc)
}
