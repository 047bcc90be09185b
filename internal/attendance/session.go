// Package attendance holds the clock-in session rules shared by the
// attendance handlers and the scheduler.
package attendance

import (
	"fmt"
	"time"

	"github.com/SummerNgcobo/parakeet/internal/models"
)

type State string

const (
	StateReady   State = "ready"
	StateWorking State = "working"
	StateEnded   State = "ended"
)

const DateLayout = "2006-01-02"

// DayState derives the session state from the user's record for the day.
// A closed record keeps the user in StateEnded until the next day.
func DayState(record *models.Attendance) State {
	if record == nil {
		return StateReady
	}
	if record.ClockOut == nil {
		return StateWorking
	}
	return StateEnded
}

// CanClockIn reports whether a new session may start.
func CanClockIn(state State) bool {
	return state == StateReady
}

func CanClockOut(state State) bool {
	return state == StateWorking
}

// Elapsed is the running time of an open session, or the final length of a
// closed one.
func Elapsed(record *models.Attendance, now time.Time) time.Duration {
	if record == nil {
		return 0
	}
	end := now
	if record.ClockOut != nil {
		end = *record.ClockOut
	}
	if end.Before(record.ClockIn) {
		return 0
	}
	return end.Sub(record.ClockIn)
}

// FormatClock renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// DayBounds returns [start of day, start of next day) in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// WorkDate is the calendar day key stored with a record.
func WorkDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ShiftEnd caps a clock-out at maxShiftHours after clock-in.
func ShiftEnd(clockIn time.Time, now time.Time, maxShiftHours int) time.Time {
	if maxShiftHours <= 0 {
		return now
	}
	limit := clockIn.Add(time.Duration(maxShiftHours) * time.Hour)
	if now.After(limit) {
		return limit
	}
	return now
}
