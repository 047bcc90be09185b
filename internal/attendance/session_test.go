package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SummerNgcobo/parakeet/internal/models"
)

func at(hour, minute, second int) time.Time {
	return time.Date(2024, 3, 11, hour, minute, second, 0, time.UTC)
}

func TestDayStateTransitions(t *testing.T) {
	assert.Equal(t, StateReady, DayState(nil))

	record := &models.Attendance{ClockIn: at(8, 0, 0)}
	assert.Equal(t, StateWorking, DayState(record))

	out := at(16, 30, 0)
	record.ClockOut = &out
	assert.Equal(t, StateEnded, DayState(record))
	assert.False(t, CanClockIn(DayState(record)))
	assert.False(t, CanClockOut(DayState(record)))
}

func TestCanClockIn(t *testing.T) {
	assert.True(t, CanClockIn(StateReady))
	assert.False(t, CanClockIn(StateWorking))
	assert.True(t, CanClockOut(StateWorking))
	assert.False(t, CanClockOut(StateReady))
}

func TestElapsedAndFormat(t *testing.T) {
	record := &models.Attendance{ClockIn: at(8, 0, 0)}
	d := Elapsed(record, at(9, 2, 5))
	assert.Equal(t, "01:02:05", FormatClock(d))

	out := at(10, 0, 0)
	record.ClockOut = &out
	assert.Equal(t, 2*time.Hour, Elapsed(record, at(23, 0, 0)))

	running := &models.Attendance{ClockIn: at(8, 0, 0)}
	assert.Equal(t, time.Duration(0), Elapsed(running, at(1, 0, 0)))
	assert.Equal(t, time.Duration(0), Elapsed(nil, at(1, 0, 0)))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatClock(0))
	assert.Equal(t, "00:00:00", FormatClock(-time.Minute))
	assert.Equal(t, "26:00:01", FormatClock(26*time.Hour+time.Second))
}

func TestDuration(t *testing.T) {
	record := &models.Attendance{ClockIn: at(8, 0, 0)}
	record.FillDuration()
	assert.Nil(t, record.Duration)

	out := at(8, 30, 0)
	record.ClockOut = &out
	record.FillDuration()
	require.NotNil(t, record.Duration)
	assert.Equal(t, int64(1800), *record.Duration)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("SAST", 2*60*60)
	start, end := DayBounds(time.Date(2024, 3, 11, 23, 59, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), end)
	assert.Equal(t, "2024-03-11", WorkDate(start))
}

func TestShiftEnd(t *testing.T) {
	in := at(8, 0, 0)
	assert.Equal(t, at(12, 0, 0), ShiftEnd(in, at(12, 0, 0), 12))
	assert.Equal(t, at(20, 0, 0), ShiftEnd(in, at(23, 0, 0), 12))
	assert.Equal(t, at(23, 0, 0), ShiftEnd(in, at(23, 0, 0), 0))
}
