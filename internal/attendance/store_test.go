package attendance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/testutil"
)

func TestCloseExpired(t *testing.T) {
	db := testutil.OpenDB(t)
	now := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	stale := models.Attendance{UserID: uuid.New(), WorkDate: "2024-03-11", ClockIn: now.Add(-20 * time.Hour)}
	fresh := models.Attendance{UserID: uuid.New(), WorkDate: "2024-03-12", ClockIn: now.Add(-time.Hour)}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)

	closed, err := CloseExpired(db, now, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	var got models.Attendance
	require.NoError(t, db.First(&got, "id = ?", stale.ID).Error)
	require.NotNil(t, got.ClockOut)
	assert.True(t, got.ClockOut.Equal(stale.ClockIn.Add(12*time.Hour)))
	require.NotNil(t, got.Duration)
	assert.Equal(t, int64(12*3600), *got.Duration)

	var untouched models.Attendance
	require.NoError(t, db.First(&untouched, "id = ?", fresh.ID).Error)
	assert.Nil(t, untouched.ClockOut)

	closed, err = CloseExpired(db, now, 12)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestToday(t *testing.T) {
	db := testutil.OpenDB(t)
	userID := uuid.New()
	now := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	record, err := Today(db, userID, now)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, db.Create(&models.Attendance{UserID: userID, WorkDate: "2024-03-12", ClockIn: now}).Error)
	record, err = Today(db, userID, now)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StateWorking, DayState(record))
}
