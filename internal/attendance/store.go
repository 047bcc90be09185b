package attendance

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/models"
)

// CloseExpired closes every open session that started more than
// maxShiftHours before now, stamping the clock-out at the shift limit.
// It returns the number of sessions closed.
func CloseExpired(db *gorm.DB, now time.Time, maxShiftHours int) (int, error) {
	if maxShiftHours <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-time.Duration(maxShiftHours) * time.Hour)

	var records []models.Attendance
	if err := db.Where("clock_out IS NULL AND clock_in <= ?", cutoff).Find(&records).Error; err != nil {
		return 0, err
	}

	closed := 0
	for i := range records {
		limit := records[i].ClockIn.Add(time.Duration(maxShiftHours) * time.Hour)
		res := db.Model(&models.Attendance{}).
			Where("id = ? AND clock_out IS NULL", records[i].ID).
			Update("clock_out", limit)
		if res.Error != nil {
			return closed, res.Error
		}
		closed += int(res.RowsAffected)
	}
	return closed, nil
}

// Today loads userID's record for the day containing now, or nil.
func Today(db *gorm.DB, userID uuid.UUID, now time.Time) (*models.Attendance, error) {
	var record models.Attendance
	err := db.Where("user_id = ? AND work_date = ?", userID, WorkDate(now)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
