package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/SummerNgcobo/parakeet/internal/models"
)

// Open connects with the named driver and migrates the schema. Callers
// do not need to run Migrate themselves.
func Open(driver string, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	database, err := gorm.Open(dialector, Config())
	if err != nil {
		return nil, err
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}

	return database, nil
}

// Config is shared by every dialector so unique violations surface as
// gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}
}

func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.Trainee{},
		&models.Staff{},
		&models.User{},
		&models.Setting{},
		&models.AccountToken{},
		&models.RefreshToken{},
		&models.Attendance{},
		&models.LeaveRequest{},
		&models.Assignment{},
		&models.AssignmentUser{},
		&models.Event{},
		&models.EventAttendance{},
		&models.Conversation{},
		&models.Message{},
		&models.Avatar{},
		&models.TraineeReview{},
	)
}
