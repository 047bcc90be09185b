// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/attendance"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

const (
	AttendanceSpec = "@every 15m"
	TokenPurgeSpec = "@hourly"
)

type Scheduler struct {
	cron          *cron.Cron
	db            *gorm.DB
	log           *logger.Logger
	maxShiftHours int
	now           func() time.Time
}

func New(db *gorm.DB, log *logger.Logger, maxShiftHours int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		db:            db,
		log:           log,
		maxShiftHours: maxShiftHours,
		now:           time.Now,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(AttendanceSpec, s.CloseAttendance); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(TokenPurgeSpec, s.PurgeTokens); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) CloseAttendance() {
	closed, err := attendance.CloseExpired(s.db, s.now(), s.maxShiftHours)
	if err != nil {
		s.log.Error("closing expired attendance", err)
		return
	}
	if closed > 0 {
		s.log.Info("closed expired attendance", map[string]interface{}{"count": closed})
	}
}

// PurgeTokens drops expired refresh tokens and spent account tokens.
// Revoked refresh tokens are kept until they expire so replays are still
// recognised.
func (s *Scheduler) PurgeTokens() {
	now := s.now()
	if err := s.db.Where("expires_at < ?", now).Delete(&models.RefreshToken{}).Error; err != nil {
		s.log.Error("purging refresh tokens", err)
	}
	if err := s.db.Where("expires_at < ? OR used_at IS NOT NULL", now).Delete(&models.AccountToken{}).Error; err != nil {
		s.log.Error("purging account tokens", err)
	}
}
