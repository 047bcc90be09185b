// Package directory keeps the central users table in step with the
// trainee and staff source tables.
package directory

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/models"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUnknownRole  = errors.New("unknown role")
	ErrUserNotFound = errors.New("user not found")
)

// Source is a row in one of the per-role source tables.
type Source interface {
	CentralUser() models.User
}

// SyncUser upserts the central user mirroring src, keyed by source table
// and source id. Call it inside the transaction that wrote src.
func SyncUser(tx *gorm.DB, src Source) (models.User, error) {
	desired := src.CentralUser()
	desired.Email = NormalizeEmail(desired.Email)

	var clash models.User
	err := tx.Where("email = ? AND NOT (source_table = ? AND source_user_id = ?)",
		desired.Email, desired.SourceTable, desired.SourceUserID).
		Take(&clash).Error
	if err == nil {
		return models.User{}, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, err
	}

	var current models.User
	err = tx.Where("source_table = ? AND source_user_id = ?", desired.SourceTable, desired.SourceUserID).
		Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := tx.Create(&desired).Error; err != nil {
			return models.User{}, err
		}
		return desired, nil
	}
	if err != nil {
		return models.User{}, err
	}

	updates := map[string]interface{}{
		"first_name":    desired.FirstName,
		"last_name":     desired.LastName,
		"email":         desired.Email,
		"password_hash": desired.PasswordHash,
		"role":          desired.Role,
		"validated":     desired.Validated,
	}
	if err := tx.Model(&current).Updates(updates).Error; err != nil {
		return models.User{}, err
	}
	current.FirstName = desired.FirstName
	current.LastName = desired.LastName
	current.Email = desired.Email
	current.PasswordHash = desired.PasswordHash
	current.Role = desired.Role
	current.Validated = desired.Validated
	return current, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func IsRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleTrainee, models.RoleFacilitator, models.RoleTechnicalMentor, models.RoleCareerCoach:
		return true
	}
	return false
}

// NewAccount describes a user created by an admin, the onboarding import
// or the createuser command.
type NewAccount struct {
	FirstName      string
	LastName       string
	Email          string
	Role           string
	Cohort         string
	Specialisation string
	PasswordHash   string
	Validated      bool
}

// CreateAccount writes the source row for acct.Role and syncs it.
func CreateAccount(tx *gorm.DB, acct NewAccount) (models.User, error) {
	if !IsRole(acct.Role) {
		return models.User{}, ErrUnknownRole
	}
	email := NormalizeEmail(acct.Email)

	var count int64
	if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return models.User{}, err
	}
	if count > 0 {
		return models.User{}, ErrEmailTaken
	}

	var src Source
	if acct.Role == models.RoleTrainee {
		trainee := &models.Trainee{
			FirstName:      strings.TrimSpace(acct.FirstName),
			LastName:       strings.TrimSpace(acct.LastName),
			Email:          email,
			PasswordHash:   acct.PasswordHash,
			Cohort:         strings.TrimSpace(acct.Cohort),
			Specialisation: strings.TrimSpace(acct.Specialisation),
			Validated:      acct.Validated,
		}
		if err := tx.Create(trainee).Error; err != nil {
			return models.User{}, translate(err)
		}
		src = trainee
	} else {
		staff := &models.Staff{
			FirstName:    strings.TrimSpace(acct.FirstName),
			LastName:     strings.TrimSpace(acct.LastName),
			Email:        email,
			PasswordHash: acct.PasswordHash,
			Role:         acct.Role,
			Validated:    acct.Validated,
		}
		if err := tx.Create(staff).Error; err != nil {
			return models.User{}, translate(err)
		}
		src = staff
	}

	return SyncUser(tx, src)
}

// LoadSource returns the source row behind a central user.
func LoadSource(tx *gorm.DB, user models.User) (Source, error) {
	switch user.SourceTable {
	case models.TraineeTable:
		var trainee models.Trainee
		if err := tx.First(&trainee, "id = ?", user.SourceUserID).Error; err != nil {
			return nil, notFound(err)
		}
		return &trainee, nil
	case models.StaffTable:
		var staff models.Staff
		if err := tx.First(&staff, "id = ?", user.SourceUserID).Error; err != nil {
			return nil, notFound(err)
		}
		return &staff, nil
	}
	return nil, ErrUserNotFound
}

// FindByEmail loads the central user for email.
func FindByEmail(tx *gorm.DB, email string) (models.User, error) {
	var user models.User
	if err := tx.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func FindByID(tx *gorm.DB, id uuid.UUID) (models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", id).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

// SetCredentials updates the password hash and validated flag on the
// source row of user and re-syncs the central row.
func SetCredentials(tx *gorm.DB, user models.User, passwordHash string, validated bool) (models.User, error) {
	src, err := LoadSource(tx, user)
	if err != nil {
		return models.User{}, err
	}
	updates := map[string]interface{}{"password_hash": passwordHash, "validated": validated}
	switch s := src.(type) {
	case *models.Trainee:
		if err := tx.Model(s).Updates(updates).Error; err != nil {
			return models.User{}, err
		}
		s.PasswordHash, s.Validated = passwordHash, validated
	case *models.Staff:
		if err := tx.Model(s).Updates(updates).Error; err != nil {
			return models.User{}, err
		}
		s.PasswordHash, s.Validated = passwordHash, validated
	}
	return SyncUser(tx, src)
}

// DeleteAccount soft-deletes the source row and removes the central user.
func DeleteAccount(tx *gorm.DB, user models.User) error {
	src, err := LoadSource(tx, user)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if src != nil {
		if err := tx.Delete(src).Error; err != nil {
			return err
		}
	}
	return tx.Delete(&models.User{}, "id = ?", user.ID).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}
