// Package accounts issues invite and password reset tokens and runs the
// account lifecycle flows built on them.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/hubspot"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/models"
	"github.com/SummerNgcobo/parakeet/internal/utils"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrEmailMismatch = errors.New("token does not belong to this email")
	ErrNotValidated  = errors.New("user is either invalidated or does not exist")
	ErrWeakPassword  = errors.New("password must be at least 8 characters")
)

type Service struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
	mail   email.Sender
	links  email.Links
	log    *logger.Logger
	now    func() time.Time
}

func New(db *gorm.DB, secret string, ttl time.Duration, mail email.Sender, links email.Links, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{db: db, secret: secret, ttl: ttl, mail: mail, links: links, log: log, now: time.Now}
}

// Issue signs a token for user and records it so it can be used once.
func (s *Service) Issue(tx *gorm.DB, user models.User, purpose string) (string, error) {
	raw, expiresAt, err := utils.GenerateAccountToken(user.ID.String(), user.Email, purpose, s.secret, s.ttl)
	if err != nil {
		return "", err
	}
	row := models.AccountToken{
		UserID:    user.ID,
		Email:     user.Email,
		Purpose:   purpose,
		Token:     raw,
		ExpiresAt: expiresAt,
	}
	if err := tx.Create(&row).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// Verify checks the signature of raw and that its record is still usable.
func (s *Service) Verify(tx *gorm.DB, raw string, purpose string) (models.AccountToken, *utils.AccountClaims, error) {
	claims, err := utils.ParseAccountToken(raw, purpose, s.secret)
	if err != nil {
		return models.AccountToken{}, nil, ErrInvalidToken
	}
	var row models.AccountToken
	if err := tx.Where("token = ? AND purpose = ?", raw, purpose).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AccountToken{}, nil, ErrInvalidToken
		}
		return models.AccountToken{}, nil, err
	}
	if !row.Usable(s.now()) || row.Email != claims.Email {
		return models.AccountToken{}, nil, ErrInvalidToken
	}
	return row, claims, nil
}

func (s *Service) consume(tx *gorm.DB, row models.AccountToken) error {
	res := tx.Model(&models.AccountToken{}).
		Where("id = ? AND used_at IS NULL", row.ID).
		Update("used_at", s.now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}

// Create adds a single account with a validation token and mails the invite.
func (s *Service) Create(ctx context.Context, acct directory.NewAccount) (models.User, error) {
	var user models.User
	var token string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = directory.CreateAccount(tx, acct)
		if err != nil {
			return err
		}
		token, err = s.Issue(tx, user, models.TokenPurposeValidation)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	if err := s.mail.Send(ctx, email.InviteMessage(s.links, user.Email, user.FirstName, token)); err != nil {
		s.log.Error("sending invite", err, map[string]interface{}{"email": user.Email})
	}
	return user, nil
}

type ImportResult struct {
	Imported []models.UserSummary `json:"imported"`
	Skipped  []string             `json:"skipped"`
}

// Import creates accounts for CRM contacts whose job title maps to a role.
// Contacts that already have an account, lack an email or have an unknown
// job title are skipped. No mail is sent; see SendInvites.
func (s *Service) Import(contacts []hubspot.Contact) (ImportResult, error) {
	result := ImportResult{Imported: []models.UserSummary{}, Skipped: []string{}}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, contact := range contacts {
			props := contact.Properties
			addr := directory.NormalizeEmail(props.Email)
			role, ok := hubspot.RoleForJobTitle(props.JobTitle)
			if addr == "" || !ok {
				result.Skipped = append(result.Skipped, strings.TrimSpace(props.Email))
				continue
			}
			user, err := directory.CreateAccount(tx, directory.NewAccount{
				FirstName:      props.FirstName,
				LastName:       props.LastName,
				Email:          addr,
				Role:           role,
				Cohort:         props.Cohort,
				Specialisation: props.Specialisation,
			})
			if errors.Is(err, directory.ErrEmailTaken) {
				result.Skipped = append(result.Skipped, addr)
				continue
			}
			if err != nil {
				return err
			}
			if _, err := s.Issue(tx, user, models.TokenPurposeValidation); err != nil {
				return err
			}
			result.Imported = append(result.Imported, user.Summary())
		}
		return nil
	})
	return result, err
}

// SendInvites mails every usable validation token of a not yet validated
// user and returns how many invites went out.
func (s *Service) SendInvites(ctx context.Context) (int, error) {
	type pending struct {
		Email     string
		FirstName string
		Token     string
	}
	var rows []pending
	err := s.db.Model(&models.AccountToken{}).
		Select("account_tokens.email, users.first_name, account_tokens.token").
		Joins("JOIN users ON users.id = account_tokens.user_id").
		Where("account_tokens.purpose = ? AND account_tokens.used_at IS NULL AND account_tokens.expires_at > ? AND users.validated = ?",
			models.TokenPurposeValidation, s.now(), false).
		Order("account_tokens.id").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		if err := s.mail.Send(ctx, email.InviteMessage(s.links, row.Email, row.FirstName, row.Token)); err != nil {
			s.log.Error("sending invite", err, map[string]interface{}{"email": row.Email})
			continue
		}
		sent++
	}
	if sent == 0 && len(rows) > 0 {
		return 0, errors.New("no invites could be sent")
	}
	return sent, nil
}

// SendPasswordReset mails a reset link to a validated user.
func (s *Service) SendPasswordReset(ctx context.Context, addr string) error {
	user, err := directory.FindByEmail(s.db, addr)
	if errors.Is(err, directory.ErrUserNotFound) {
		return ErrNotValidated
	}
	if err != nil {
		return err
	}
	if !user.Validated {
		return ErrNotValidated
	}
	token, err := s.Issue(s.db, user, models.TokenPurposePasswordReset)
	if err != nil {
		return err
	}
	return s.mail.Send(ctx, email.PasswordResetMessage(s.links, user.Email, user.FirstName, token))
}

// ResetPassword sets a new password using a reset token and revokes the
// user's refresh tokens.
func (s *Service) ResetPassword(raw string, password string) (models.User, error) {
	if len(password) < utils.MinPasswordLength {
		return models.User{}, ErrWeakPassword
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	var updated models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		row, _, err := s.Verify(tx, raw, models.TokenPurposePasswordReset)
		if err != nil {
			return err
		}
		user, err := directory.FindByID(tx, row.UserID)
		if err != nil {
			return err
		}
		if err := s.consume(tx, row); err != nil {
			return err
		}
		updated, err = directory.SetCredentials(tx, user, hash, user.Validated)
		if err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", s.now()).Error
	})
	return updated, err
}

// VerifyAccount validates an invited account. The token's email must match
// addr.
func (s *Service) VerifyAccount(raw string, addr string, password string) (models.User, error) {
	if len(password) < utils.MinPasswordLength {
		return models.User{}, ErrWeakPassword
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	var updated models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		row, claims, err := s.Verify(tx, raw, models.TokenPurposeValidation)
		if err != nil {
			return err
		}
		if claims.Email != directory.NormalizeEmail(addr) {
			return ErrEmailMismatch
		}
		user, err := directory.FindByID(tx, row.UserID)
		if err != nil {
			return err
		}
		if err := s.consume(tx, row); err != nil {
			return err
		}
		updated, err = directory.SetCredentials(tx, user, hash, true)
		return err
	})
	return updated, err
}

// EnsureAdmin creates an admin account for addr, with an invite, unless an
// account with that email already exists. It reports whether one was made.
func (s *Service) EnsureAdmin(ctx context.Context, addr string) (bool, error) {
	addr = directory.NormalizeEmail(addr)
	if addr == "" {
		return false, nil
	}
	_, err := directory.FindByEmail(s.db, addr)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, directory.ErrUserNotFound) {
		return false, err
	}
	firstName := addr
	if at := strings.Index(addr, "@"); at > 0 {
		firstName = addr[:at]
	}
	_, err = s.Create(ctx, directory.NewAccount{
		FirstName: firstName,
		LastName:  "Admin",
		Email:     addr,
		Role:      models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
