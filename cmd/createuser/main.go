// Command createuser adds one account with a validation token and mails the
// invite link, the same way an admin does through POST /admin/users.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SummerNgcobo/parakeet/internal/accounts"
	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/db"
	"github.com/SummerNgcobo/parakeet/internal/directory"
	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/models"
)

type createFunc func(ctx context.Context, acct directory.NewAccount) (models.User, error)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := newCommand(createAccount).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCommand(create createFunc) *cobra.Command {
	var acct directory.NewAccount
	cmd := &cobra.Command{
		Use:          "createuser",
		Short:        "Create an account and mail its invite link",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			acct.FirstName = strings.TrimSpace(acct.FirstName)
			acct.LastName = strings.TrimSpace(acct.LastName)
			acct.Email = strings.TrimSpace(acct.Email)
			if acct.FirstName == "" || acct.LastName == "" {
				return fmt.Errorf("first and last name must not be blank")
			}
			if !email.ValidAddress(acct.Email) {
				return fmt.Errorf("invalid email %q", acct.Email)
			}
			if !directory.IsRole(acct.Role) {
				return fmt.Errorf("unknown role %q", acct.Role)
			}

			user, err := create(cmd.Context(), acct)
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&acct.FirstName, "first", "", "first name")
	flags.StringVar(&acct.LastName, "last", "", "last name")
	flags.StringVar(&acct.Email, "email", "", "email address")
	flags.StringVar(&acct.Role, "role", models.RoleTrainee, "role: admin, trainee, facilitator, technical_mentor or career_coach")
	flags.StringVar(&acct.Cohort, "cohort", "", "cohort (trainees only)")
	flags.StringVar(&acct.Specialisation, "specialisation", "", "specialisation (trainees only)")
	for _, name := range []string{"first", "last", "email"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func createAccount(ctx context.Context, acct directory.NewAccount) (models.User, error) {
	cfg, err := config.Load()
	if err != nil {
		return models.User{}, fmt.Errorf("config: %w", err)
	}
	std := log.New(os.Stderr, "", log.LstdFlags)
	appLog := logger.New(std, logger.Options{RollbarToken: cfg.RollbarToken, Environment: cfg.AppEnv})
	defer appLog.Close()

	database, err := db.Open(cfg.DbDriver, cfg.DbDsn)
	if err != nil {
		return models.User{}, fmt.Errorf("db: %w", err)
	}

	mailer, err := email.NewSender(cfg.MailProvider, email.Config{
		Host:     cfg.SmtpHost,
		Port:     cfg.SmtpPort,
		Username: cfg.SmtpUser,
		Password: cfg.SmtpPass,
		From:     cfg.SmtpFrom,
	}, cfg.SendgridApiKey, std)
	if err != nil {
		return models.User{}, fmt.Errorf("mail: %w", err)
	}

	links := email.Links{
		APIBaseURL:    cfg.PublicBaseURL,
		FrontendURL:   cfg.FrontendBaseURL,
		ValidatorURL:  cfg.FrontendValidatorURL,
		PasswordReset: cfg.FrontendPasswordReset,
	}
	service := accounts.New(database, cfg.JwtSecret, time.Duration(cfg.AccountTokenHours)*time.Hour, mailer, links, appLog)
	return service.Create(ctx, acct)
}
