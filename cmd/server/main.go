package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SummerNgcobo/parakeet/internal/accounts"
	"github.com/SummerNgcobo/parakeet/internal/calendar"
	"github.com/SummerNgcobo/parakeet/internal/config"
	"github.com/SummerNgcobo/parakeet/internal/db"
	"github.com/SummerNgcobo/parakeet/internal/email"
	"github.com/SummerNgcobo/parakeet/internal/hubspot"
	"github.com/SummerNgcobo/parakeet/internal/logger"
	"github.com/SummerNgcobo/parakeet/internal/realtime"
	"github.com/SummerNgcobo/parakeet/internal/routes"
	"github.com/SummerNgcobo/parakeet/internal/scheduler"
	"github.com/SummerNgcobo/parakeet/internal/validation"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	std := log.New(os.Stdout, "", log.LstdFlags)
	appLog := logger.New(std, logger.Options{
		RollbarToken: cfg.RollbarToken,
		Environment:  cfg.AppEnv,
		CodeVersion:  version,
	})
	defer appLog.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Open(cfg.DbDriver, cfg.DbDsn)
	if err != nil {
		appLog.Fatal("db error", err)
	}
	if err := validation.Register(); err != nil {
		appLog.Fatal("validator error", err)
	}

	mailer, err := email.NewSender(cfg.MailProvider, email.Config{
		Host:     cfg.SmtpHost,
		Port:     cfg.SmtpPort,
		Username: cfg.SmtpUser,
		Password: cfg.SmtpPass,
		From:     cfg.SmtpFrom,
	}, cfg.SendgridApiKey, std)
	if err != nil {
		appLog.Fatal("mail error", err)
	}

	links := email.Links{
		APIBaseURL:    cfg.PublicBaseURL,
		FrontendURL:   cfg.FrontendBaseURL,
		ValidatorURL:  cfg.FrontendValidatorURL,
		PasswordReset: cfg.FrontendPasswordReset,
	}
	accountService := accounts.New(database, cfg.JwtSecret, time.Duration(cfg.AccountTokenHours)*time.Hour, mailer, links, appLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminBootstrap != "" {
		created, err := accountService.EnsureAdmin(ctx, cfg.AdminBootstrap)
		if err != nil {
			appLog.Error("bootstrap admin", err)
		} else if created {
			appLog.Info("bootstrap admin invited", map[string]interface{}{"email": cfg.AdminBootstrap})
		}
	}

	hub := realtime.NewHub()
	jobs := scheduler.New(database, appLog, cfg.MaxShiftHours, cfg.Location())
	if err := jobs.Start(); err != nil {
		appLog.Fatal("scheduler error", err)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	routes.Register(router, routes.Deps{
		DB:       database,
		Cfg:      cfg,
		Log:      appLog,
		Mail:     mailer,
		Links:    links,
		Accounts: accountService,
		Hub:      hub,
		CRM:      hubspot.NewClient(cfg.HubspotToken, ""),
		Calendar: calendar.New(calendar.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
			TokenPath:    cfg.GoogleTokenPath,
			CalendarID:   cfg.GoogleCalendarID,
			Timezone:     cfg.CalendarTimezone,
		}),
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("listening", map[string]interface{}{"addr": cfg.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("server error", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("shutdown error", err)
	}
	jobs.Stop()
}
