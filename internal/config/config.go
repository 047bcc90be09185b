package config

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv            string
	Addr              string
	DbDriver          string
	DbDsn             string
	JwtSecret         string
	JwtAccessMinutes  int
	JwtRefreshHours   int
	AccountTokenHours int
	AdminBootstrap    string
	MailProvider      string
	SmtpHost          string
	SmtpPort          int
	SmtpUser          string
	SmtpPass          string
	SmtpFrom          string
	SendgridApiKey    string
	AllowedOriginsRaw string
	RollbarToken      string
	HubspotToken      string

	OfficeLat          float64
	OfficeLng          float64
	OfficeRadiusMeters float64
	OfficeAddress      string
	MaxShiftHours      int
	Timezone           string
	UploadDir          string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleTokenPath    string
	GoogleCalendarID   string
	CalendarTimezone   string

	PublicBaseURL         string
	FrontendBaseURL       string
	FrontendValidatorURL  string
	FrontendPasswordReset string

	loc *time.Location
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ACCESS_MINUTES", 15)
	v.SetDefault("JWT_REFRESH_HOURS", 168)
	v.SetDefault("ACCOUNT_TOKEN_HOURS", 72)
	v.SetDefault("ADMIN_BOOTSTRAP_EMAIL", "")
	v.SetDefault("MAIL_PROVIDER", "console")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "no-reply@localhost")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ROLLBAR_TOKEN", "")
	v.SetDefault("HUBSPOT_TOKEN", "")
	v.SetDefault("OFFICE_LAT", -26.104029891448988)
	v.SetDefault("OFFICE_LNG", 28.05264119446373)
	v.SetDefault("OFFICE_RADIUS_METERS", 150.0)
	v.SetDefault("OFFICE_ADDRESS", "155 West Street, Sandton, Johannesburg, GP")
	v.SetDefault("MAX_SHIFT_HOURS", 12)
	v.SetDefault("APP_TIMEZONE", "Africa/Johannesburg")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:8080/oauth2callback")
	v.SetDefault("GOOGLE_TOKEN_PATH", "token.json")
	v.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	v.SetDefault("CALENDAR_TIMEZONE", "Africa/Johannesburg")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("FRONTEND_USER_ACCOUNT_VALIDATOR_URL", "http://localhost:3000/verify-account")
	v.SetDefault("FRONTEND_USER_PASSWORD_RESET_URL", "http://localhost:3000/reset-password")
	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppEnv:            v.GetString("APP_ENV"),
		Addr:              v.GetString("APP_ADDR"),
		DbDriver:          strings.ToLower(v.GetString("DB_DRIVER")),
		DbDsn:             v.GetString("DB_DSN"),
		JwtSecret:         v.GetString("JWT_SECRET"),
		JwtAccessMinutes:  v.GetInt("JWT_ACCESS_MINUTES"),
		JwtRefreshHours:   v.GetInt("JWT_REFRESH_HOURS"),
		AccountTokenHours: v.GetInt("ACCOUNT_TOKEN_HOURS"),
		AdminBootstrap:    v.GetString("ADMIN_BOOTSTRAP_EMAIL"),
		MailProvider:      strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SmtpHost:          v.GetString("SMTP_HOST"),
		SmtpPort:          v.GetInt("SMTP_PORT"),
		SmtpUser:          v.GetString("SMTP_USER"),
		SmtpPass:          v.GetString("SMTP_PASS"),
		SmtpFrom:          v.GetString("SMTP_FROM"),
		SendgridApiKey:    v.GetString("SENDGRID_API_KEY"),
		AllowedOriginsRaw: v.GetString("ALLOWED_ORIGINS"),
		RollbarToken:      v.GetString("ROLLBAR_TOKEN"),
		HubspotToken:      v.GetString("HUBSPOT_TOKEN"),

		OfficeLat:          v.GetFloat64("OFFICE_LAT"),
		OfficeLng:          v.GetFloat64("OFFICE_LNG"),
		OfficeRadiusMeters: v.GetFloat64("OFFICE_RADIUS_METERS"),
		OfficeAddress:      v.GetString("OFFICE_ADDRESS"),
		MaxShiftHours:      v.GetInt("MAX_SHIFT_HOURS"),
		Timezone:           v.GetString("APP_TIMEZONE"),
		UploadDir:          v.GetString("UPLOAD_DIR"),

		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  v.GetString("GOOGLE_REDIRECT_URI"),
		GoogleTokenPath:    v.GetString("GOOGLE_TOKEN_PATH"),
		GoogleCalendarID:   v.GetString("GOOGLE_CALENDAR_ID"),
		CalendarTimezone:   v.GetString("CALENDAR_TIMEZONE"),

		PublicBaseURL:         v.GetString("PUBLIC_BASE_URL"),
		FrontendBaseURL:       v.GetString("FRONTEND_BASE_URL"),
		FrontendValidatorURL:  v.GetString("FRONTEND_USER_ACCOUNT_VALIDATOR_URL"),
		FrontendPasswordReset: v.GetString("FRONTEND_USER_PASSWORD_RESET_URL"),
	}

	missing := []string{}
	if cfg.DbDsn == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.JwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch cfg.MailProvider {
	case "smtp":
		if cfg.SmtpHost == "" {
			missing = append(missing, "SMTP_HOST")
		}
		if cfg.SmtpUser == "" {
			missing = append(missing, "SMTP_USER")
		}
		if cfg.SmtpPass == "" {
			missing = append(missing, "SMTP_PASS")
		}
	case "sendgrid":
		if cfg.SendgridApiKey == "" {
			missing = append(missing, "SENDGRID_API_KEY")
		}
	}

	if len(missing) > 0 {
		return cfg, errors.New("missing env: " + strings.Join(missing, ", "))
	}

	if cfg.DbDriver != "postgres" && cfg.DbDriver != "mysql" {
		return cfg, errors.New("unsupported DB_DRIVER: " + cfg.DbDriver)
	}
	if cfg.MaxShiftHours <= 0 {
		cfg.MaxShiftHours = 12
	}
	loc, err := loadLocation(cfg.Timezone)
	if err != nil {
		return cfg, errors.New("unknown APP_TIMEZONE: " + cfg.Timezone)
	}
	cfg.loc = loc

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.AllowedOriginsRaw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// Location is the zone that defines an attendance day. It is resolved once
// by FromViper; a Config built by hand resolves Timezone on demand and falls
// back to UTC.
func (c Config) Location() *time.Location {
	if c.loc != nil {
		return c.loc
	}
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
