package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures the environment driven settings of the planner service
type Config struct {
	Port        string
	ReleaseMode bool
	CORSOrigins []string
	Database    DatabaseConfig
	Mail        MailConfig
	Location    *time.Location

	DigestInterval time.Duration

	MaxUnreadNotifications int
	KeepReadNotifications  int
	SweepThreshold         int
}

// DatabaseConfig selects the Postgres connection
type DatabaseConfig struct {
	URL      string // used as-is when set
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN returns the connection string for the Postgres driver
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// MailConfig holds SendGrid settings. An empty APIKey selects log-only delivery.
type MailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// Load reads configuration from the process environment, reporting every
// missing or invalid variable at once.
func Load() (Config, error) {
	cfg := Config{
		Port:                   "8080",
		ReleaseMode:            os.Getenv("GIN_MODE") == "release",
		CORSOrigins:            []string{"*"},
		Location:               time.Local,
		DigestInterval:         time.Minute,
		MaxUnreadNotifications: 10,
		KeepReadNotifications:  5,
		SweepThreshold:         15,
	}

	var missing, invalid []string

	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if origins := env("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}

	cfg.Database.URL = env("DATABASE_URL")
	if cfg.Database.URL == "" {
		required := map[string]*string{
			"DB_HOST":     &cfg.Database.Host,
			"DB_USER":     &cfg.Database.User,
			"DB_PASSWORD": &cfg.Database.Password,
			"DB_NAME":     &cfg.Database.Name,
			"DB_PORT":     &cfg.Database.Port,
		}
		for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_PORT"} {
			value, ok := os.LookupEnv(key)
			if !ok {
				missing = append(missing, key)
				continue
			}
			*required[key] = value
		}
		cfg.Database.SSLMode = env("DB_SSL_MODE")
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	}

	cfg.Mail = MailConfig{
		APIKey:    env("SENDGRID_API_KEY"),
		FromEmail: env("SENDGRID_NOTIFICATIONS_FROM_EMAIL"),
		FromName:  env("SENDGRID_FROM_NAME"),
	}
	if cfg.Mail.APIKey != "" && cfg.Mail.FromEmail == "" {
		missing = append(missing, "SENDGRID_NOTIFICATIONS_FROM_EMAIL")
	}

	if tz := env("PLANNER_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "PLANNER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if value := env("DIGEST_CHECK_INTERVAL"); value != "" {
		interval, err := time.ParseDuration(value)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "DIGEST_CHECK_INTERVAL")
		} else {
			cfg.DigestInterval = interval
		}
	}

	// An inbox keeping no unread notifications, or sweeping on every load,
	// is rejected. Keeping no read notifications is allowed.
	ints := []struct {
		key string
		dst *int
		min int
	}{
		{"NOTIFICATION_MAX_UNREAD", &cfg.MaxUnreadNotifications, 1},
		{"NOTIFICATION_KEEP_READ", &cfg.KeepReadNotifications, 0},
		{"NOTIFICATION_SWEEP_THRESHOLD", &cfg.SweepThreshold, 1},
	}
	for _, item := range ints {
		value := env(item.key)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < item.min {
			invalid = append(invalid, item.key)
			continue
		}
		*item.dst = n
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
