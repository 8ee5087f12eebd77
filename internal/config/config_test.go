package config

import (
	"strings"
	"testing"
	"time"
)

func setDatabaseURL(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://planner@localhost/planner")
}

func TestLoad_Defaults(t *testing.T) {
	setDatabaseURL(t)
	t.Setenv("PORT", "")
	t.Setenv("SENDGRID_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DigestInterval != time.Minute {
		t.Errorf("expected 1m digest interval, got %v", cfg.DigestInterval)
	}
	if cfg.MaxUnreadNotifications != 10 || cfg.KeepReadNotifications != 5 || cfg.SweepThreshold != 15 {
		t.Errorf("unexpected retention defaults %+v", cfg)
	}
	if cfg.Database.DSN() != "postgres://planner@localhost/planner" {
		t.Errorf("unexpected DSN %q", cfg.Database.DSN())
	}
}

func TestLoad_Overrides(t *testing.T) {
	setDatabaseURL(t)
	t.Setenv("PORT", "9090")
	t.Setenv("PLANNER_TIMEZONE", "UTC")
	t.Setenv("DIGEST_CHECK_INTERVAL", "30s")
	t.Setenv("NOTIFICATION_MAX_UNREAD", "20")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" || cfg.DigestInterval != 30*time.Second || cfg.MaxUnreadNotifications != 20 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Location != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
}

func TestLoad_ReportsInvalidValues(t *testing.T) {
	setDatabaseURL(t)
	t.Setenv("PLANNER_TIMEZONE", "Mars/Olympus")
	t.Setenv("DIGEST_CHECK_INTERVAL", "soon")
	t.Setenv("NOTIFICATION_KEEP_READ", "-1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, key := range []string{"PLANNER_TIMEZONE", "DIGEST_CHECK_INTERVAL", "NOTIFICATION_KEEP_READ"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoad_RequiresDatabaseSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "planner")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "planner")
	t.Setenv("DB_PORT", "5432")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(cfg.Database.DSN(), "host=localhost") || !strings.Contains(cfg.Database.DSN(), "sslmode=disable") {
		t.Errorf("unexpected DSN %q", cfg.Database.DSN())
	}
}

func TestLoad_RetentionBounds(t *testing.T) {
	tests := []struct {
		name      string
		maxUnread string
		keepRead  string
		threshold string
		invalid   []string
	}{
		{"all zero", "0", "0", "0", []string{"NOTIFICATION_MAX_UNREAD", "NOTIFICATION_SWEEP_THRESHOLD"}},
		{"zero threshold", "10", "5", "0", []string{"NOTIFICATION_SWEEP_THRESHOLD"}},
		{"keep no read", "10", "0", "15", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setDatabaseURL(t)
			t.Setenv("NOTIFICATION_MAX_UNREAD", tt.maxUnread)
			t.Setenv("NOTIFICATION_KEEP_READ", tt.keepRead)
			t.Setenv("NOTIFICATION_SWEEP_THRESHOLD", tt.threshold)

			cfg, err := Load()
			if len(tt.invalid) == 0 {
				if err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if cfg.KeepReadNotifications != 0 {
					t.Errorf("expected KeepRead 0 to be kept, got %d", cfg.KeepReadNotifications)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, key := range tt.invalid {
				if !strings.Contains(err.Error(), key) {
					t.Errorf("error %q does not mention %s", err, key)
				}
			}
		})
	}
}
