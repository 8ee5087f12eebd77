package database

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gorm.io/gorm/logger"
)

// schedulerQueryPatterns match the statements the digest scheduler issues on
// every tick. Logging them at Info level would drown everything else.
// The assignment pattern only covers the unscoped incomplete listing, so
// semester-filtered and plain assignment queries are still logged.
var schedulerQueryPatterns = []string{
	`FROM "user_preferences" WHERE email_notifications_enabled`,
	`FROM "digest_marker"`,
	`^SELECT \* FROM "assignment" WHERE user_id = '[^']*' AND completed_at IS NULL ORDER BY due_at ASC$`,
}

// FilteredLogger drops statements matching any ignored pattern and tags the
// rest with the first application caller outside gorm and this package.
type FilteredLogger struct {
	logger.Interface
	ignored []*regexp.Regexp
}

// NewFilteredLogger wraps l, skipping statements matching any of the regular
// expression patterns. It panics on an invalid pattern.
func NewFilteredLogger(l logger.Interface, patterns ...string) *FilteredLogger {
	ignored := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		ignored = append(ignored, regexp.MustCompile(pattern))
	}
	return &FilteredLogger{Interface: l, ignored: ignored}
}

// LogMode implements logger.Interface
func (l *FilteredLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &FilteredLogger{Interface: l.Interface.LogMode(level), ignored: l.ignored}
}

// Trace implements logger.Interface. Failed statements are always passed on.
func (l *FilteredLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, rows := fc()
	if err == nil && l.Ignores(sql) {
		return
	}

	caller := findCaller()
	l.Interface.Trace(ctx, begin, func() (string, int64) {
		if caller != "" {
			return fmt.Sprintf("[Caller: %s] %s", caller, sql), rows
		}
		return sql, rows
	}, err)
}

// Ignores reports whether sql matches one of the ignored patterns
func (l *FilteredLogger) Ignores(sql string) bool {
	for _, pattern := range l.ignored {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

func findCaller() string {
	for i := 2; i < 15; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "gorm.io") || strings.Contains(file, "internal/database") {
			continue
		}

		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			if idx := strings.LastIndexByte(name, '.'); idx != -1 {
				name = name[idx+1:]
			}
			return fmt.Sprintf("%s() at %s:%d", name, file, line)
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}
