package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
)

// Profile is the configuration to start the resolver service and CLI.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// Locale selects the alias table, "en" or "zh"
	Locale string
	// HolidayTable is an optional YAML statutory override table replacing the embedded one
	HolidayTable string
	// LogLevel is one of debug, info, warn, error
	LogLevel string

	// Resolution limits
	MinYear          int                    // TIMENORM_MIN_YEAR (default: 1900)
	MaxYear          int                    // TIMENORM_MAX_YEAR (default: 2100)
	BatchConcurrency int                    // TIMENORM_BATCH_CONCURRENCY (default: 8)
	RecurringCaps    resolver.RecurringCaps // TIMENORM_CAP_{HOUR,DAY,WORKDAY,WEEK,MONTH,YEAR}

	// HTTP rate limiting per client
	RateLimit float64 // TIMENORM_RATE_LIMIT requests per second (default: 10)
	RateBurst int     // TIMENORM_RATE_BURST (default: 20)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// YearWindow returns the configured year guard.
func (p *Profile) YearWindow() resolver.YearWindow {
	return resolver.YearWindow{Min: p.MinYear, Max: p.MaxYear}
}

// SlogLevel maps LogLevel onto a slog level. Unknown values mean info.
func (p *Profile) SlogLevel() slog.Level {
	switch strings.ToLower(p.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("ignoring non-integer environment value", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return n
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", slog.String("key", key), slog.String("value", value))
		return defaultValue
	}
	return f
}

// FromEnv loads configuration from TIMENORM_* environment variables. Fields
// already set by flags win over the environment; unset ones fall back to defaults.
func (p *Profile) FromEnv() {
	setString := func(field *string, key, defaultValue string) {
		if *field == "" {
			*field = getEnvOrDefault(key, defaultValue)
		}
	}
	setInt := func(field *int, key string, defaultValue int) {
		if *field == 0 {
			*field = getIntEnvOrDefault(key, defaultValue)
		}
	}

	setString(&p.Mode, "TIMENORM_MODE", "dev")
	setString(&p.Addr, "TIMENORM_ADDR", "")
	setInt(&p.Port, "TIMENORM_PORT", 8081)
	setString(&p.Locale, "TIMENORM_LOCALE", "en")
	setString(&p.HolidayTable, "TIMENORM_HOLIDAY_TABLE", "")
	setString(&p.LogLevel, "TIMENORM_LOG_LEVEL", "info")

	setInt(&p.MinYear, "TIMENORM_MIN_YEAR", resolver.DefaultYearWindow.Min)
	setInt(&p.MaxYear, "TIMENORM_MAX_YEAR", resolver.DefaultYearWindow.Max)
	setInt(&p.BatchConcurrency, "TIMENORM_BATCH_CONCURRENCY", 8)

	caps := resolver.DefaultRecurringCaps
	setInt(&p.RecurringCaps.Hour, "TIMENORM_CAP_HOUR", caps.Hour)
	setInt(&p.RecurringCaps.Day, "TIMENORM_CAP_DAY", caps.Day)
	setInt(&p.RecurringCaps.Workday, "TIMENORM_CAP_WORKDAY", caps.Workday)
	setInt(&p.RecurringCaps.Week, "TIMENORM_CAP_WEEK", caps.Week)
	setInt(&p.RecurringCaps.Month, "TIMENORM_CAP_MONTH", caps.Month)
	setInt(&p.RecurringCaps.Year, "TIMENORM_CAP_YEAR", caps.Year)

	if p.RateLimit == 0 {
		p.RateLimit = getFloatEnvOrDefault("TIMENORM_RATE_LIMIT", 10)
	}
	setInt(&p.RateBurst, "TIMENORM_RATE_BURST", 20)
}

func checkHolidayTable(path string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		path = absPath
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to access holiday table %s", path)
	}
	if info.IsDir() {
		return "", errors.Errorf("holiday table %s is a directory", path)
	}
	return path, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.MinYear > p.MaxYear {
		return errors.Errorf("year window [%d, %d] is empty", p.MinYear, p.MaxYear)
	}
	if p.BatchConcurrency <= 0 {
		return errors.Errorf("batch concurrency must be positive, got %d", p.BatchConcurrency)
	}
	for unit, n := range map[string]int{
		"hour":    p.RecurringCaps.Hour,
		"day":     p.RecurringCaps.Day,
		"workday": p.RecurringCaps.Workday,
		"week":    p.RecurringCaps.Week,
		"month":   p.RecurringCaps.Month,
		"year":    p.RecurringCaps.Year,
	} {
		if n <= 0 {
			return errors.Errorf("recurring cap for %s must be positive, got %d", unit, n)
		}
	}
	if p.RateLimit <= 0 || p.RateBurst <= 0 {
		return errors.Errorf("rate limit %.2f/s burst %d must be positive", p.RateLimit, p.RateBurst)
	}

	if p.HolidayTable != "" {
		path, err := checkHolidayTable(p.HolidayTable)
		if err != nil {
			slog.Error("failed to check holiday table", slog.String("path", p.HolidayTable), slog.String("error", err.Error()))
			return err
		}
		p.HolidayTable = path
	}

	return nil
}
