package profile

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hrygo/timenorm/plugin/timenorm/resolver"
)

var envVars = []string{
	"TIMENORM_MODE", "TIMENORM_ADDR", "TIMENORM_PORT", "TIMENORM_LOCALE",
	"TIMENORM_HOLIDAY_TABLE", "TIMENORM_LOG_LEVEL",
	"TIMENORM_MIN_YEAR", "TIMENORM_MAX_YEAR", "TIMENORM_BATCH_CONCURRENCY",
	"TIMENORM_CAP_HOUR", "TIMENORM_CAP_DAY", "TIMENORM_CAP_WORKDAY",
	"TIMENORM_CAP_WEEK", "TIMENORM_CAP_MONTH", "TIMENORM_CAP_YEAR",
	"TIMENORM_RATE_LIMIT", "TIMENORM_RATE_BURST",
}

// clearEnvVars 清除所有 TIMENORM_* 环境变量
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
	}
}

// TestProfileDefaults 测试默认值
func TestProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"Mode default", "dev", profile.Mode},
		{"Port default", "8081", strconv.Itoa(profile.Port)},
		{"Locale default", "en", profile.Locale},
		{"LogLevel default", "info", profile.LogLevel},
		{"MinYear default", "1900", strconv.Itoa(profile.MinYear)},
		{"MaxYear default", "2100", strconv.Itoa(profile.MaxYear)},
		{"BatchConcurrency default", "8", strconv.Itoa(profile.BatchConcurrency)},
		{"RateBurst default", "20", strconv.Itoa(profile.RateBurst)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.RecurringCaps != resolver.DefaultRecurringCaps {
		t.Errorf("RecurringCaps: expected %+v, got %+v", resolver.DefaultRecurringCaps, profile.RecurringCaps)
	}
	if profile.RateLimit != 10 {
		t.Errorf("RateLimit: expected 10, got %v", profile.RateLimit)
	}
	if err := profile.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestProfileFromEnv 测试从环境变量读取配置
func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "TIMENORM_LOCALE",
			envVar:   "TIMENORM_LOCALE",
			envValue: "zh",
			field:    func(p *Profile) string { return p.Locale },
			expected: "zh",
		},
		{
			name:     "TIMENORM_PORT",
			envVar:   "TIMENORM_PORT",
			envValue: "9000",
			field:    func(p *Profile) string { return strconv.Itoa(p.Port) },
			expected: "9000",
		},
		{
			name:     "TIMENORM_CAP_WEEK",
			envVar:   "TIMENORM_CAP_WEEK",
			envValue: "4",
			field:    func(p *Profile) string { return strconv.Itoa(p.RecurringCaps.Week) },
			expected: "4",
		},
		{
			name:     "TIMENORM_RATE_LIMIT",
			envVar:   "TIMENORM_RATE_LIMIT",
			envValue: "2.5",
			field:    func(p *Profile) string { return strconv.FormatFloat(p.RateLimit, 'f', 1, 64) },
			expected: "2.5",
		},
		{
			name:     "non-integer value falls back to default",
			envVar:   "TIMENORM_MAX_YEAR",
			envValue: "soon",
			field:    func(p *Profile) string { return strconv.Itoa(p.MaxYear) },
			expected: "2100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			actual := tt.field(profile)
			if actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

// TestFlagsWinOverEnv 测试已设置的字段不会被环境变量覆盖
func TestFlagsWinOverEnv(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("TIMENORM_LOCALE", "zh")
	t.Setenv("TIMENORM_PORT", "9000")

	profile := &Profile{Locale: "en", Port: 7000}
	profile.FromEnv()

	if profile.Locale != "en" {
		t.Errorf("Locale: expected en, got %q", profile.Locale)
	}
	if profile.Port != 7000 {
		t.Errorf("Port: expected 7000, got %d", profile.Port)
	}
}

// TestValidate 测试配置校验
func TestValidate(t *testing.T) {
	clearEnvVars(t)
	valid := func() *Profile {
		p := &Profile{}
		p.FromEnv()
		return p
	}

	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr bool
	}{
		{"valid", func(p *Profile) {}, false},
		{"empty year window", func(p *Profile) { p.MinYear, p.MaxYear = 2100, 1900 }, true},
		{"zero concurrency", func(p *Profile) { p.BatchConcurrency = 0 }, true},
		{"negative cap", func(p *Profile) { p.RecurringCaps.Day = -1 }, true},
		{"bad port", func(p *Profile) { p.Port = 70000 }, true},
		{"zero rate", func(p *Profile) { p.RateLimit = 0 }, true},
		{"missing holiday table", func(p *Profile) { p.HolidayTable = "/nonexistent/statutory.yaml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestValidateHolidayTable 测试节假日表路径被转换为绝对路径
func TestValidateHolidayTable(t *testing.T) {
	clearEnvVars(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "statutory.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	p := &Profile{HolidayTable: path}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !filepath.IsAbs(p.HolidayTable) {
		t.Errorf("HolidayTable should be absolute, got %q", p.HolidayTable)
	}

	p.HolidayTable = dir
	if err := p.Validate(); err == nil {
		t.Error("a directory is not a holiday table")
	}
}

// TestModeAndLevel 测试模式与日志级别
func TestModeAndLevel(t *testing.T) {
	p := &Profile{Mode: "staging", LogLevel: "DEBUG"}
	clearEnvVars(t)
	p.FromEnv()
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.Mode != "demo" {
		t.Errorf("unknown mode should fall back to demo, got %q", p.Mode)
	}
	if !p.IsDev() {
		t.Error("demo mode is not prod")
	}
	if p.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", p.SlogLevel())
	}
	if (&Profile{LogLevel: "loud"}).SlogLevel() != slog.LevelInfo {
		t.Error("unknown level should mean info")
	}
	if got := p.YearWindow(); got != resolver.DefaultYearWindow {
		t.Errorf("YearWindow: expected %+v, got %+v", resolver.DefaultYearWindow, got)
	}
}
