package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/timenorm/internal/observability"
	"github.com/hrygo/timenorm/internal/profile"
	"github.com/hrygo/timenorm/plugin/timenorm"
	"github.com/hrygo/timenorm/plugin/timenorm/calendar"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "timenorm",
	Short: "Normalize tagged temporal expressions into calendar values",
	Long: `timenorm resolves tagger output such as

  time_utc { month: "4" day: "3" } time_range { value: "to" } time_utc { month: "5" day: "1" }

against a reference instant and prints the resulting instants, intervals and
recurring sequences as JSON.

Examples:
  timenorm resolve --reference 2025-01-21T08:00:00Z 'time_relative { offset_day: 1 }'
  echo 'time_weekday { weekday: "friday" }' | timenorm resolve --locale en
  timenorm serve --port 8081`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogger()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("locale", "en")
	viper.SetDefault("log-level", "info")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("locale", "en", `alias table, "en" or "zh"`)
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("holiday-table", "", "YAML statutory holiday override table")
	rootCmd.PersistentFlags().Int("min-year", 0, "lowest year a result may carry (default 1900)")
	rootCmd.PersistentFlags().Int("max-year", 0, "highest year a result may carry (default 2100)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "batch resolution concurrency (default 8)")

	for _, name := range []string{"mode", "locale", "log-level", "holiday-table", "min-year", "max-year", "concurrency"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("timenorm")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadProfile builds the profile from flags and TIMENORM_* variables.
func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:             viper.GetString("mode"),
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Version:          version,
		Locale:           viper.GetString("locale"),
		HolidayTable:     viper.GetString("holiday-table"),
		LogLevel:         viper.GetString("log-level"),
		MinYear:          viper.GetInt("min-year"),
		MaxYear:          viper.GetInt("max-year"),
		BatchConcurrency: viper.GetInt("concurrency"),
		RateLimit:        viper.GetFloat64("rate-limit"),
		RateBurst:        viper.GetInt("rate-burst"),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return instanceProfile, nil
}

// newService wires the resolution service described by p.
func newService(p *profile.Profile, metrics *observability.Metrics) (*timenorm.Service, error) {
	opts := []timenorm.Option{
		timenorm.WithLocale(p.Locale),
		timenorm.WithYearWindow(p.YearWindow()),
		timenorm.WithRecurringCaps(p.RecurringCaps),
		timenorm.WithBatchConcurrency(p.BatchConcurrency),
		timenorm.WithLogger(slog.Default()),
	}
	if metrics != nil {
		opts = append(opts, timenorm.WithMetrics(metrics))
	}
	if p.HolidayTable != "" {
		raw, err := os.ReadFile(p.HolidayTable)
		if err != nil {
			return nil, errors.Wrapf(err, "read holiday table %s", p.HolidayTable)
		}
		cal, err := calendar.New(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, timenorm.WithCalendar(cal))
	}
	return timenorm.NewService(opts...)
}

func setupLogger() {
	level := (&profile.Profile{LogLevel: viper.GetString("log-level")}).SlogLevel()
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
