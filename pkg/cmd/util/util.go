package util

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/fantasy-league-service/log"
	"github.com/mpapenbr/fantasy-league-service/pkg/config"
	"github.com/mpapenbr/fantasy-league-service/pkg/leaderboard"
	"github.com/mpapenbr/fantasy-league-service/pkg/standings"
	"github.com/mpapenbr/fantasy-league-service/pkg/utils"
)

// SetupLogger creates the application logger and the logger for sql
// statements from the config values. The application logger becomes the
// default logger.
func SetupLogger() (logger, sqlLogger *log.Logger) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	level := ParseLogLevel(config.LogLevel, log.InfoLevel)
	if config.LogConfig != "" {
		if filterOpt, ok := logFilterOption(); ok {
			opts = append(opts, filterOpt)
			level = log.DebugLevel
		}
	}
	sqlLevel := ParseLogLevel(config.SQLLogLevel, log.InfoLevel)
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, level, opts...)
		sqlLogger = log.New(os.Stderr, sqlLevel, opts...)
	default:
		logger = log.DevLogger(os.Stderr, level, opts...)
		sqlLogger = log.DevLogger(os.Stderr, sqlLevel, opts...)
	}
	log.ResetDefault(logger)
	return logger, sqlLogger.Named("db.sql")
}

func logFilterOption() (log.Option, bool) {
	cfg, err := log.ReadFileConfig(config.LogConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read log config %s: %v\n", config.LogConfig, err)
		return nil, false
	}
	opt, err := log.WithFilter(cfg.Rules())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log config %s: %v\n", config.LogConfig, err)
		return nil, false
	}
	return opt, true
}

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// WaitForDatabase blocks until the database accepts tcp connections.
// The process is terminated if this does not happen in time.
func WaitForDatabase() {
	timeout := utils.ParseWaitDuration(config.WaitForServices)
	addr := utils.ExtractFromDBURL(config.DB)
	if addr == "" {
		return
	}
	log.Debug("Waiting for database", log.String("addr", addr))
	if err := utils.WaitForServices(timeout, addr); err != nil {
		log.Fatal("required services not ready", log.ErrorField(err))
	}
	log.Debug("Required services are available")
}

// NewStandingsClient creates the standings client from the config values
func NewStandingsClient() (*standings.Client, error) {
	opts := []standings.Option{
		standings.WithBaseURL(config.StandingsURL),
		standings.WithAPIKey(config.StandingsAPIKey),
	}
	if config.StandingsAPIKeyHeader != "" {
		opts = append(opts, standings.WithAPIKeyHeader(config.StandingsAPIKeyHeader))
	}
	if config.StandingsTimeout != "" {
		d, err := time.ParseDuration(config.StandingsTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid standings timeout %q: %w",
				config.StandingsTimeout, err)
		}
		opts = append(opts, standings.WithTimeout(d))
	}
	return standings.NewClient(opts...)
}

// Season returns the configured season, 0 selects the current year
func Season() int {
	if config.Season > 0 {
		return config.Season
	}
	return leaderboard.CurrentSeason()
}

// AddStandingsFlags registers the flags for the standings provider
func AddStandingsFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&config.Season,
		"season",
		0,
		"championship season, 0 selects the current year")
	cmd.Flags().StringVar(&config.StandingsURL,
		"standings-url",
		standings.DefaultBaseURL,
		"base url of the standings provider")
	cmd.Flags().StringVar(&config.StandingsAPIKey,
		"standings-api-key",
		"",
		"api key for the standings provider")
	cmd.Flags().StringVar(&config.StandingsAPIKeyHeader,
		"standings-api-key-header",
		standings.DefaultAPIKeyHeader,
		"request header carrying the api key")
	cmd.Flags().StringVar(&config.StandingsTimeout,
		"standings-timeout",
		"0s",
		"timeout for a single standings request, 0 disables it")
}
