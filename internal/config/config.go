package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// CSV sources, file paths or http(s) URLs. Also read by the importer.
	DailySource   string
	HourlySource  string
	SourceTimeout time.Duration

	// Database
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleDailySheet      string
	GoogleHourlySheet     string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Memory backend seed directory
	DataDirectory string

	// ReloadPollInterval enables polling the sqlite import log for new
	// imports when AMQP is not configured. Zero disables it.
	ReloadPollInterval time.Duration

	// Dashboard cache
	CacheSize int
	CacheTTL  time.Duration

	ExportRatePerMinute int
	LogLevel            string
}

var (
	validBackends  = []string{"csv", "sqlite", "sheets", "memory"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "csv"),

		DailySource:   getEnv("DAILY_SOURCE", "./data/day.csv"),
		HourlySource:  getEnv("HOURLY_SOURCE", ""),
		SourceTimeout: getEnvDuration("SOURCE_TIMEOUT", 30*time.Second),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bikeshare.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bikeshare"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "dataset_imported"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleDailySheet:      getEnv("GOOGLE_DAILY_SHEET", "Daily"),
		GoogleHourlySheet:     getEnv("GOOGLE_HOURLY_SHEET", "Hourly"),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		DataDirectory: getEnv("MEMORY_DATA_DIR", "data"),

		ReloadPollInterval: getEnvDuration("RELOAD_POLL_INTERVAL", 0),

		CacheSize: getEnvInt("CACHE_SIZE", 100),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		ExportRatePerMinute: getEnvInt("EXPORT_RATE_PER_MINUTE", 10),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "csv":
		if c.DailySource == "" {
			errors = append(errors, "DAILY_SOURCE is required when using csv backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleDailySheet == "" {
			errors = append(errors, "Google daily sheet name is required when using sheets backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SourceTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid source timeout %v: must be at least 1 second", c.SourceTimeout))
	}

	if c.ReloadPollInterval != 0 && c.ReloadPollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reload poll interval %v: must be 0 or at least 1 second", c.ReloadPollInterval))
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if c.ExportRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid export rate %d: must be at least 1 per minute", c.ExportRatePerMinute))
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
