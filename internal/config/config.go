package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port               string
	CORSAllowedOrigins []string

	// Local persistence backend: "sqlite" or "file"
	DataBackend  string
	SQLiteDBPath string
	DataFilePath string

	// AMQP state-changed event bus (optional; empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// WebDAV sync target (optional; empty URL disables it)
	WebDAVURL        string
	WebDAVUsername   string
	WebDAVPassword   string
	WebDAVFilename   string
	WebDAVRequireTLS bool

	// REST peer: a remote /api/data endpoint tried before the local cache
	// at startup and pushed to on sync (optional)
	PeerURL string

	// Remote sync debounce window: edits within this window coalesce into
	// one upload
	SyncDebounce time.Duration

	// Google Sheets settlement mirror (optional)
	SheetsSpreadsheetID string
	SheetsSheetName     string

	// Maintenance
	RetentionWeeks int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/weeklykeeper.db"),
		DataFilePath: getEnv("DATA_FILE_PATH", "./data/weekly_keeper_data.json"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "weeklykeeper"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "state_changes"),

		WebDAVURL:        getEnv("WEBDAV_URL", ""),
		WebDAVUsername:   getEnv("WEBDAV_USERNAME", ""),
		WebDAVPassword:   getEnv("WEBDAV_PASSWORD", ""),
		WebDAVFilename:   getEnv("WEBDAV_FILENAME", "weekly_keeper_data.json"),
		WebDAVRequireTLS: getEnvBool("WEBDAV_REQUIRE_TLS", true),

		PeerURL: getEnv("PEER_URL", ""),

		SyncDebounce: getEnvDuration("SYNC_DEBOUNCE", 3*time.Second),

		SheetsSpreadsheetID: getEnv("SHEETS_SPREADSHEET_ID", ""),
		SheetsSheetName:     getEnv("SHEETS_SHEET_NAME", "Settlements"),

		RetentionWeeks: getEnvInt("RETENTION_WEEKS", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using the sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			problems = append(problems, err.Error())
		}
	case "file":
		if c.DataFilePath == "" {
			problems = append(problems, "data file path cannot be empty when using the file backend")
		} else if err := ensureDir(c.DataFilePath); err != nil {
			problems = append(problems, err.Error())
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite file]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.WebDAVURL != "" {
		parsed, err := url.Parse(c.WebDAVURL)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid WebDAV URL '%s': %v", c.WebDAVURL, err))
		} else {
			if parsed.Scheme != "http" && parsed.Scheme != "https" {
				problems = append(problems, fmt.Sprintf("invalid WebDAV URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
			}
			if c.WebDAVRequireTLS && parsed.Scheme == "http" {
				problems = append(problems, "WebDAV URL uses plain http but WEBDAV_REQUIRE_TLS is enabled")
			}
		}
		if c.WebDAVFilename == "" {
			problems = append(problems, "WebDAV filename cannot be empty when WebDAV URL is provided")
		}
	}

	if c.PeerURL != "" {
		if parsed, err := url.Parse(c.PeerURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			problems = append(problems, fmt.Sprintf("invalid peer URL '%s'", c.PeerURL))
		}
	}

	if c.SyncDebounce < 100*time.Millisecond {
		problems = append(problems, fmt.Sprintf("invalid sync debounce %v: must be at least 100ms", c.SyncDebounce))
	} else if c.SyncDebounce > time.Minute {
		problems = append(problems, fmt.Sprintf("invalid sync debounce %v: must be at most 1 minute", c.SyncDebounce))
	}

	if c.RetentionWeeks < 0 {
		problems = append(problems, fmt.Sprintf("invalid retention weeks %d: must be >= 0 (0 disables pruning)", c.RetentionWeeks))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
