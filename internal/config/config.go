package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const envPrefix = "BUDGET_ANALYSER_"

type Config struct {
	// Statements and mappings
	AccountsConfigPath     string
	StatementDir           string // overrides statement_dir from the accounts file when set
	DescriptionMappingPath string
	SubCategoryMappingPath string
	CashflowMappingPath    string

	// Database
	SQLiteDBPath string

	// Reporting
	SignFallback bool

	// Logging
	LogLevel  string
	LogFormat string // text or json

	// AMQP, optional: ingestion events are published only when AMQPURL is set
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets, optional
	GoogleSpreadsheetID string
	SheetPrefix         string
}

func Load() *Config {
	return &Config{
		AccountsConfigPath:     getEnv("ACCOUNTS_CONFIG_PATH", "./config/accounts.yaml"),
		StatementDir:           getEnv("STATEMENT_DIR", ""),
		DescriptionMappingPath: getEnv("DESCRIPTION_TO_SUB_CATEGORY_PATH", "./config/description_to_sub_category.json"),
		SubCategoryMappingPath: getEnv("SUB_CATEGORY_TO_CATEGORY_PATH", "./config/sub_category_to_category.json"),
		CashflowMappingPath:    getEnv("CASHFLOW_MAPPING_PATH", "./config/cashflow_mapping.json"),

		SQLiteDBPath: getEnv("DATABASE_PATH", "./data/budget.db"),
		SignFallback: getEnvBool("SIGN_FALLBACK", false),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "budgetanalyser"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ingestion_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		SheetPrefix:         getEnv("SHEET_PREFIX", "Budget"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	required := []struct{ name, value string }{
		{"accounts config path", c.AccountsConfigPath},
		{"description to sub-category mapping path", c.DescriptionMappingPath},
		{"sub-category to category mapping path", c.SubCategoryMappingPath},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", r.name))
		}
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.StatementDir != "" {
		if info, err := os.Stat(c.StatementDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("statement directory does not exist: %s", c.StatementDir))
		}
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate AMQP URL if provided
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

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.SheetPrefix) == "" {
		errors = append(errors, "sheet prefix cannot be empty when a spreadsheet is configured")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether ingestion events should be published.
func (c *Config) AMQPEnabled() bool { return c.AMQPURL != "" }

// SheetsEnabled reports whether reports can be exported to Google Sheets.
func (c *Config) SheetsEnabled() bool { return c.GoogleSpreadsheetID != "" }

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
