package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultExpenseCategories is the fixed category set offered for expenses.
var DefaultExpenseCategories = []string{
	"Кофе", "Заведение", "Одежда", "Косметика", "Транспорт", "Здоровье",
}

type Config struct {
	// HTTP server
	Port string

	// Database
	SQLiteDBPath string

	// Telegram
	BotToken  string
	WebAppURL string

	// Ledger
	ExpenseCategories []string
	IncomeCategory    string
	MaxAmount         decimal.Decimal
	RecentLimit       int

	// AMQP (optional, empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (worker only)
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		BotToken:  getEnv("BOT_TOKEN", ""),
		WebAppURL: getEnv("WEBAPP_URL", ""),

		ExpenseCategories: getEnvList("EXPENSE_CATEGORIES", DefaultExpenseCategories),
		IncomeCategory:    getEnv("INCOME_CATEGORY", "Доход"),
		MaxAmount:         getEnvDecimal("MAX_AMOUNT", decimal.NewFromInt(1_000_000_000)),
		RecentLimit:       getEnvInt("RECENT_LIMIT", 10),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transactions"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if !c.MaxAmount.IsPositive() {
		errors = append(errors, fmt.Sprintf("invalid max amount %s: must be positive", c.MaxAmount))
	}

	if c.RecentLimit < 1 || c.RecentLimit > 100 {
		errors = append(errors, fmt.Sprintf("invalid recent limit %d: must be between 1 and 100", c.RecentLimit))
	}

	if len(c.ExpenseCategories) == 0 {
		errors = append(errors, "expense category list cannot be empty")
	}
	for _, cat := range c.ExpenseCategories {
		if strings.TrimSpace(cat) == "" {
			errors = append(errors, "expense category list contains an empty entry")
			break
		}
	}

	if strings.TrimSpace(c.IncomeCategory) == "" {
		errors = append(errors, "income category cannot be empty")
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

	if c.WebAppURL != "" {
		if parsedURL, err := url.Parse(c.WebAppURL); err != nil || parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid webapp URL '%s': must be an https URL", c.WebAppURL))
		}
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		if len(list) > 0 {
			return list
		}
	}
	return defaultValue
}
