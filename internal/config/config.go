package config

import (
	"fmt"

	authConfig "github.com/iurnickita/affiliatemart/internal/auth/config"
	handlerConfig "github.com/iurnickita/affiliatemart/internal/handler/config"
	ledgerConfig "github.com/iurnickita/affiliatemart/internal/ledger/config"
	loggerConfig "github.com/iurnickita/affiliatemart/internal/logger/config"
	notifyConfig "github.com/iurnickita/affiliatemart/internal/notify/config"
	registryConfig "github.com/iurnickita/affiliatemart/internal/registry/config"
	serviceConfig "github.com/iurnickita/affiliatemart/internal/service/config"
	trackerConfig "github.com/iurnickita/affiliatemart/internal/tracker/config"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Handler  handlerConfig.Config
	Service  serviceConfig.Config
	Registry registryConfig.Config
	Ledger   ledgerConfig.Config
	Notify   notifyConfig.Config
	Auth     authConfig.Config
	Logger   loggerConfig.Config
	Tracker  trackerConfig.Config
}

var defaults = map[string]any{
	"server_addr":            ":8080",
	"cors_allow_origin":      "*",
	"log_level":              "info",
	"log_development":        false,
	"database_dsn":           "",
	"db_max_open_conns":      10,
	"db_max_idle_conns":      5,
	"ledger_source":          ledgerConfig.SourceSheets,
	"ledger_sheets_url":      "https://sheets.googleapis.com",
	"ledger_spreadsheet_id":  "",
	"ledger_range":           "Orders!A:D",
	"ledger_api_key":         "",
	"ledger_timeout":         "15s",
	"ledger_csv_path":        "orders.csv",
	"ledger_fallback_amount": "0",
	"notify_webhook_url":     "",
	"notify_token":           "",
	"notify_timeout":         "10s",
	"forward_timeout":        "15s",
	"auth_secret":            "",
	"auth_token_ttl":         "720h",
	"tracker_endpoint":       "",
	"tracker_store":          "affiliate-tracker.db",
	"tracker_attempts":       trackerConfig.DefaultAttempts,
	"tracker_delay":          trackerConfig.DefaultDelay.String(),
	"tracker_timeout":        "10s",
	"tracker_ref_param":      trackerConfig.DefaultRefParam,
	"tracker_cookie_ttl":     trackerConfig.DefaultCookieTTL.String(),
	"tracker_order_pattern":  "",
	"tracker_amount_pattern": "",
}

// GetConfig собирает конфигурацию из .env, переменных окружения
// и необязательного файла, путь к которому задаёт CONFIG.
func GetConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	fallbackAmount, err := decimal.NewFromString(v.GetString("ledger_fallback_amount"))
	if err != nil {
		return Config{}, fmt.Errorf("LEDGER_FALLBACK_AMOUNT: %w", err)
	}

	return Config{
		Handler: handlerConfig.Config{
			ServerAddr:  v.GetString("server_addr"),
			AllowOrigin: v.GetString("cors_allow_origin"),
		},
		Service: serviceConfig.Config{
			ForwardTimeout: v.GetDuration("forward_timeout"),
		},
		Registry: registryConfig.Config{
			DBDsn:        v.GetString("database_dsn"),
			MaxOpenConns: v.GetInt("db_max_open_conns"),
			MaxIdleConns: v.GetInt("db_max_idle_conns"),
		},
		Ledger: ledgerConfig.Config{
			Source:         v.GetString("ledger_source"),
			SheetsURL:      v.GetString("ledger_sheets_url"),
			SpreadsheetID:  v.GetString("ledger_spreadsheet_id"),
			Range:          v.GetString("ledger_range"),
			APIKey:         v.GetString("ledger_api_key"),
			Timeout:        v.GetDuration("ledger_timeout"),
			CSVPath:        v.GetString("ledger_csv_path"),
			FallbackAmount: fallbackAmount,
		},
		Notify: notifyConfig.Config{
			WebhookURL: v.GetString("notify_webhook_url"),
			Token:      v.GetString("notify_token"),
			Timeout:    v.GetDuration("notify_timeout"),
		},
		Auth: authConfig.Config{
			Secret:   v.GetString("auth_secret"),
			TokenTTL: v.GetDuration("auth_token_ttl"),
		},
		Logger: loggerConfig.Config{
			LogLevel:    v.GetString("log_level"),
			Development: v.GetBool("log_development"),
		},
		Tracker: trackerConfig.Config{
			Endpoint:      v.GetString("tracker_endpoint"),
			StorePath:     v.GetString("tracker_store"),
			Attempts:      v.GetInt("tracker_attempts"),
			Delay:         v.GetDuration("tracker_delay"),
			Timeout:       v.GetDuration("tracker_timeout"),
			RefParam:      v.GetString("tracker_ref_param"),
			CookieTTL:     v.GetDuration("tracker_cookie_ttl"),
			OrderPattern:  v.GetString("tracker_order_pattern"),
			AmountPattern: v.GetString("tracker_amount_pattern"),
		},
	}, nil
}
