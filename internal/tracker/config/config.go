package config

import "time"

const (
	DefaultAttempts  = 3
	DefaultDelay     = time.Second
	DefaultCookieTTL = 30 * 24 * time.Hour
	DefaultRefParam  = "ref"
)

type Config struct {
	// Адрес приёмника: https://host/affiliate
	Endpoint string
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
	// Локальное хранилище клиента (bbolt)
	StorePath string
	RefParam  string
	CookieTTL time.Duration
	// Регулярные выражения для поиска номера заказа и суммы на странице.
	// Пусто - значения по умолчанию
	OrderPattern  string
	AmountPattern string
}

// WithDefaults fills zero fields with the default delivery policy.
func (cfg Config) WithDefaults() Config {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.RefParam == "" {
		cfg.RefParam = DefaultRefParam
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = DefaultCookieTTL
	}
	return cfg
}
