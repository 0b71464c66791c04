package config

import "time"

type Config struct {
	// Адрес webhook-приёмника. Пусто - события только пишутся в лог
	WebhookURL string
	Token      string
	Timeout    time.Duration
}
