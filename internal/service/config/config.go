package config

import "time"

type Config struct {
	// Таймаут пересылки события во внешний приёмник
	ForwardTimeout time.Duration
}
