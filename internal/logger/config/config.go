package config

type Config struct {
	LogLevel string
	// Development включает человекочитаемый вывод (для CLI)
	Development bool
}
