package config

type Config struct {
	DBDsn        string
	MaxOpenConns int
	MaxIdleConns int
}
