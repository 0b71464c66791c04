package config

type Config struct {
	ServerAddr string
	// Access-Control-Allow-Origin для POST /affiliate
	AllowOrigin string
}
