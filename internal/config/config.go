package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds every setting the API server reads from the environment.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	DBDriver string `env:"DB_DRIVER" envDefault:"mysql"`
	// DBDSN is the primary read/write connection string.
	DBDSN     string `env:"DB_DSN_PRIMARY" envDefault:"root:root@tcp(127.0.0.1:3306)/artisan_market?parseTime=true"`
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// CORSOrigin is the only browser origin allowed to call the API.
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	RestorationInterval time.Duration `env:"RESTORATION_INTERVAL" envDefault:"60s"`
	ExpirationInterval  time.Duration `env:"EXPIRATION_INTERVAL" envDefault:"60s"`
}

// Load reads an optional .env file and then parses the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("Could not find or load .env file. Relying on system environment variables.")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
