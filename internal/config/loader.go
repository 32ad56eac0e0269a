package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sevenpast/campcore/internal/logging"
)

// DefaultEnvFile is read when present; variables set in the process win.
const DefaultEnvFile = ".env"

// Config captures environment driven configuration values for the camp service.
type Config struct {
	HTTPPort                     int           `env:"CAMP_HTTP_PORT" envDefault:"8080"`
	SQLitePath                   string        `env:"CAMP_SQLITE_PATH" envDefault:"campcore.db"`
	CampName                     string        `env:"CAMP_NAME"`
	Timezone                     string        `env:"CAMP_TIMEZONE" envDefault:"UTC"`
	MaxSeriesOccurrences         int           `env:"CAMP_MAX_SERIES_OCCURRENCES" envDefault:"366"`
	ExclusiveEquipmentCategories []string      `env:"CAMP_EXCLUSIVE_EQUIPMENT_CATEGORIES" envSeparator:","`
	RedisAddr                    string        `env:"CAMP_REDIS_ADDR"`
	ResetLeaseTTL                time.Duration `env:"CAMP_RESET_LEASE_TTL" envDefault:"5m"`
	AMQPURL                      string        `env:"CAMP_AMQP_URL"`
	EventsExchange               string        `env:"CAMP_EVENTS_EXCHANGE" envDefault:"campcore.events"`
	OTelEndpoint                 string        `env:"CAMP_OTEL_ENDPOINT"`
	LogLevel                     string        `env:"CAMP_LOG_LEVEL" envDefault:"info"`

	// Location is resolved from Timezone.
	Location *time.Location `env:"-"`
}

// Load parses configuration from the process environment layered over the
// optional .env file in the working directory.
func Load() (Config, error) {
	return LoadFrom(DefaultEnvFile)
}

// LoadFrom behaves like Load but reads the given dotenv files. Missing files
// are skipped.
//
// Defaults apply to optional fields. Required and malformed values are
// collected and reported together.
func LoadFrom(files ...string) (Config, error) {
	environment, err := environmentWithDotEnv(files)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	cfg.CampName = strings.TrimSpace(cfg.CampName)
	if cfg.CampName == "" {
		missing = append(missing, "CAMP_NAME")
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, "CAMP_HTTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		invalid = append(invalid, "CAMP_SQLITE_PATH")
	}
	if cfg.MaxSeriesOccurrences <= 0 {
		invalid = append(invalid, "CAMP_MAX_SERIES_OCCURRENCES")
	}
	if cfg.ResetLeaseTTL <= 0 {
		invalid = append(invalid, "CAMP_RESET_LEASE_TTL")
	}
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	loc, locErr := time.LoadLocation(cfg.Timezone)
	if locErr != nil {
		invalid = append(invalid, "CAMP_TIMEZONE")
	}
	cfg.Location = loc
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		invalid = append(invalid, "CAMP_LOG_LEVEL")
	}
	cfg.ExclusiveEquipmentCategories = normalizeList(cfg.ExclusiveEquipmentCategories)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func environmentWithDotEnv(files []string) (map[string]string, error) {
	environment := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for key, value := range values {
			environment[key] = value
		}
	}
	for key, value := range env.ToMap(os.Environ()) {
		environment[key] = value
	}
	return environment, nil
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
