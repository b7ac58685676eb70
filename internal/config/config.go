package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds service configuration.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
}

// HTTPConfig holds server settings.
type HTTPConfig struct {
	Port string
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string
	MigrationsPath string
}

// Load reads configuration from file and env. Env var overrides use prefix
// CONCILIACAO_ (e.g. CONCILIACAO_HTTP_PORT).
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("http.port", "8083")
	v.SetDefault("database.path", "conciliacao.db")
	v.SetDefault("database.migrations_path", "internal/database/migrations")

	v.SetConfigType("toml")
	v.SetConfigName("config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CONCILIACAO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	c.HTTP.Port = v.GetString("http.port")
	c.Database.Path = v.GetString("database.path")
	c.Database.MigrationsPath = v.GetString("database.migrations_path")
	return c, nil
}
