package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Конечная структура конфигурации приложения.
type Config struct {
	Server struct {
		Address      string   `mapstructure:"address"`       // 0.0.0.0
		HTTPPort     string   `mapstructure:"http_port"`     // 5000
		CORSOrigins  []string `mapstructure:"cors_origins"`  // origin дашборда
		CookieSecure bool     `mapstructure:"cookie_secure"` // true за TLS
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`  // trace|debug|info|warning|error|fatal
		Format string `mapstructure:"format"` // text|json
		File   string `mapstructure:"file"`   // путь/префикс файла, пусто — только stdout
	} `mapstructure:"logs"`

	Database struct {
		Driver string `mapstructure:"driver"` // "mysql" | "postgres" | "sqlite"
		DSN    string `mapstructure:"dsn"`    // user:pass@tcp(host:3306)/scanx?parseTime=true
	} `mapstructure:"database"`

	Auth struct {
		JWTSecret  string        `mapstructure:"jwt_secret"`
		TokenTTL   time.Duration `mapstructure:"token_ttl"`
		BcryptCost int           `mapstructure:"bcrypt_cost"`
		CookieName string        `mapstructure:"cookie_name"`
	} `mapstructure:"auth"`

	Directory struct {
		Source   string        `mapstructure:"source"`    // google|file|"" (авто)
		FilePath string        `mapstructure:"file_path"` // JSON-выгрузка каталога
		Interval time.Duration `mapstructure:"interval"`
		Google   struct {
			KeyFile    string `mapstructure:"key_file"`
			AdminEmail string `mapstructure:"admin_email"`
			Customer   string `mapstructure:"customer"`
		} `mapstructure:"google"`
	} `mapstructure:"directory"`
}

// Load читает конфиг из env/файла с дефолтами.
// Переменные окружения: SERVER_HTTP_PORT, AUTH_JWT_SECRET и т.д.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "5000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.cookie_secure", false)

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "text")
	v.SetDefault("logs.file", "")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")

	v.SetDefault("auth.jwt_secret", "CHANGE_ME")
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.cookie_name", "scanx_token")

	v.SetDefault("directory.source", "")
	v.SetDefault("directory.file_path", "test_dir/users.json")
	v.SetDefault("directory.interval", "24h")
	v.SetDefault("directory.google.key_file", "")
	v.SetDefault("directory.google.admin_email", "")
	v.SetDefault("directory.google.customer", "my_customer")

	// Источник файла
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "scanx"))
		}
		v.AddConfigPath("/etc/scanx")
	}

	// Чтение файла (опционально)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" || c.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("auth.jwt_secret must be set (not empty and not CHANGE_ME)")
	}
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address must not be empty")
	}
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}
