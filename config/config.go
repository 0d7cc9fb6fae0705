package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

//go:embed config.yml
var embeddedConfig []byte

// JWTConfig holds the token signing parameters. The secret is read once at
// startup and never mutated afterwards.
type JWTConfig struct {
	SecretKey string `mapstructure:"secretKey"`
}

// AuthConfig tunes the credential checks.
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcryptCost"`
	// UnifyLoginErrors answers "Invalid credentials" for unknown emails too,
	// closing the account-enumeration gap of the default two-message behaviour.
	UnifyLoginErrors bool `mapstructure:"unifyLoginErrors"`
}

type PostgresConfig struct {
	Host              string        `mapstructure:"host"`
	Password          string        `mapstructure:"password"`
	Port              string        `mapstructure:"port"`
	Username          string        `mapstructure:"username"`
	DB                string        `mapstructure:"db"`
	SSLMODE           string        `mapstructure:"SSLMODE"`
	MAXCONWAITINGTIME int           `mapstructure:"MAXCONWAITINGTIME"`
	QueryTimeout      time.Duration `mapstructure:"queryTimeout"`
	MaxRetries        int           `mapstructure:"maxRetries"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		// Driver selects the credential store: "postgres" or "memory".
		Driver   string         `mapstructure:"driver"`
		Postgres PostgresConfig `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	JWT  JWTConfig  `mapstructure:"jwt"`
	Auth AuthConfig `mapstructure:"auth"`
}

// envBindings maps config keys to the environment variables the deployment
// manifests set.
var envBindings = map[string]string{
	"jwt.secretKey":                    "JWT_SECRET",
	"repositories.postgres.host":       "POSTGRES_HOST",
	"repositories.postgres.port":       "POSTGRES_PORT",
	"repositories.postgres.username":   "POSTGRES_USER",
	"repositories.postgres.password":   "POSTGRES_PASSWORD",
	"repositories.postgres.db":         "POSTGRES_DB",
	"repositories.postgres.SSLMODE":    "POSTGRES_SSLMODE",
	"repositories.postgres.maxRetries": "POSTGRES_MAX_RETRIES",
	"repositories.driver":              "STORE_DRIVER",
	"server.HTTPPort":                  "HTTP_PORT",
	"server.allowedOrigins":            "CORS_ALLOWED_ORIGINS",
	"handlers.prometheus.port":         "METRICS_PORT",
	"auth.bcryptCost":                  "BCRYPT_COST",
	"auth.unifyLoginErrors":            "AUTH_UNIFY_LOGIN_ERRORS",
	"mode":                             "APP_ENV",
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate rejects configurations the service must not start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		return errors.New("config: jwt secret key must be set (JWT_SECRET)")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: bcrypt cost %d out of range [%d, %d]", c.Auth.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Server.Timeout <= 0 {
		return errors.New("config: server HTTPTimeout must be positive")
	}
	switch c.Repositories.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Repositories.Driver)
	}
	if c.Repositories.Postgres.QueryTimeout <= 0 {
		return errors.New("config: postgres query timeout must be positive")
	}
	if c.Repositories.Postgres.MaxRetries < 0 {
		return errors.New("config: postgres max retries must not be negative")
	}
	return nil
}
