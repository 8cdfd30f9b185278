package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at process start and handed to every component.
type Config struct {
	Environment string
	GinMode     string
	ServerPort  string
	DebugSQL    bool

	DB    DatabaseConfig
	JWT   JWTConfig
	SMTP  SMTPConfig
	Paths PathsConfig

	MaxUploadBytes int64
	AppBaseURL     string
	AllowedOrigins []string
}

// Supported DB_DRIVER values.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpireHours int
}

func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "Manuscript Review <no-reply@journal.org>"
	SkipTLSVerify bool
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type PathsConfig struct {
	UploadDir string
	LogDir    string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so callers and tests do not
// depend on process state.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	expireHours, err := strconv.Atoi(get("JWT_EXPIRE_HOURS", "24"))
	if err != nil || expireHours <= 0 {
		expireHours = 24
	}

	smtpPort, err := strconv.Atoi(get("SMTP_PORT", "587"))
	if err != nil || smtpPort == 0 {
		smtpPort = 587
	}

	maxUploadMB, err := strconv.Atoi(get("MAX_UPLOAD_MB", "10"))
	if err != nil || maxUploadMB <= 0 {
		maxUploadMB = 10
	}

	driver := strings.ToLower(get("DB_DRIVER", DriverMySQL))
	defaultPort := "3306"
	if driver == DriverPostgres {
		defaultPort = "5432"
	}

	cfg := &Config{
		Environment: strings.ToLower(get("ENVIRONMENT", "development")),
		GinMode:     get("GIN_MODE", ""),
		ServerPort:  get("SERVER_PORT", "8080"),
		DebugSQL:    strings.EqualFold(get("DEBUG_SQL", ""), "true"),
		DB: DatabaseConfig{
			Driver:   driver,
			Host:     get("DB_HOST", "127.0.0.1"),
			Port:     get("DB_PORT", defaultPort),
			Database: get("DB_DATABASE", "manuscript_review"),
			Username: get("DB_USERNAME", "root"),
			Password: getenv("DB_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      getenv("JWT_SECRET"),
			ExpireHours: expireHours,
		},
		SMTP: SMTPConfig{
			Host:          get("SMTP_HOST", ""),
			Port:          smtpPort,
			User:          get("SMTP_USER", ""),
			Pass:          getenv("SMTP_PASS"),
			From:          get("SMTP_FROM", ""),
			SkipTLSVerify: get("SMTP_SKIP_TLS_VERIFY", "") == "1",
		},
		Paths: PathsConfig{
			UploadDir: get("UPLOAD_PATH", "./uploads"),
			LogDir:    get("LOG_DIR", "./logs"),
		},
		MaxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		AppBaseURL:     get("APP_BASE_URL", ""),
		AllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.ServerPort == "" {
		errs = append(errs, errors.New("SERVER_PORT must not be empty"))
	}
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported (mysql, postgres, sqlite)", c.DB.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN returns the data source name for the configured driver. For sqlite the
// database name is the file path.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			d.Host, d.Username, d.Password, d.Database, d.Port)
	case DriverSQLite:
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.Username,
			d.Password,
			d.Host,
			d.Port,
			d.Database,
		)
	}
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
