package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/journal/internal/auth"
	"github.com/starford/journal/internal/notestore"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Journal JournalConfig     `yaml:"journal"`
	MCP     MCPConfig         `yaml:"mcp"`
	Export  ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	return c.MCP.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(DriverSQLite, DriverPostgres)),
	); err != nil {
		return err
	}
	if c.Driver == DriverPostgres {
		return c.Postgres.Validate()
	}
	return c.SQLite.Validate()
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Validate validates the PostgreSQL configuration.
func (c *PostgresConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts as LocalEmail, suitable for local use.
//   - "password": e-mail/password accounts with bearer session tokens.
type AuthConfig struct {
	Mode       string        `yaml:"mode"`
	LocalEmail string        `yaml:"local_email"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = string(auth.ModeDisabled)
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(string(auth.ModeDisabled), string(auth.ModePassword))),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Mode == string(auth.ModeDisabled) && c.LocalEmail == "" {
		return fmt.Errorf("auth: mode is %q but local_email is empty", auth.ModeDisabled)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == string(auth.ModePassword)
}

// Service returns the auth service settings.
func (c *AuthConfig) Service() auth.Config {
	return auth.Config{
		Mode:       auth.Mode(c.Mode),
		LocalEmail: c.LocalEmail,
		SessionTTL: c.SessionTTL,
	}
}

// JournalConfig tunes note store behaviour.
type JournalConfig struct {
	FallbackStrategy string `yaml:"fallback_strategy"`
	FallbackFolder   string `yaml:"fallback_folder"`
	TagMatch         string `yaml:"tag_match"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	if _, err := notestore.ParseFallbackStrategy(c.FallbackStrategy); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if _, err := notestore.ParseTagMatch(c.TagMatch); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// StoreOptions returns the note store options described by c. It assumes
// Validate has passed.
func (c *JournalConfig) StoreOptions() []notestore.Option {
	strategy, _ := notestore.ParseFallbackStrategy(c.FallbackStrategy)
	match, _ := notestore.ParseTagMatch(c.TagMatch)
	fb := notestore.DefaultFallback()
	fb.Strategy = strategy
	if c.FallbackFolder != "" {
		fb.Name = c.FallbackFolder
	}
	return []notestore.Option{
		notestore.WithFallback(fb),
		notestore.WithTagMatch(match),
	}
}

// MCPConfig holds MCP server configuration.
type MCPConfig struct {
	// UserEmail is the account the stdio server acts as.
	UserEmail string `yaml:"user_email"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.UserEmail, validation.Length(3, 254)),
	)
}

// ExportConfig holds backup directory configuration.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{
				Path: "./journal.db",
			},
		},
		Auth: AuthConfig{
			Mode:       string(auth.ModeDisabled),
			LocalEmail: "me@localhost.local",
			SessionTTL: auth.DefaultSessionTTL,
		},
		Journal: JournalConfig{
			FallbackStrategy: "name",
			FallbackFolder:   notestore.DefaultFallbackName,
			TagMatch:         "any",
		},
		Export: ExportConfig{
			Dir: "./export",
		},
	}
}
