// Package config loads service settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goliatone/go-accounts"
)

// EnvPrefix is prepended to every environment variable, e.g.
// ACCOUNTS_JWT_SECRET for jwt.secret
const EnvPrefix = "ACCOUNTS"

type HTTPConfig struct {
	Addr string
}

type DBConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
	Issuer    string
}

type AuthConfig struct {
	VerifyToken bool
	EnforceRBAC bool
}

type MailConfig struct {
	Send         bool
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	TemplatesDir string
	// ConfirmPath and ResetPath are the client pages emailed links open
	ConfirmPath string
	ResetPath   string
}

type TokensConfig struct {
	ConfirmTTL time.Duration
	ResetTTL   time.Duration
}

type AdminConfig struct {
	Email    string
	Password string
}

// Config holds every service setting. It implements accounts.Config.
type Config struct {
	HTTP    HTTPConfig
	DB      DBConfig
	JWT     JWTConfig
	Auth    AuthConfig
	Mail    MailConfig
	BaseURL string
	Tokens  TokensConfig
	Admin   AdminConfig
	Debug   bool
}

var _ accounts.Config = (*Config)(nil)

// Option customizes Load
type Option func(*viper.Viper)

// WithConfigFile reads path before applying environment overrides. A
// missing file is an error.
func WithConfigFile(path string) Option {
	return func(v *viper.Viper) {
		if path != "" {
			v.SetConfigFile(path)
		}
	}
}

// WithOverride sets key to value with the highest precedence.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "accounts")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expires_in", accounts.DefaultTokenExpiration)
	v.SetDefault("jwt.issuer", "go-accounts")

	v.SetDefault("auth.verify_token", true)
	v.SetDefault("auth.enforce_rbac", true)

	v.SetDefault("mail.send", false)
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 25)
	v.SetDefault("mail.user", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@localhost")
	v.SetDefault("mail.templates_dir", "")
	v.SetDefault("mail.confirm_path", "/confirm-account")
	v.SetDefault("mail.reset_path", "/reset-password")

	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("tokens.confirm_ttl", accounts.DefaultConfirmTokenTTL)
	v.SetDefault("tokens.reset_ttl", accounts.DefaultResetTokenTTL)

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("debug", false)
}

// Load resolves the configuration from defaults, the optional config file
// and ACCOUNTS_ prefixed environment variables, in increasing precedence.
func Load(opts ...Option) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	c := &Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		DB: DBConfig{
			Driver:   strings.ToLower(v.GetString("db.driver")),
			DSN:      v.GetString("db.dsn"),
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			ExpiresIn: v.GetDuration("jwt.expires_in"),
			Issuer:    v.GetString("jwt.issuer"),
		},
		Auth: AuthConfig{
			VerifyToken: v.GetBool("auth.verify_token"),
			EnforceRBAC: v.GetBool("auth.enforce_rbac"),
		},
		Mail: MailConfig{
			Send:         v.GetBool("mail.send"),
			Host:         v.GetString("mail.host"),
			Port:         v.GetInt("mail.port"),
			User:         v.GetString("mail.user"),
			Password:     v.GetString("mail.password"),
			From:         v.GetString("mail.from"),
			TemplatesDir: v.GetString("mail.templates_dir"),
			ConfirmPath:  v.GetString("mail.confirm_path"),
			ResetPath:    v.GetString("mail.reset_path"),
		},
		BaseURL: strings.TrimRight(v.GetString("app.base_url"), "/"),
		Tokens: TokensConfig{
			ConfirmTTL: v.GetDuration("tokens.confirm_ttl"),
			ResetTTL:   v.GetDuration("tokens.reset_ttl"),
		},
		Admin: AdminConfig{
			Email:    v.GetString("admin.email"),
			Password: v.GetString("admin.password"),
		},
		Debug: v.GetBool("debug"),
	}

	return c, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.VerifyToken && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required when auth.verify_token is enabled"))
	}

	switch c.DB.Driver {
	case accounts.DialectSQLite:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for the sqlite driver"))
		}
	case accounts.DialectPostgres:
		if c.DB.DSN == "" && c.DB.Host == "" {
			errs = append(errs, errors.New("db.dsn or db.host is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported db.driver %q", c.DB.Driver))
	}

	if c.Mail.Send && c.Mail.Host == "" {
		errs = append(errs, errors.New("mail.host is required when mail.send is enabled"))
	}

	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, errors.New("jwt.expires_in must be positive"))
	}

	return errors.Join(errs...)
}

// DatabaseDSN returns db.dsn or builds a postgres URL from the parts.
func (c *Config) DatabaseDSN() string {
	if c.DB.DSN != "" || c.DB.Driver != accounts.DialectPostgres {
		return c.DB.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   c.DB.Host + ":" + strconv.Itoa(c.DB.Port),
		Path:   "/" + c.DB.Name,
	}
	if c.DB.User != "" {
		u.User = url.UserPassword(c.DB.User, c.DB.Password)
	}
	q := url.Values{}
	if c.DB.SSLMode != "" {
		q.Set("sslmode", c.DB.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) GetSigningKey() string {
	return c.JWT.Secret
}

func (c *Config) GetSigningMethod() string {
	return "HS256"
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.JWT.ExpiresIn
}

func (c *Config) GetIssuer() string {
	return c.JWT.Issuer
}

func (c *Config) GetContextKey() string {
	return "user"
}

func (c *Config) GetTokenLookup() string {
	return "header:Authorization"
}

func (c *Config) GetAuthScheme() string {
	return "Bearer"
}

func (c *Config) GetConfirmTokenTTL() time.Duration {
	return c.Tokens.ConfirmTTL
}

func (c *Config) GetResetTokenTTL() time.Duration {
	return c.Tokens.ResetTTL
}

func (c *Config) GetVerifyToken() bool {
	return c.Auth.VerifyToken
}

func (c *Config) GetEnforceRBAC() bool {
	return c.Auth.EnforceRBAC
}

func (c *Config) GetSendEmails() bool {
	return c.Mail.Send
}
