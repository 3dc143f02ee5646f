// Package mailer delivers account confirmation and password reset emails
// over SMTP. Bodies are django templates, embedded by default.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/template/django/v3"
	"gopkg.in/gomail.v2"

	"github.com/goliatone/go-accounts"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Template names, relative to the templates dir and without extension
const (
	TemplateConfirmAccount = "confirm_account"
	TemplateResetPassword  = "reset_password"
)

// Default client pages the emailed links open. The API routes that consume
// the tokens only accept POST, so links target the client app.
const (
	DefaultConfirmPath = "/confirm-account"
	DefaultResetPath   = "/reset-password"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Options configures the SMTP mailer
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// BaseURL prefixes the links embedded in every message
	BaseURL string
	// ConfirmPath and ResetPath are the pages the links open. Either a
	// path joined to BaseURL or an absolute URL.
	ConfirmPath string
	ResetPath   string
	// TemplatesDir overrides the embedded templates when set
	TemplatesDir string
}

// SMTPMailer implements accounts.Mailer
type SMTPMailer struct {
	sender      Sender
	from        string
	baseURL     string
	confirmPath string
	resetPath   string
	views       *django.Engine
	logger      accounts.Logger
}

var _ accounts.Mailer = (*SMTPMailer)(nil)

// New returns a mailer dialing opts.Host for every message. Templates are
// parsed up front so a broken template fails at startup.
func New(opts Options) (*SMTPMailer, error) {
	views, err := loadViews(opts.TemplatesDir)
	if err != nil {
		return nil, err
	}

	return &SMTPMailer{
		sender:      gomail.NewDialer(opts.Host, opts.Port, opts.User, opts.Password),
		from:        opts.From,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		confirmPath: valueOr(opts.ConfirmPath, DefaultConfirmPath),
		resetPath:   valueOr(opts.ResetPath, DefaultResetPath),
		views:       views,
		logger:      accounts.NewSlogLogger(slog.Default()),
	}, nil
}

func loadViews(dir string) (*django.Engine, error) {
	var views *django.Engine
	if dir != "" {
		views = django.New(dir, ".html")
	} else {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("mail templates: %w", err)
		}
		views = django.NewFileSystem(http.FS(sub), ".html")
	}

	if err := views.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	return views, nil
}

// WithSender replaces the SMTP dialer
func (m *SMTPMailer) WithSender(sender Sender) *SMTPMailer {
	if sender != nil {
		m.sender = sender
	}
	return m
}

func (m *SMTPMailer) WithLogger(logger accounts.Logger) *SMTPMailer {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *SMTPMailer) SendConfirmAccount(ctx context.Context, user *accounts.User) error {
	if user == nil || user.ConfirmToken == nil {
		return errors.New("user has no confirm token")
	}

	link := m.link(m.confirmPath, accounts.ConfirmTokenParam, *user.ConfirmToken)
	return m.send(ctx, user, "Confirm your account", TemplateConfirmAccount, link, user.ConfirmTokenExpiresAt)
}

func (m *SMTPMailer) SendResetPassword(ctx context.Context, user *accounts.User) error {
	if user == nil || user.ResetPasswordToken == nil {
		return errors.New("user has no reset password token")
	}

	link := m.link(m.resetPath, accounts.ResetPasswordTokenParam, *user.ResetPasswordToken)
	return m.send(ctx, user, "Reset your password", TemplateResetPassword, link, user.ResetPasswordExpiresAt)
}

// Render executes the named template with data
func (m *SMTPMailer) Render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := m.views.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *SMTPMailer) send(ctx context.Context, user *accounts.User, subject, tpl, link string, expires *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	expiresAt := ""
	if expires != nil {
		expiresAt = expires.UTC().Format(time.RFC1123)
	}

	body, err := m.Render(tpl, map[string]any{
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"link":       link,
		"expires_at": expiresAt,
	})
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send %s mail: %w", tpl, err)
	}

	m.logger.Debug("mail sent", "template", tpl, "uid", user.UID)
	return nil
}

// link builds the URL sent for token, keeping any query already on path
func (m *SMTPMailer) link(path, param, token string) string {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = m.baseURL + path
	}

	u, err := url.Parse(target)
	if err != nil {
		q := url.Values{}
		q.Set(param, token)
		return target + "?" + q.Encode()
	}

	q := u.Query()
	q.Set(param, token)
	u.RawQuery = q.Encode()
	return u.String()
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
