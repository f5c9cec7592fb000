// Package signup implements self-serve user registration with email verification.
package signup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"regexp"
	"strings"
	"unicode"

	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/model"
)

// Sentinel errors returned by validation and signup logic.
var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrWeakPassword = errors.New("password must be at least 12 characters with uppercase, lowercase, and digit")
)

// UserStore is the slice of the storage layer signup needs.
type UserStore interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	VerifyUserByToken(ctx context.Context, token string) (model.User, error)
}

// Service handles user registration and email verification.
type Service struct {
	store    UserStore
	logger   *slog.Logger
	smtpHost string
	smtpPort int
	smtpUser string
	smtpPass string
	smtpFrom string
	baseURL  string
}

// Config holds SMTP and base URL settings for the signup service.
type Config struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string
	BaseURL  string
}

// New creates a signup service.
func New(store UserStore, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		smtpUser: cfg.SMTPUser,
		smtpPass: cfg.SMTPPass,
		smtpFrom: cfg.SMTPFrom,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// SignupInput is the validated input for a signup request.
type SignupInput struct {
	Email    string
	Password string
	FullName string
}

// SignupResult is returned on successful signup.
type SignupResult struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Signup creates a new user account and sends a verification email.
func (s *Service) Signup(ctx context.Context, input SignupInput) (SignupResult, error) {
	if err := validateEmail(input.Email); err != nil {
		return SignupResult{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return SignupResult{}, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: hash password: %w", err)
	}

	token, err := generateToken(32)
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: generate token: %w", err)
	}

	var fullName *string
	if name := strings.TrimSpace(input.FullName); name != "" {
		fullName = &name
	}

	user, err := s.store.CreateUser(ctx, model.User{
		Email:             strings.ToLower(input.Email),
		PasswordHash:      hash,
		FullName:          fullName,
		IsActive:          true,
		VerificationToken: &token,
	})
	if err != nil {
		return SignupResult{}, fmt.Errorf("signup: create user: %w", err)
	}

	verifyURL := fmt.Sprintf("%s/v1/auth/verify?token=%s", s.baseURL, token)
	if err := s.sendVerificationEmail(user.Email, verifyURL); err != nil {
		// Log but don't fail; the user can request a resend later.
		s.logger.Error("signup: send verification email failed", "error", err, "email", user.Email)
	}

	return SignupResult{
		UserID:  user.ID,
		Email:   user.Email,
		Message: "check your email to verify your account",
	}, nil
}

// Verify validates a verification token and marks the user as verified.
func (s *Service) Verify(ctx context.Context, token string) (model.User, error) {
	return s.store.VerifyUserByToken(ctx, token)
}

func (s *Service) sendVerificationEmail(to, verifyURL string) error {
	if s.smtpHost == "" {
		s.logger.Info("signup: verification email (dev mode, SMTP not configured)",
			"to", to,
			"verify_url", verifyURL,
		)
		return nil
	}

	subject := "Verify your Tasuki account"
	body := fmt.Sprintf(
		"Welcome to Tasuki!\r\n\r\nClick the link below to verify your email:\r\n\r\n%s\r\n\r\nThis link expires in 24 hours.",
		verifyURL,
	)

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.smtpFrom, to, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", s.smtpHost, s.smtpPort)
	var smtpAuth smtp.Auth
	if s.smtpUser != "" {
		smtpAuth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	return smtp.SendMail(addr, smtpAuth, s.smtpFrom, []string{to}, []byte(msg))
}

// --- Validation helpers ---

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return ErrWeakPassword
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}

func generateToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
