package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Raghu1611/freshmart-sub000/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email not verified")
)

// sessionTracker is the slice of the session engine the auth service
// drives: timers start on login and stop on logout.
type sessionTracker interface {
	StartSession(token, userID string)
	Logout(token string)
}

type Service struct {
	repo     UserRepository
	sessions *SessionStore
	otps     *OTPStore
	mailer   Mailer
	tracker  sessionTracker
}

func NewService(repo UserRepository, sessions *SessionStore, otps *OTPStore, mailer Mailer, tracker sessionTracker) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		otps:     otps,
		mailer:   mailer,
		tracker:  tracker,
	}
}

// Register creates an unverified user and mails a verification code.
func (s *Service) Register(ctx context.Context, email, name, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
		Verified:     false,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendOTP(ctx, otpPurposeVerify, email, "Verify your FreshMart account"); err != nil {
		// The account exists; the user can request another code.
		log.Printf("failed to send verification code to %s: %v", email, err)
	}

	return user, nil
}

// VerifyEmail consumes the code and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.otps.Consume(ctx, otpPurposeVerify, email, code); err != nil {
		return err
	}

	return s.repo.MarkVerified(ctx, user.ID)
}

// ResendVerification mails a fresh verification code.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return nil
	}

	return s.sendOTP(ctx, otpPurposeVerify, email, "Verify your FreshMart account")
}

// Login checks credentials, persists a fresh session and starts its
// inactivity timers.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return "", nil, ErrNotVerified
	}

	token, err := generateToken()
	if err != nil {
		return "", nil, err
	}

	if err := s.sessions.Save(ctx, token, user); err != nil {
		return "", nil, err
	}

	s.tracker.StartSession(token, user.ID.String())
	return token, user, nil
}

// Logout ends the session manually; navigation stays with the caller.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.tracker.Logout(token)
	// The tracker clears the identity record too, but a session that was
	// never tracked (process restart) still needs the direct delete.
	if err := s.sessions.Clear(ctx, token); err != nil {
		log.Printf("failed to clear session on logout: %v", err)
	}
	return nil
}

// RequestPasswordReset mails a reset code. Unknown emails are reported
// as not found by the repository; the handler decides what to disclose.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.repo.GetUserByEmail(ctx, email); err != nil {
		return err
	}

	return s.sendOTP(ctx, otpPurposeReset, email, "Reset your FreshMart password")
}

// ResetPassword consumes the reset code and stores the new hash.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.otps.Consume(ctx, otpPurposeReset, email, code); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.repo.UpdatePassword(ctx, user.ID, string(hash))
}

// ListUsers is the admin back-office view of the customer base.
func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) sendOTP(ctx context.Context, purpose, email, subject string) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Set(ctx, purpose, email, code); err != nil {
		return err
	}
	return s.mailer.SendOTP(email, subject, code)
}

// generateToken returns an opaque 256-bit session token.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
