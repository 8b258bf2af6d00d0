package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPTTL is how long a one-time code stays valid.
const OTPTTL = 10 * time.Minute

var ErrInvalidOTP = errors.New("invalid or expired code")

// OTP purposes keep verification and password-reset codes apart.
const (
	otpPurposeVerify = "verify"
	otpPurposeReset  = "reset"
)

// OTPStore keeps one-time codes in Redis; verification consumes the code.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

func (s *OTPStore) Set(ctx context.Context, purpose, email, code string) error {
	if err := s.client.Set(ctx, otpKey(purpose, email), code, OTPTTL).Err(); err != nil {
		return fmt.Errorf("redis set otp failed: %w", err)
	}
	return nil
}

// Consume checks the code and deletes it on success so a code can be
// used only once.
func (s *OTPStore) Consume(ctx context.Context, purpose, email, code string) error {
	key := otpKey(purpose, email)

	stored, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("redis get otp failed: %w", err)
	}

	if stored != code {
		return ErrInvalidOTP
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete otp failed: %w", err)
	}
	return nil
}

func otpKey(purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

// generateOTP returns a 6-digit numeric code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
