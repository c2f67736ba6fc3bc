package admin

import (
	"context"
	"errors"

	"github.com/marmos91/botkit/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default cost parameter for bcrypt hashing.
const DefaultBcryptCost = 10

// Password validation errors.
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")

	// bcrypt has a maximum input length of 72 bytes.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// Password length constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// dummyHash is compared against when the username is unknown, so a missing
// account costs the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("botkit-dummy-password"), DefaultBcryptCost)

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultBcryptCost)
}

// HashPasswordWithCost creates a bcrypt hash with a custom cost.
// Valid cost values are between 4 and 31.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword checks a password against a bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword checks if a password meets the length requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// AdminGetter looks admins up by username.
type AdminGetter interface {
	GetAdmin(ctx context.Context, username string) (*models.Admin, error)
}

// Authenticate checks username/password against the admins table.
//
// Returns models.ErrInvalidCredentials for unknown users and wrong passwords,
// and models.ErrAdminDisabled for deactivated accounts with a correct password.
func Authenticate(ctx context.Context, admins AdminGetter, username, password string) (*models.Admin, error) {
	admin, err := admins.GetAdmin(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrAdminNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, models.ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, admin.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}
	if !admin.IsActive {
		return nil, models.ErrAdminDisabled
	}
	return admin, nil
}
