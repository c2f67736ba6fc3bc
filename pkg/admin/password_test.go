package admin

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/botkit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mapAdmins map[string]*models.Admin

func (m mapAdmins) GetAdmin(_ context.Context, username string) (*models.Admin, error) {
	a, ok := m[username]
	if !ok {
		return nil, models.ErrAdminNotFound
	}
	return a, nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)
	return hash
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x", 73)), ErrPasswordTooLong)
	assert.NoError(t, ValidatePassword("longenough"))
}

func TestHashAndVerify(t *testing.T) {
	hash := mustHash(t, "correct-horse")
	assert.True(t, VerifyPassword("correct-horse", hash))
	assert.False(t, VerifyPassword("wrong-horse", hash))

	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestAuthenticate(t *testing.T) {
	admins := mapAdmins{
		"root":     {ID: 1, Username: "root", PasswordHash: mustHash(t, "rootpassword"), IsActive: true},
		"disabled": {ID: 2, Username: "disabled", PasswordHash: mustHash(t, "password123"), IsActive: false},
	}
	ctx := context.Background()

	admin, err := Authenticate(ctx, admins, "root", "rootpassword")
	require.NoError(t, err)
	assert.Equal(t, uint(1), admin.ID)

	_, err = Authenticate(ctx, admins, "root", "nope-nope")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = Authenticate(ctx, admins, "ghost", "whatever1")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = Authenticate(ctx, admins, "disabled", "password123")
	assert.ErrorIs(t, err, models.ErrAdminDisabled)

	// A wrong password on a disabled account does not reveal the state.
	_, err = Authenticate(ctx, admins, "disabled", "wrongwrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}
