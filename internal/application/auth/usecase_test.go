package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventrack-api/internal/application/auth"
	"github.com/jhoicas/inventrack-api/internal/application/dto"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/memory"
	"github.com/jhoicas/inventrack-api/pkg/jwt"
)

const secret = "test-secret"

func newAuth() (*auth.AuthUseCase, *memory.Store) {
	s := memory.New()
	return auth.NewAuthUseCase(s.Users(), auth.JWTConfig{Secret: secret, ExpMinutes: 5, Issuer: "test"}), s
}

func TestEnsureAdminThenLogin(t *testing.T) {
	ctx := context.Background()
	uc, s := newAuth()

	created, err := uc.EnsureAdmin(ctx, "admin@inventrack.com", "admin12345", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = uc.EnsureAdmin(ctx, "admin@inventrack.com", "otra-clave", "")
	require.NoError(t, err)
	assert.False(t, created, "no se duplica")

	stored, err := s.Users().GetByEmail(ctx, "admin@inventrack.com")
	require.NoError(t, err)
	assert.NotEqual(t, "admin12345", stored.PasswordHash)

	resp, err := uc.Login(ctx, dto.LoginRequest{Email: "admin@inventrack.com", Password: "admin12345"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, resp.User.Role)

	userID, role, err := jwt.Parse(secret, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, userID)
	assert.Equal(t, entity.RoleAdmin, role)
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	uc, _ := newAuth()
	_, err := uc.EnsureAdmin(ctx, "admin@inventrack.com", "admin12345", "Admin")
	require.NoError(t, err)

	_, err = uc.Login(ctx, dto.LoginRequest{Email: "admin@inventrack.com", Password: "mala"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Login(ctx, dto.LoginRequest{Email: "nadie@inventrack.com", Password: "admin12345"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRecoverPasswordAndLogout(t *testing.T) {
	ctx := context.Background()
	uc, _ := newAuth()

	known, err := uc.RecoverPassword(ctx, dto.RecoverPasswordRequest{Email: "x@y.com"})
	require.NoError(t, err)
	assert.Equal(t, auth.RecoverMessage, known.Message)

	_, err = uc.RecoverPassword(ctx, dto.RecoverPasswordRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, auth.LogoutMessage, uc.Logout().Message)
}
