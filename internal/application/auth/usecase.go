package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/inventrack-api/internal/application/dto"
	"github.com/jhoicas/inventrack-api/internal/domain"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/domain/repository"
	"github.com/jhoicas/inventrack-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Mensajes fijos de logout y recuperación de contraseña.
const (
	LogoutMessage  = "Sesión cerrada. Elimine el token de acceso."
	RecoverMessage = "Si el correo existe, se enviaron las instrucciones de recuperación."
)

// AuthUseCase casos de uso de autenticación: login, logout y bootstrap del administrador.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg}
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Email inexistente y password incorrecto devuelven el mismo domain.ErrUnauthorized.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, user.Role, uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  *ToUserResponse(user),
	}, nil
}

// Logout con JWT sin estado: el servidor solo confirma; el cliente descarta el token.
func (uc *AuthUseCase) Logout() dto.MessageResponse {
	return dto.MessageResponse{Message: LogoutMessage}
}

// RecoverPassword simula el envío de instrucciones. La respuesta no revela si el email existe.
func (uc *AuthUseCase) RecoverPassword(ctx context.Context, in dto.RecoverPasswordRequest) (dto.MessageResponse, error) {
	if strings.TrimSpace(in.Email) == "" {
		return dto.MessageResponse{}, domain.ErrInvalidInput
	}
	if _, err := uc.userRepo.GetByEmail(ctx, strings.TrimSpace(in.Email)); err != nil {
		return dto.MessageResponse{}, err
	}
	return dto.MessageResponse{Message: RecoverMessage}, nil
}

// EnsureAdmin crea el administrador inicial si no existe un usuario con ese email.
// Devuelve true si lo creó.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	if email == "" || password == "" {
		return false, fmt.Errorf("admin bootstrap: %w", domain.ErrInvalidInput)
	}
	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = "Administrador"
	}
	admin := &entity.User{Email: email, PasswordHash: hash, Name: name, Role: entity.RoleAdmin}
	if err := uc.userRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, domain.ErrEmailAlreadyExists) {
			// Otra instancia lo creó primero.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// HashPassword hashea con bcrypt (coste por defecto).
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ToUserResponse convierte la entidad en su DTO de salida (sin hash).
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
