package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gestionusuarios/gestion-usuarios/config"
	"github.com/gestionusuarios/gestion-usuarios/internal/types"
)

// MockCredentialStore is a mock implementation of the CredentialStore interface
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) GetByUsername(ctx context.Context, username string) (*Credentials, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Credentials), args.Error(1)
}

func setupAuthServiceTest() (*AuthServiceImpl, *MockCredentialStore) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := NewTokenService(config.JWTConfig{
		SecretKey: "test-secret-key",
		TokenTTL:  time.Hour,
		Issuer:    "test-issuer",
	}, logger)
	mockStore := new(MockCredentialStore)
	service := NewAuthService(mockStore, tokens, logger)
	return service, mockStore
}

func TestAuthService_Authenticate(t *testing.T) {
	service, mockStore := setupAuthServiceTest()
	ctx := context.Background()

	password := "secret123"
	hash, err := HashPassword(password)
	require.NoError(t, err)

	creds := &Credentials{
		ID:           uuid.New(),
		Username:     "jdoe",
		Email:        "jdoe@example.com",
		PasswordHash: hash,
		Activo:       true,
		Perfiles:     []string{"admin", "soporte"},
	}

	t.Run("success", func(t *testing.T) {
		mockStore.On("GetByUsername", ctx, "jdoe").Return(creds, nil).Once()

		resp, err := service.Authenticate(ctx, "jdoe", password)

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Bearer", resp.Tipo)
		assert.Equal(t, creds.ID, resp.ID)
		assert.Equal(t, "jdoe", resp.Username)
		assert.Equal(t, "jdoe@example.com", resp.Email)
		assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_SOPORTE"}, resp.Authorities)
		mockStore.AssertExpectations(t)
	})

	t.Run("unknown username", func(t *testing.T) {
		mockStore.On("GetByUsername", ctx, "ghost").Return(nil, types.ErrNotFound).Once()

		resp, err := service.Authenticate(ctx, "ghost", password)

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		mockStore.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockStore.On("GetByUsername", ctx, "jdoe").Return(creds, nil).Once()

		resp, err := service.Authenticate(ctx, "jdoe", "wrongpassword")

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		mockStore.AssertExpectations(t)
	})

	t.Run("inactive user", func(t *testing.T) {
		inactive := *creds
		inactive.Activo = false
		mockStore.On("GetByUsername", ctx, "jdoe").Return(&inactive, nil).Once()

		resp, err := service.Authenticate(ctx, "jdoe", password)

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, types.ErrInvalidCredentials)
		mockStore.AssertExpectations(t)
	})
}

func TestAuthService_IdentityOf(t *testing.T) {
	service, mockStore := setupAuthServiceTest()
	ctx := context.Background()

	creds := &Credentials{
		ID:       uuid.New(),
		Username: "jdoe",
		Activo:   true,
		Perfiles: []string{"admin"},
	}

	t.Run("success", func(t *testing.T) {
		mockStore.On("GetByUsername", ctx, "jdoe").Return(creds, nil).Once()

		principal, err := service.IdentityOf(ctx, "jdoe")

		require.NoError(t, err)
		assert.Equal(t, creds.ID, principal.ID)
		assert.Equal(t, "jdoe", principal.Username)
		assert.Equal(t, []string{"ROLE_ADMIN"}, principal.Authorities)
		mockStore.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockStore.On("GetByUsername", ctx, "ghost").Return(nil, types.ErrNotFound).Once()

		principal, err := service.IdentityOf(ctx, "ghost")

		assert.Nil(t, principal)
		assert.ErrorIs(t, err, types.ErrNotFound)
		mockStore.AssertExpectations(t)
	})
}

func TestAuthorities(t *testing.T) {
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_SOPORTE"}, Authorities([]string{"admin", "soporte"}))
	assert.Empty(t, Authorities(nil))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, VerifyPassword("secret123", hash))
	assert.False(t, VerifyPassword("other", hash))
}
