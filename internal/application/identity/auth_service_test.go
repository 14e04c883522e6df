package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/domain/shared"
	"github.com/distrib/backend/internal/infrastructure/auth"
	"github.com/distrib/backend/internal/infrastructure/config"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

const testPassword = "correct-horse"

func newTestUser(t *testing.T, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser("dist.one", "Distributor One", testPassword, role)
	require.NoError(t, err)
	return u
}

func newTestAuthService(repo *MockUserRepository) (*AuthService, *auth.JWTService, *auth.InMemoryTokenBlacklist) {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	return NewAuthService(repo, jwtService, blacklist, zap.NewNop()), jwtService, blacklist
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, identity.RoleDistributor)

	repo := new(MockUserRepository)
	repo.On("FindByUsername", ctx, "dist.one").Return(user, nil)
	repo.On("FindByUsername", ctx, "ghost").Return(nil, shared.ErrNotFound)
	svc, jwtService, _ := newTestAuthService(repo)

	result, err := svc.Login(ctx, LoginInput{Username: "dist.one", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, "DISTRIBUTOR", result.User.Role)

	claims, err := jwtService.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.True(t, actor.Owns(user.ID))

	_, err = svc.Login(ctx, LoginInput{Username: "dist.one", Password: "wrong-password"})
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, err = svc.Login(ctx, LoginInput{Username: "ghost", Password: testPassword})
	assert.ErrorIs(t, err, errInvalidCredentials)

	user.Deactivate()
	_, err = svc.Login(ctx, LoginInput{Username: "dist.one", Password: testPassword})
	require.Error(t, err)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", err.(*shared.DomainError).Code)
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, identity.RoleDistributor)
	repo := new(MockUserRepository)
	repo.On("FindByUsername", ctx, "dist.one").Return(user, nil)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	svc, jwtService, _ := newTestAuthService(repo)

	login, err := svc.Login(ctx, LoginInput{Username: "dist.one", Password: testPassword})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// a refresh token is single use
	_, err = svc.RefreshToken(ctx, login.RefreshToken)
	assert.Error(t, err)

	claims, err := jwtService.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, LogoutInput{TokenJTI: claims.ID, TTL: claims.GetRemainingTTL()}))
	revoked, err := svc.IsTokenRevoked(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(t, identity.RoleDistributor)
	repo := new(MockUserRepository)
	repo.On("FindByID", ctx, user.ID).Return(user, nil)
	repo.On("Save", ctx, user).Return(nil)
	svc, _, _ := newTestAuthService(repo)

	err := svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "another-secret"})
	assert.Error(t, err)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "another-secret"}))
	assert.True(t, user.VerifyPassword("another-secret"))
}
