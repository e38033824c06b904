package service

import (
	"context"
	"testing"
	"time"

	"parking_billing/internal/domain"
	"parking_billing/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users  map[string]*domain.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User), nextID: 1}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := r.users[user.Username]; ok {
		return nil, repository.ErrDuplicateEntry
	}
	u := *user
	u.ID = r.nextID
	r.nextID++
	r.users[u.Username] = &u
	out := u
	return &out, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int) (*domain.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			out := *user
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)

	user, err := svc.Register(context.Background(), domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "operator", user.Role)
	assert.Empty(t, user.Password)

	resp, err := svc.Login(context.Background(), domain.LoginUserDTO{Username: "gate-op", Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "gate-op", resp.Username)

	_, claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "gate-op", claims["username"])
	assert.Equal(t, "operator", claims["role"])
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret!"})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), domain.RegisterUserDTO{Username: "gate-op", Password: "other"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := NewAuthService(newFakeUserRepo(), "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret!"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), domain.LoginUserDTO{Username: "gate-op", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), domain.LoginUserDTO{Username: "nobody", Password: "s3cret!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewAuthService(newFakeUserRepo(), "secret-a", time.Hour)
	verifier := NewAuthService(newFakeUserRepo(), "secret-b", time.Hour)

	_, err := issuer.Register(context.Background(), domain.RegisterUserDTO{Username: "gate-op", Password: "s3cret!"})
	require.NoError(t, err)
	resp, err := issuer.Login(context.Background(), domain.LoginUserDTO{Username: "gate-op", Password: "s3cret!"})
	require.NoError(t, err)

	_, _, err = verifier.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
