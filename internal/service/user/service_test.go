package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/repository"
	"github.com/jwalitptl/quickserve-api/pkg/auth"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/security"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, u *model.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func newTestService() (*Service, *fakeUserRepo) {
	repo := newFakeUserRepo()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewJWTService("test-secret", 1)
	return NewService(repo, hasher, tokens, nil), repo
}

func registerRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
		Name:     "Alice",
	}
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, u.Role)
	assert.Equal(t, model.UserStatusActive, u.Status)
	assert.NotEqual(t, "hunter2hunter2", u.PasswordHash)
}

func TestRegister_ProviderRole(t *testing.T) {
	svc, _ := newTestService()

	req := registerRequest()
	req.Role = model.RoleProvider
	u, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.RoleProvider, u.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerRequest())
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestRegister_AdminRejected(t *testing.T) {
	svc, _ := newTestService()

	req := registerRequest()
	req.Role = model.RoleAdmin
	_, err := svc.Register(context.Background(), req)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _ := newTestService()

	req := registerRequest()
	req.Password = "short"
	_, err := svc.Register(context.Background(), req)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Positive(t, tokens.ExpiresIn)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = svc.Login(ctx, &model.LoginRequest{
		Email:    "alice@example.com",
		Password: "not-the-password",
	})
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever1234",
	})
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	bad := &model.LoginRequest{Email: "alice@example.com", Password: "wrong-password"}
	for i := 0; i < maxLoginAttempts; i++ {
		_, err = svc.Login(ctx, bad)
		require.Error(t, err)
	}

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusLocked, stored.Status)

	// Correct password is also refused while locked.
	_, err = svc.Login(ctx, &model.LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, &model.LoginRequest{
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is not accepted as a refresh token.
	_, err = svc.Refresh(ctx, tokens.AccessToken)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestGet(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	self := model.Actor{ID: created.ID, Role: model.RoleCustomer}
	got, err := svc.Get(ctx, self, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)

	stranger := model.Actor{ID: uuid.New(), Role: model.RoleCustomer}
	_, err = svc.Get(ctx, stranger, created.ID)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	_, err = svc.Get(ctx, admin, created.ID)
	assert.NoError(t, err)
}
