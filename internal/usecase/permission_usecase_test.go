package usecase_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type PermUserRepoMock struct{ mock.Mock }

func (m *PermUserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *PermUserRepoMock) FindByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *PermUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	panic("not used in PermissionUsecase tests")
}

func (m *PermUserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used in PermissionUsecase tests")
}

func (m *PermUserRepoMock) List(ctx context.Context) ([]model.User, error) {
	panic("not used in PermissionUsecase tests")
}

func (m *PermUserRepoMock) UpdateAccess(ctx context.Context, userID string, role model.Role, perms model.Permissions) error {
	panic("not used in PermissionUsecase tests")
}

func (m *PermUserRepoMock) IncrementTokenVersion(ctx context.Context, userID string) (int, error) {
	panic("not used in PermissionUsecase tests")
}

func newPermissionUC(userRepo *PermUserRepoMock) *usecase.PermissionUsecase {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return usecase.NewPermissionUsecase(userRepo, &invFixedClock{t: invNow}, logger)
}

func TestPermissionUsecase_Resolve_NilIdentityDenied(t *testing.T) {
	uc := newPermissionUC(new(PermUserRepoMock))

	state := uc.Resolve(context.Background(), nil)

	assert.Equal(t, model.RoleUser, state.Role)
	assert.Equal(t, model.DefaultPermissions(), state.Permissions)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestPermissionUsecase_Resolve_ExistingProfile(t *testing.T) {
	userRepo := new(PermUserRepoMock)
	uc := newPermissionUC(userRepo)

	perms := model.Permissions{AddItem: true, UpdateQty: true, ViewReports: true}
	userRepo.On("FindByID", mock.Anything, "user-1").Return(&model.User{
		ID:          "user-1",
		Role:        model.RoleAdmin,
		Permissions: perms,
	}, nil)

	state := uc.Resolve(context.Background(), &usecase.Identity{ID: "user-1", Email: "a@example.com"})

	assert.Equal(t, model.RoleAdmin, state.Role)
	assert.Equal(t, perms, state.Permissions)
	assert.Empty(t, state.Error)
}

func TestPermissionUsecase_Resolve_BootstrapsMissingProfile(t *testing.T) {
	userRepo := new(PermUserRepoMock)
	uc := newPermissionUC(userRepo)

	userRepo.On("FindByID", mock.Anything, "new-user").Return(nil, repo.ErrUserNotFound)

	var created *model.User
	userRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*model.User)
	}).Return(nil)

	state := uc.Resolve(context.Background(), &usecase.Identity{ID: "new-user", Email: "new@example.com"})

	//新規プロフィールはuser role＋デフォルトフラグで作られる
	if assert.NotNil(t, created) {
		assert.Equal(t, "new-user", created.ID)
		assert.Equal(t, "new@example.com", created.Email)
		assert.Equal(t, model.RoleUser, created.Role)
		assert.Equal(t, model.DefaultPermissions(), created.Permissions)
		assert.True(t, created.IsActive)
	}

	assert.Equal(t, model.RoleUser, state.Role)
	assert.Equal(t, model.DefaultPermissions(), state.Permissions)
	assert.Empty(t, state.Error)
}

func TestPermissionUsecase_Resolve_BootstrapLostRaceReadsExisting(t *testing.T) {
	userRepo := new(PermUserRepoMock)
	uc := newPermissionUC(userRepo)

	//1回目は無し、Createは重複で失敗、読み直すと別セッションが作った行がある
	userRepo.On("FindByID", mock.Anything, "racer").Return(nil, repo.ErrUserNotFound).Once()
	userRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key"))
	userRepo.On("FindByID", mock.Anything, "racer").Return(&model.User{
		ID:          "racer",
		Role:        model.RoleUser,
		Permissions: model.Permissions{AddItem: true},
	}, nil).Once()

	state := uc.Resolve(context.Background(), &usecase.Identity{ID: "racer", Email: "r@example.com"})

	assert.Empty(t, state.Error)
	assert.True(t, state.Permissions.AddItem)
}

func TestPermissionUsecase_Resolve_ReadFailureDegradesToDefaults(t *testing.T) {
	userRepo := new(PermUserRepoMock)
	uc := newPermissionUC(userRepo)

	userRepo.On("FindByID", mock.Anything, "user-1").Return(nil, errors.New("db down"))

	state := uc.Resolve(context.Background(), &usecase.Identity{ID: "user-1"})

	assert.Equal(t, model.RoleUser, state.Role)
	assert.Equal(t, model.DefaultPermissions(), state.Permissions)
	assert.NotEmpty(t, state.Error)
}
