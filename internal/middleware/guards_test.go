package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type GuardUserRepoMock struct{ mock.Mock }

func (m *GuardUserRepoMock) Create(ctx context.Context, user *model.User) error {
	panic("not used in guard tests")
}

func (m *GuardUserRepoMock) FindByID(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *GuardUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	panic("not used in guard tests")
}

func (m *GuardUserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used in guard tests")
}

func (m *GuardUserRepoMock) List(ctx context.Context) ([]model.User, error) {
	panic("not used in guard tests")
}

func (m *GuardUserRepoMock) UpdateAccess(ctx context.Context, userID string, role model.Role, perms model.Permissions) error {
	panic("not used in guard tests")
}

func (m *GuardUserRepoMock) IncrementTokenVersion(ctx context.Context, userID string) (int, error) {
	panic("not used in guard tests")
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func runGuard(t *testing.T, mw echo.MiddlewareFunc, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}

	err := mw(okHandler)(c)
	assert.NoError(t, err)
	return rec
}

// =====================
// PermissionGuard
// =====================

func TestPermissionGuard_AllowsWhenFlagSet(t *testing.T) {
	mw := middleware.PermissionGuard(func(p model.Permissions) bool { return p.AddItem })

	rec := runGuard(t, mw, func(c echo.Context) {
		c.Set(middleware.CtxUserKey, &model.User{Permissions: model.Permissions{AddItem: true}})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPermissionGuard_DeniesWhenFlagMissing(t *testing.T) {
	mw := middleware.PermissionGuard(func(p model.Permissions) bool { return p.DeleteItem })

	rec := runGuard(t, mw, func(c echo.Context) {
		c.Set(middleware.CtxUserKey, &model.User{Permissions: model.Permissions{AddItem: true}})
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPermissionGuard_AdminRoleDoesNotBypassFlags(t *testing.T) {
	mw := middleware.PermissionGuard(func(p model.Permissions) bool { return p.DeleteItem })

	//adminでもdeleteItemフラグが無ければ拒否
	rec := runGuard(t, mw, func(c echo.Context) {
		c.Set(middleware.CtxUserKey, &model.User{Role: model.RoleAdmin})
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPermissionGuard_NoUserInContext(t *testing.T) {
	mw := middleware.PermissionGuard(func(p model.Permissions) bool { return true })

	rec := runGuard(t, mw, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// AdminRoleGuard
// =====================

func TestAdminRoleGuard_AllowsAdmin(t *testing.T) {
	rec := runGuard(t, middleware.AdminRoleGuard(), func(c echo.Context) {
		c.Set(middleware.CtxUserRoleKey, string(model.RoleAdmin))
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoleGuard_DeniesUser(t *testing.T) {
	rec := runGuard(t, middleware.AdminRoleGuard(), func(c echo.Context) {
		c.Set(middleware.CtxUserRoleKey, string(model.RoleUser))
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoleGuard_MissingRole(t *testing.T) {
	rec := runGuard(t, middleware.AdminRoleGuard(), nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// TokenVersionGuard
// =====================

func tokenGuardContext(c echo.Context, tv int) {
	c.Set(middleware.CtxUserIDKey, "user-1")
	c.Set(middleware.CtxTokenVersionKey, tv)
}

func TestTokenVersionGuard_AllowsMatchingVersion(t *testing.T) {
	userRepo := new(GuardUserRepoMock)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(&model.User{
		ID: "user-1", TokenVersion: 2, IsActive: true,
	}, nil)

	rec := runGuard(t, middleware.TokenVersionGuard(userRepo), func(c echo.Context) {
		tokenGuardContext(c, 2)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenVersionGuard_RejectsStaleToken(t *testing.T) {
	userRepo := new(GuardUserRepoMock)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(&model.User{
		ID: "user-1", TokenVersion: 3, IsActive: true,
	}, nil)

	//強制ログアウト後の古いトークン
	rec := runGuard(t, middleware.TokenVersionGuard(userRepo), func(c echo.Context) {
		tokenGuardContext(c, 2)
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard_RejectsInactiveUser(t *testing.T) {
	userRepo := new(GuardUserRepoMock)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(&model.User{
		ID: "user-1", TokenVersion: 2, IsActive: false,
	}, nil)

	rec := runGuard(t, middleware.TokenVersionGuard(userRepo), func(c echo.Context) {
		tokenGuardContext(c, 2)
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenVersionGuard_RejectsUnknownUser(t *testing.T) {
	userRepo := new(GuardUserRepoMock)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(nil, repository.ErrUserNotFound)

	rec := runGuard(t, middleware.TokenVersionGuard(userRepo), func(c echo.Context) {
		tokenGuardContext(c, 2)
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
