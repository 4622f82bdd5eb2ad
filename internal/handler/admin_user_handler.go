package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// role・許可フラグ更新の入力です。
type AccessUpdateRequest struct {
	Role        string            `json:"role"`
	Permissions model.Permissions `json:"permissions"`
}

// /admin/users をまとめる
type AdminUserHandler struct {
	uc *usecase.UserManagementUsecase
}

// DI
func NewAdminUserHandler(uc *usecase.UserManagementUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	// /admin 配下は全部「JWT必須 + token_version一致 + admin限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.GET("/users", h.listUsers)
	admin.PUT("/users/:id/access", h.updateAccess)
	admin.POST("/users/:id/force-logout", h.forceLogout)
}

func (h *AdminUserHandler) listUsers(c echo.Context) error {
	users, err := h.uc.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminUserHandler) updateAccess(c echo.Context) error {
	id := c.Param("id")

	var req AccessUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	err := h.uc.UpdateAccess(c.Request().Context(), id, model.Role(req.Role), req.Permissions)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	id := c.Param("id")

	out, err := h.uc.ForceLogout(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
