package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /me の本人情報API。
// TokenVersionGuardは通さない：プロフィールがまだ無い初回ログインでも
// resolverが作って返せるようにする。
type MeHandler struct {
	uc *usecase.PermissionUsecase
}

// DI
func NewMeHandler(uc *usecase.PermissionUsecase) *MeHandler {
	return &MeHandler{uc: uc}
}

func (h *MeHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	me := e.Group("/me")

	me.Use(middleware.AuthJWT(cfg))

	me.GET("/permissions", h.permissions)
}

func (h *MeHandler) permissions(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserIDKey).(string)
	email, _ := c.Get(middleware.CtxUserEmailKey).(string)

	identity := &usecase.Identity{
		ID:          userID,
		Email:       email,
		DisplayName: email,
	}

	//エラーでも必ず安全側の値が返る
	state := h.uc.Resolve(c.Request().Context(), identity)

	return c.JSON(http.StatusOK, state)
}
