package handler

import (
	"net/http"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse は Success { message: string } の形に寄せます。
type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// TokenVersionGuardが入れた最新ユーザーを取り出す
func getUserFromContext(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(middleware.CtxUserKey).(*model.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

// 変更操作の実行者を組み立てる。表示名が無いのでemailを使う。
func actorFromUser(user *model.User) usecase.Actor {
	name := user.Email
	if name == "" {
		name = user.ID
	}
	return usecase.Actor{
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserName:    name,
		Permissions: user.Permissions,
	}
}
