package middleware

import (
	"net/http"

	"app/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// PermissionGuard は許可フラグを1つ確認する。
// TokenVersionGuardの後ろで使う（contextの最新ユーザーを見る）。
// JWTのroleではなくDBの現在値で判定するので、剥奪は次のリクエストから効く。
func PermissionGuard(check func(model.Permissions) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawUser := c.Get(CtxUserKey)
			user, ok := rawUser.(*model.User)
			if !ok || user == nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//roleでは通さない。adminでも項目の操作はフラグで判定する。
			if !check(user.Permissions) {
				return c.JSON(http.StatusForbidden, errorJSON("permission denied"))
			}

			return next(c)
		}
	}
}
