package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /audit-logs の閲覧API。管理者限定。
type AuditHandler struct {
	recorder *usecase.AuditRecorder
}

// DI
func NewAuditHandler(recorder *usecase.AuditRecorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

func (h *AuditHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	logs := e.Group("/audit-logs")

	logs.Use(middleware.AuthJWT(cfg))
	logs.Use(middleware.TokenVersionGuard(userRepo))
	logs.Use(middleware.AdminRoleGuard())

	logs.GET("", h.list)
}

func (h *AuditHandler) list(c echo.Context) error {
	var filter repository.AuditLogFilter

	if v := c.QueryParam("action"); v != "" {
		action := model.AuditAction(v)
		if !action.Valid() {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid action"})
		}
		filter.Action = &action
	}
	if v := c.QueryParam("item_id"); v != "" {
		filter.ItemID = &v
	}
	if v := c.QueryParam("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		filter.CreatedFrom = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		filter.CreatedTo = &t
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		filter.Limit = n
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
		}
		filter.Offset = n
	}

	logs, err := h.recorder.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, logs)
}
