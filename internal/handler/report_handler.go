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

// /reports の集計API。viewReportsを持つユーザー限定。
type ReportHandler struct {
	uc *usecase.ReportUsecase
}

// DI
func NewReportHandler(uc *usecase.ReportUsecase) *ReportHandler {
	return &ReportHandler{uc: uc}
}

func (h *ReportHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	reports := e.Group("/reports")

	reports.Use(middleware.AuthJWT(cfg))
	reports.Use(middleware.TokenVersionGuard(userRepo))
	reports.Use(middleware.PermissionGuard(func(p model.Permissions) bool { return p.ViewReports }))

	reports.GET("/summary", h.summary)
}

func (h *ReportHandler) summary(c echo.Context) error {
	var category *model.Category
	if v := c.QueryParam("category"); v != "" {
		cat := model.Category(v)
		category = &cat
	}

	out, err := h.uc.Summary(c.Request().Context(), category)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
