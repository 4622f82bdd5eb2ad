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

// アイテム追加の入力です。
type ItemCreateRequest struct {
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Dealer       string  `json:"dealer"`
	MinThreshold float64 `json:"minThreshold"`
	Category     string  `json:"category"`
}

// 数量更新の入力です。prevQtyは監査ログ用の変更前値。
type QuantityUpdateRequest struct {
	Name    string  `json:"name"`
	PrevQty float64 `json:"prevQty"`
	NewQty  float64 `json:"newQty"`
}

// 数量以外の項目の部分更新。nilの項目は変更しない。
type SpecsUpdateRequest struct {
	Name         *string  `json:"name"`
	Unit         *string  `json:"unit"`
	Quantity     *float64 `json:"quantity"`
	Price        *float64 `json:"price"`
	Dealer       *string  `json:"dealer"`
	MinThreshold *float64 `json:"minThreshold"`
	Category     *string  `json:"category"`
}

// 一覧の1行。lowStockは読み取り時に導出する（保存しない）。
type ItemResponse struct {
	model.Item
	LowStock bool `json:"lowStock"`
}

// /items をまとめる
type ItemHandler struct {
	uc *usecase.InventoryUsecase
}

// DI
func NewItemHandler(uc *usecase.InventoryUsecase) *ItemHandler {
	return &ItemHandler{uc: uc}
}

// アイテムのルートを登録。全部JWT必須で、変更系は許可フラグで絞る。
func (h *ItemHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	items := e.Group("/items")

	items.Use(middleware.AuthJWT(cfg))
	items.Use(middleware.TokenVersionGuard(userRepo))

	items.GET("", h.list)
	items.POST("", h.create, middleware.PermissionGuard(func(p model.Permissions) bool { return p.AddItem }))
	items.PUT("/:id/quantity", h.updateQuantity, middleware.PermissionGuard(func(p model.Permissions) bool { return p.UpdateQty }))
	items.PUT("/:id", h.updateSpecs, middleware.PermissionGuard(func(p model.Permissions) bool { return p.EditSpecs }))
	items.DELETE("/:id", h.delete, middleware.PermissionGuard(func(p model.Permissions) bool { return p.DeleteItem }))
}

func (h *ItemHandler) list(c echo.Context) error {
	items, err := h.uc.ListItems(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	out := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ItemResponse{Item: item, LowStock: item.IsLowStock()})
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ItemHandler) create(c echo.Context) error {
	var req ItemCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	item, err := h.uc.AddItem(c.Request().Context(), actorFromUser(user), usecase.AddItemInput{
		Name:         req.Name,
		Unit:         model.Unit(req.Unit),
		Quantity:     req.Quantity,
		Price:        req.Price,
		Dealer:       req.Dealer,
		MinThreshold: req.MinThreshold,
		Category:     model.Category(req.Category),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, ItemResponse{Item: item, LowStock: item.IsLowStock()})
}

func (h *ItemHandler) updateQuantity(c echo.Context) error {
	id := c.Param("id")

	var req QuantityUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	err := h.uc.UpdateQuantity(c.Request().Context(), actorFromUser(user), id, req.Name, req.PrevQty, req.NewQty)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *ItemHandler) updateSpecs(c echo.Context) error {
	id := c.Param("id")

	var req SpecsUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	user, ok := getUserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	//差分計算とtotalValue再計算のために更新前スナップショットを取る
	prior, err := h.uc.GetItem(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	updates := usecase.SpecUpdates{
		Name:         req.Name,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Dealer:       req.Dealer,
		MinThreshold: req.MinThreshold,
	}
	if req.Unit != nil {
		u := model.Unit(*req.Unit)
		updates.Unit = &u
	}
	if req.Category != nil {
		cat := model.Category(*req.Category)
		updates.Category = &cat
	}

	err = h.uc.UpdateItemSpecs(c.Request().Context(), actorFromUser(user), id, updates, prior)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *ItemHandler) delete(c echo.Context) error {
	id := c.Param("id")

	user, ok := getUserFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	//監査ログ用に最後の名前と数量を取る。すでに無ければ削除は成功扱い。
	prior, err := h.uc.GetItem(c.Request().Context(), id)
	if err != nil {
		if he, ok := usecase.AsHTTPError(err); ok && he.Status == http.StatusNotFound {
			return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
		}
		return writeError(c, err)
	}

	err = h.uc.DeleteItem(c.Request().Context(), actorFromUser(user), id, prior.Name, prior.Quantity)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
