package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/middleware"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type HdlItemRepoMock struct{ mock.Mock }

func (m *HdlItemRepoMock) List(ctx context.Context) ([]model.Item, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Item)
	return items, args.Error(1)
}

func (m *HdlItemRepoMock) FindByID(ctx context.Context, id string) (model.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(model.Item)
	return item, args.Error(1)
}

func (m *HdlItemRepoMock) Create(ctx context.Context, item model.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *HdlItemRepoMock) SetQuantity(ctx context.Context, id string, quantity float64, updatedAt time.Time) error {
	args := m.Called(ctx, id, quantity, updatedAt)
	return args.Error(0)
}

func (m *HdlItemRepoMock) SetTotalValue(ctx context.Context, id string, totalValue float64, updatedAt time.Time) error {
	args := m.Called(ctx, id, totalValue, updatedAt)
	return args.Error(0)
}

func (m *HdlItemRepoMock) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *HdlItemRepoMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type HdlAuditRepoMock struct{ mock.Mock }

func (m *HdlAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *HdlAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in ItemHandler tests")
}

type HdlPublisherMock struct{ mock.Mock }

func (m *HdlPublisherMock) PublishChange(ctx context.Context, ev usecase.ChangeEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type hdlFixedIDGen struct{}

func (g *hdlFixedIDGen) NewID() string { return "generated-id" }

type hdlFixedClock struct{}

func (c *hdlFixedClock) Now() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newItemHandlerForTest(itemRepo *HdlItemRepoMock, auditRepo *HdlAuditRepoMock, pub *HdlPublisherMock) *ItemHandler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	recorder := usecase.NewAuditRecorder(auditRepo, &hdlFixedIDGen{}, &hdlFixedClock{}, logger)
	uc := usecase.NewInventoryUsecase(itemRepo, recorder, pub, &hdlFixedIDGen{}, &hdlFixedClock{}, logger)
	return NewItemHandler(uc)
}

func deleteContext(t *testing.T, itemID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/items/"+itemID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itemID)

	c.Set(middleware.CtxUserKey, &model.User{
		ID:    "user-1",
		Email: "staff@example.com",
		Permissions: model.Permissions{
			DeleteItem: true,
		},
	})

	return c, rec
}

// =====================
// Delete
// =====================

func TestItemHandler_Delete_AlreadyAbsentSucceedsWithoutAudit(t *testing.T) {
	itemRepo := new(HdlItemRepoMock)
	auditRepo := new(HdlAuditRepoMock)
	pub := new(HdlPublisherMock)
	h := newItemHandlerForTest(itemRepo, auditRepo, pub)

	//対象はすでに消えている
	itemRepo.On("FindByID", mock.Anything, "ghost").Return(model.Item{}, repo.ErrNotFound)

	c, rec := deleteContext(t, "ghost")
	err := h.delete(c)
	assert.NoError(t, err)

	//再削除は成功扱いで、監査ログも通知も出ない
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted")
	itemRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishChange", mock.Anything, mock.Anything)
}

func TestItemHandler_Delete_ExistingItemAuditsLastSnapshot(t *testing.T) {
	itemRepo := new(HdlItemRepoMock)
	auditRepo := new(HdlAuditRepoMock)
	pub := new(HdlPublisherMock)
	h := newItemHandlerForTest(itemRepo, auditRepo, pub)

	itemRepo.On("FindByID", mock.Anything, "item-1").Return(model.Item{
		ID: "item-1", Name: "Copper Wire", Quantity: 40,
	}, nil)
	itemRepo.On("Delete", mock.Anything, "item-1").Return(nil)
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishChange", mock.Anything, mock.Anything).Return(nil)

	c, rec := deleteContext(t, "item-1")
	err := h.delete(c)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	itemRepo.AssertCalled(t, "Delete", mock.Anything, "item-1")

	//削除前の名前と数量が監査ログに残る
	auditRepo.AssertCalled(t, "Create", mock.Anything, mock.MatchedBy(func(log model.AuditLog) bool {
		return log.Action == model.AuditActionDeleteItem &&
			log.ItemName == "Copper Wire" &&
			log.PrevQty != nil && *log.PrevQty == 40.0
	}))
}
