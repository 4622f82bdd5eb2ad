package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func reportItems() []model.Item {
	return []model.Item{
		{ID: "i1", Quantity: 5, MinThreshold: 10, Category: model.CategoryTransformer, TotalValue: 100},
		{ID: "i2", Quantity: 20, MinThreshold: 10, Category: model.CategoryTransformer, TotalValue: 300},
		{ID: "i3", Quantity: 10, MinThreshold: 10, Category: model.CategoryLine, TotalValue: 50},
	}
}

func TestReportUsecase_Summary_All(t *testing.T) {
	itemRepo := new(InvItemRepoMock)
	uc := usecase.NewReportUsecase(itemRepo)

	itemRepo.On("List", mock.Anything).Return(reportItems(), nil)

	out, err := uc.Summary(context.Background(), nil)
	assert.NoError(t, err)

	assert.Equal(t, 3, out.ItemCount)
	//quantity == minThreshold は不足ではない
	assert.Equal(t, 1, out.LowStockCount)
	assert.Equal(t, 2, out.OkCount)
	assert.Equal(t, 450.0, out.TotalValue)
	assert.Equal(t, 400.0, out.ValueByCategory[model.CategoryTransformer])
	assert.Equal(t, 50.0, out.ValueByCategory[model.CategoryLine])
}

func TestReportUsecase_Summary_CategoryFilter(t *testing.T) {
	itemRepo := new(InvItemRepoMock)
	uc := usecase.NewReportUsecase(itemRepo)

	itemRepo.On("List", mock.Anything).Return(reportItems(), nil)

	cat := model.CategoryTransformer
	out, err := uc.Summary(context.Background(), &cat)
	assert.NoError(t, err)

	//件数系はフィルタしたカテゴリだけ
	assert.Equal(t, 2, out.ItemCount)
	assert.Equal(t, 1, out.LowStockCount)
	assert.Equal(t, 400.0, out.TotalValue)
	//カテゴリ別合計はフィルタに関係なく全件
	assert.Equal(t, 50.0, out.ValueByCategory[model.CategoryLine])
}

func TestReportUsecase_Summary_InvalidCategory(t *testing.T) {
	uc := usecase.NewReportUsecase(new(InvItemRepoMock))

	cat := model.Category("Cable")
	_, err := uc.Summary(context.Background(), &cat)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestReportUsecase_Summary_DBError(t *testing.T) {
	itemRepo := new(InvItemRepoMock)
	uc := usecase.NewReportUsecase(itemRepo)

	itemRepo.On("List", mock.Anything).Return(nil, errors.New("db down"))

	_, err := uc.Summary(context.Background(), nil)
	assertStatus(t, err, http.StatusInternalServerError)
}
