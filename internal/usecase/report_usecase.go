package usecase

import (
	"context"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// ダッシュボード用の集計結果
type ReportSummary struct {
	ItemCount       int                        `json:"itemCount"`
	LowStockCount   int                        `json:"lowStockCount"`
	OkCount         int                        `json:"okCount"`
	TotalValue      float64                    `json:"totalValue"`
	ValueByCategory map[model.Category]float64 `json:"valueByCategory"`
}

// ReportUsecase は在庫の集計。viewReportsを持つユーザー向け。
type ReportUsecase struct {
	itemRepo repo.ItemRepository
}

// DI
func NewReportUsecase(itemRepo repo.ItemRepository) *ReportUsecase {
	return &ReportUsecase{itemRepo: itemRepo}
}

// Summary は件数・在庫不足数・合計金額・カテゴリ別の金額を集計する。
// categoryを指定すると件数系はそのカテゴリだけで数える。
func (u *ReportUsecase) Summary(ctx context.Context, category *model.Category) (ReportSummary, error) {
	if category != nil && !category.Valid() {
		return ReportSummary{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}

	items, err := u.itemRepo.List(ctx)
	if err != nil {
		return ReportSummary{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	summary := ReportSummary{
		ValueByCategory: map[model.Category]float64{
			model.CategoryTransformer: 0,
			model.CategoryLine:        0,
		},
	}

	for _, item := range items {
		//カテゴリ別合計はフィルタに関係なく全件で出す
		if _, ok := summary.ValueByCategory[item.Category]; ok {
			summary.ValueByCategory[item.Category] += item.TotalValue
		}

		if category != nil && item.Category != *category {
			continue
		}

		summary.ItemCount++
		summary.TotalValue += item.TotalValue
		if item.IsLowStock() {
			summary.LowStockCount++
		}
	}

	summary.OkCount = summary.ItemCount - summary.LowStockCount
	return summary, nil
}
