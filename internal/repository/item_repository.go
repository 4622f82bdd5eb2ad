package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// アイテムの永続化（保存・取得）だけを約束。
type ItemRepository interface {
	//作成日時の新しい順で全件取得
	List(ctx context.Context) ([]model.Item, error)
	FindByID(ctx context.Context, id string) (model.Item, error)

	Create(ctx context.Context, item model.Item) error

	//数量だけを更新する（totalValueは触らない）
	SetQuantity(ctx context.Context, id string, quantity float64, updatedAt time.Time) error

	//totalValueだけを更新する
	SetTotalValue(ctx context.Context, id string, totalValue float64, updatedAt time.Time) error

	//部分更新。fieldsはカラム名→新しい値。
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	//削除。存在しないIDはエラーにしない（再削除は何もしない）。
	Delete(ctx context.Context, id string) error
}
