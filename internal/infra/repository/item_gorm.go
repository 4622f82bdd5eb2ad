package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type itemGormRepository struct {
	db *gorm.DB
}

func NewItemGormRepository(db *gorm.DB) repo.ItemRepository {
	return &itemGormRepository{db: db}
}

// 作成日時の新しい順で全件取得
func (r *itemGormRepository) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&items).Error

	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemGormRepository) FindByID(ctx context.Context, id string) (model.Item, error) {
	var item model.Item

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Item{}, repo.ErrNotFound
		}
		return model.Item{}, err
	}

	return item, nil
}

func (r *itemGormRepository) Create(ctx context.Context, item model.Item) error {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return err
	}
	return nil
}

// 数量だけを更新する
func (r *itemGormRepository) SetQuantity(ctx context.Context, id string, quantity float64, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": updatedAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// totalValueだけを更新する
func (r *itemGormRepository) SetTotalValue(ctx context.Context, id string, totalValue float64, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_value": totalValue,
			"updated_at":  updatedAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 部分更新。fieldsはカラム名→値。
func (r *itemGormRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("id = ?", id).
		Updates(fields)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 削除。存在しないIDは何もしないで成功扱い。
func (r *itemGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Item{})

	if res.Error != nil {
		return res.Error
	}
	return nil
}
