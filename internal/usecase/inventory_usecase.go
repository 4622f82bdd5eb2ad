package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/sirupsen/logrus"
)

// InventoryUsecase は在庫の作成・更新・削除の唯一の入口。
// 変更が成功するたびに監査ログを追記し、変更イベントを配信する。
// 許可フラグはミドルウェアだけでなくここでも確認する。
// UIを通さない呼び出しでも権限なしの変更はできない。
type InventoryUsecase struct {
	itemRepo  repo.ItemRepository
	recorder  *AuditRecorder
	publisher ChangePublisher
	idGen     IDGenerator
	clock     Clock
	logger    *logrus.Logger
}

// DI
func NewInventoryUsecase(
	itemRepo repo.ItemRepository,
	recorder *AuditRecorder,
	publisher ChangePublisher,
	idGen IDGenerator,
	clock Clock,
	logger *logrus.Logger,
) *InventoryUsecase {
	return &InventoryUsecase{
		itemRepo:  itemRepo,
		recorder:  recorder,
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		logger:    logger,
	}
}

// アイテム追加の入力
type AddItemInput struct {
	Name         string
	Unit         model.Unit
	Quantity     float64
	Price        float64
	Dealer       string
	MinThreshold float64
	Category     model.Category
}

// 数量以外の項目の部分更新。nilの項目は変更しない。
type SpecUpdates struct {
	Name         *string
	Unit         *model.Unit
	Quantity     *float64
	Price        *float64
	Dealer       *string
	MinThreshold *float64
	Category     *model.Category
}

// 一覧取得。作成日時の新しい順。
func (u *InventoryUsecase) ListItems(ctx context.Context) ([]model.Item, error) {
	items, err := u.itemRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

// 1件取得。
func (u *InventoryUsecase) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	if strings.TrimSpace(itemID) == "" {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	item, err := u.itemRepo.FindByID(ctx, itemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Item{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Item{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return item, nil
}

// アイテムを追加する。totalValueはquantity×priceで計算して保存する。
func (u *InventoryUsecase) AddItem(ctx context.Context, actor Actor, in AddItemInput) (model.Item, error) {
	if !actor.Permissions.AddItem {
		return model.Item{}, NewHTTPError(http.StatusForbidden, "permission denied")
	}

	if strings.TrimSpace(in.Name) == "" {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if !in.Unit.Valid() {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid unit")
	}
	if !isNonNegative(in.Quantity) {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}
	if !isNonNegative(in.Price) {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if !isNonNegative(in.MinThreshold) {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "min_threshold must be >= 0")
	}
	if strings.TrimSpace(in.Dealer) == "" {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "dealer required")
	}
	if !in.Category.Valid() {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}

	now := u.clock.Now()
	item := model.Item{
		ID:           u.idGen.NewID(),
		Name:         strings.TrimSpace(in.Name),
		Unit:         in.Unit,
		Quantity:     in.Quantity,
		Price:        in.Price,
		Dealer:       strings.TrimSpace(in.Dealer),
		MinThreshold: in.MinThreshold,
		Category:     in.Category,
		TotalValue:   in.Quantity * in.Price,
		Timestamp: model.Timestamp{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := u.itemRepo.Create(ctx, item); err != nil {
		return model.Item{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//変更が確定した後にログと通知。どちらの失敗も変更は巻き戻さない。
	u.recorder.RecordAddItem(ctx, actor, item)
	u.publish(ctx, "addItem", item.ID, item.Name)

	return item, nil
}

// 数量を更新する。totalValueの再計算には保存済みの最新priceを使う。
// クライアントが持っている古いpriceは使わない（並行してspecs更新が走るかもしれない）。
func (u *InventoryUsecase) UpdateQuantity(ctx context.Context, actor Actor, itemID string, itemName string, prevQty float64, newQty float64) error {
	if !actor.Permissions.UpdateQty {
		return NewHTTPError(http.StatusForbidden, "permission denied")
	}
	if strings.TrimSpace(itemID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if !isNonNegative(newQty) {
		return NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}

	now := u.clock.Now()

	// 1) 数量を書き込む
	err := u.itemRepo.SetQuantity(ctx, itemID, newQty, now)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 2) 最新のpriceを読み直してtotalValueを再計算する
	fresh, err := u.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if err := u.itemRepo.SetTotalValue(ctx, itemID, newQty*fresh.Price, now); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 3) 監査ログと変更通知
	u.recorder.RecordUpdateQuantity(ctx, actor, itemID, itemName, prevQty, newQty)
	u.publish(ctx, "updateQuantity", itemID, itemName)

	return nil
}

// 数量以外の項目を部分更新する。priceかquantityが含まれる場合は
// 更新値と更新前スナップショットを組み合わせてtotalValueを計算し直す。
func (u *InventoryUsecase) UpdateItemSpecs(ctx context.Context, actor Actor, itemID string, updates SpecUpdates, prior model.Item) error {
	if !actor.Permissions.EditSpecs {
		return NewHTTPError(http.StatusForbidden, "permission denied")
	}
	if strings.TrimSpace(itemID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	//カラム名→値（保存用）とフィールド名→値（監査用）を組み立てる
	fields := make(map[string]interface{})
	rawUpdates := make(map[string]interface{})

	if updates.Name != nil {
		name := strings.TrimSpace(*updates.Name)
		if name == "" {
			return NewHTTPError(http.StatusBadRequest, "name required")
		}
		fields["name"] = name
		rawUpdates["name"] = name
	}
	if updates.Unit != nil {
		if !updates.Unit.Valid() {
			return NewHTTPError(http.StatusBadRequest, "invalid unit")
		}
		fields["unit"] = *updates.Unit
		rawUpdates["unit"] = *updates.Unit
	}
	if updates.Quantity != nil {
		if !isNonNegative(*updates.Quantity) {
			return NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
		}
		fields["quantity"] = *updates.Quantity
		rawUpdates["quantity"] = *updates.Quantity
	}
	if updates.Price != nil {
		if !isNonNegative(*updates.Price) {
			return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
		}
		fields["price"] = *updates.Price
		rawUpdates["price"] = *updates.Price
	}
	if updates.Dealer != nil {
		dealer := strings.TrimSpace(*updates.Dealer)
		if dealer == "" {
			return NewHTTPError(http.StatusBadRequest, "dealer required")
		}
		fields["dealer"] = dealer
		rawUpdates["dealer"] = dealer
	}
	if updates.MinThreshold != nil {
		if !isNonNegative(*updates.MinThreshold) {
			return NewHTTPError(http.StatusBadRequest, "min_threshold must be >= 0")
		}
		fields["min_threshold"] = *updates.MinThreshold
		rawUpdates["minThreshold"] = *updates.MinThreshold
	}
	if updates.Category != nil {
		if !updates.Category.Valid() {
			return NewHTTPError(http.StatusBadRequest, "invalid category")
		}
		fields["category"] = *updates.Category
		rawUpdates["category"] = *updates.Category
	}

	if len(fields) == 0 {
		return NewHTTPError(http.StatusBadRequest, "no fields to update")
	}

	//priceかquantityが変わるならtotalValueを維持する
	if updates.Price != nil || updates.Quantity != nil {
		q := prior.Quantity
		if updates.Quantity != nil {
			q = *updates.Quantity
		}
		p := prior.Price
		if updates.Price != nil {
			p = *updates.Price
		}
		fields["total_value"] = q * p
	}

	fields["updated_at"] = u.clock.Now()

	err := u.itemRepo.UpdateFields(ctx, itemID, fields)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査用の差分。更新前スナップショットと文字列で比較する。
	priorValues := map[string]interface{}{
		"name":         prior.Name,
		"unit":         prior.Unit,
		"quantity":     prior.Quantity,
		"price":        prior.Price,
		"dealer":       prior.Dealer,
		"minThreshold": prior.MinThreshold,
		"category":     prior.Category,
	}
	changes, changedFields := ComputeChanges(priorValues, rawUpdates)

	itemName := prior.Name
	if updates.Name != nil {
		itemName = *updates.Name
	}

	u.recorder.RecordUpdateItemSpecs(ctx, actor, itemID, itemName, rawUpdates, changes, changedFields)
	u.publish(ctx, "updateItemSpecs", itemID, itemName)

	return nil
}

// アイテムを削除する。存在しないIDの再削除はエラーにしない。
func (u *InventoryUsecase) DeleteItem(ctx context.Context, actor Actor, itemID string, itemName string, prevQty float64) error {
	if !actor.Permissions.DeleteItem {
		return NewHTTPError(http.StatusForbidden, "permission denied")
	}
	if strings.TrimSpace(itemID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	if err := u.itemRepo.Delete(ctx, itemID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//削除後もログは残る（アイテムへの参照はソフト参照）
	u.recorder.RecordDeleteItem(ctx, actor, itemID, itemName, prevQty)
	u.publish(ctx, "deleteItem", itemID, itemName)

	return nil
}

// 変更通知。失敗しても変更操作は成功のまま。
func (u *InventoryUsecase) publish(ctx context.Context, action string, itemID string, itemName string) {
	ev := ChangeEvent{
		Scope:  "items",
		Action: action,
		ID:     itemID,
		Name:   itemName,
		At:     u.clock.Now(),
	}
	if err := u.publisher.PublishChange(ctx, ev); err != nil {
		u.logger.WithFields(logrus.Fields{
			"action":  action,
			"item_id": itemID,
		}).WithError(err).Warn("failed to publish change event")
	}
}

// 0以上の有限な数かどうか
func isNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
