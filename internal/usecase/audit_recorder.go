package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/sirupsen/logrus"
)

// 差分1件。fromとtoは記録時点の生の値。
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// AuditRecorder は在庫への変更操作ごとに監査ログを1件追記する。
// ログの書き込み失敗は呼び出し元の変更操作を失敗にしない。
// すでにコミット済みの変更を巻き戻さず、失敗はログ出力だけにする。
type AuditRecorder struct {
	auditRepo repo.AuditLogRepository
	idGen     IDGenerator
	clock     Clock
	logger    *logrus.Logger
}

// DI
func NewAuditRecorder(
	auditRepo repo.AuditLogRepository,
	idGen IDGenerator,
	clock Clock,
	logger *logrus.Logger,
) *AuditRecorder {
	return &AuditRecorder{
		auditRepo: auditRepo,
		idGen:     idGen,
		clock:     clock,
		logger:    logger,
	}
}

// addItemのログ。初期スナップショットを丸ごと残す。
func (r *AuditRecorder) RecordAddItem(ctx context.Context, actor Actor, item model.Item) {
	entry := r.newEntry(actor, model.AuditActionAddItem, item.ID, item.Name)
	entry.SnapshotJSON = marshalOrEmpty(r.logger, map[string]interface{}{
		"quantity":     item.Quantity,
		"price":        item.Price,
		"unit":         item.Unit,
		"dealer":       item.Dealer,
		"minThreshold": item.MinThreshold,
		"category":     item.Category,
	})
	r.write(ctx, entry)
}

// updateQuantityのログ。前後の数量を残す。
func (r *AuditRecorder) RecordUpdateQuantity(ctx context.Context, actor Actor, itemID string, itemName string, prevQty float64, newQty float64) {
	entry := r.newEntry(actor, model.AuditActionUpdateQuantity, itemID, itemName)
	entry.PrevQty = &prevQty
	entry.NewQty = &newQty
	r.write(ctx, entry)
}

// updateItemSpecsのログ。生の更新セットと項目ごとの差分を残す。
func (r *AuditRecorder) RecordUpdateItemSpecs(
	ctx context.Context,
	actor Actor,
	itemID string,
	itemName string,
	updates map[string]interface{},
	changes map[string]FieldChange,
	changedFields []string,
) {
	entry := r.newEntry(actor, model.AuditActionUpdateItemSpecs, itemID, itemName)
	entry.UpdatesJSON = marshalOrEmpty(r.logger, updates)
	entry.ChangesJSON = marshalOrEmpty(r.logger, changes)
	entry.ChangedFieldsJSON = marshalOrEmpty(r.logger, changedFields)
	r.write(ctx, entry)
}

// deleteItemのログ。履歴用に最後の数量を残す。
func (r *AuditRecorder) RecordDeleteItem(ctx context.Context, actor Actor, itemID string, itemName string, prevQty float64) {
	entry := r.newEntry(actor, model.AuditActionDeleteItem, itemID, itemName)
	entry.PrevQty = &prevQty
	r.write(ctx, entry)
}

// 監査ログの一覧取得。常に時刻の新しい順。
func (r *AuditRecorder) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs, err := r.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, NewHTTPError(500, "db error")
	}
	return logs, nil
}

// 共通部分を組み立てる。時刻はサーバー側で採番する。
func (r *AuditRecorder) newEntry(actor Actor, action model.AuditAction, itemID string, itemName string) model.AuditLog {
	return model.AuditLog{
		ID:        r.idGen.NewID(),
		Action:    action,
		ItemID:    itemID,
		ItemName:  itemName,
		UserID:    actor.UserID,
		UserEmail: actor.UserEmail,
		UserName:  actor.UserName,
		CreatedAt: r.clock.Now(),
	}
}

// 書き込み。失敗は呼び出し元へ返さず、ログに残すだけ。
func (r *AuditRecorder) write(ctx context.Context, entry model.AuditLog) {
	if err := r.auditRepo.Create(ctx, entry); err != nil {
		r.logger.WithFields(logrus.Fields{
			"action":  entry.Action,
			"item_id": entry.ItemID,
			"user_id": entry.UserID,
		}).WithError(err).Error("audit write failed")
	}
}

// ComputeChanges は更新セットの各キーについて変更前後を文字列で比較し、
// 一致しないものだけを差分に入れる。変更されたキーの一覧も返す。
func ComputeChanges(prior map[string]interface{}, updates map[string]interface{}) (map[string]FieldChange, []string) {
	changes := make(map[string]FieldChange)
	changed := make([]string, 0, len(updates))

	for key, to := range updates {
		from := prior[key]
		if fmt.Sprint(from) == fmt.Sprint(to) {
			continue
		}
		changes[key] = FieldChange{From: from, To: to}
		changed = append(changed, key)
	}

	//マップの順序に依存しないように揃える
	sort.Strings(changed)

	return changes, changed
}

func marshalOrEmpty(logger *logrus.Logger, v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Error("failed to marshal audit payload")
		return ""
	}
	return string(data)
}
