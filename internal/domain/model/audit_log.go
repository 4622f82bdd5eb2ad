package model

import "time"

// 在庫への変更操作の種類。
type AuditAction string

const (
	//アイテムを追加した操作。
	AuditActionAddItem AuditAction = "addItem"
	//数量を更新した操作。
	AuditActionUpdateQuantity AuditAction = "updateQuantity"
	//数量以外の項目を更新した操作。
	AuditActionUpdateItemSpecs AuditAction = "updateItemSpecs"
	//アイテムを削除した操作。
	AuditActionDeleteItem AuditAction = "deleteItem"
)

// actionが既知の値かどうか
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionAddItem, AuditActionUpdateQuantity, AuditActionUpdateItemSpecs, AuditActionDeleteItem:
		return true
	}
	return false
}

// 監査ログ。「誰が」「何を」「どの対象に」「どう変えたか」を残す。
// 追記専用で、作成後に更新・削除しない。
// 実行者の情報はスナップショットとして埋め込む（後でプロフィールが変わっても履歴は変わらない）。
type AuditLog struct {
	ID string `json:"id" gorm:"type:uuid;primaryKey"`

	//操作の種類（addItem / updateQuantity / updateItemSpecs / deleteItem）。
	Action AuditAction `json:"action" gorm:"type:varchar(50);not null;index"`

	//対象アイテム。削除済みでもログは残るのでソフト参照。
	ItemID   string `json:"itemId" gorm:"type:uuid;not null;index"`
	ItemName string `json:"itemName" gorm:"type:varchar(255);not null"`

	//実行者スナップショット。
	UserID    string `json:"userId" gorm:"type:uuid;not null;index"`
	UserEmail string `json:"userEmail" gorm:"not null"`
	UserName  string `json:"userName" gorm:"not null"`

	//updateQuantity用の前後値。
	PrevQty *float64 `json:"prevQty,omitempty"`
	NewQty  *float64 `json:"newQty,omitempty"`

	//updateItemSpecs用。生の更新セットと項目ごとの差分をJSON文字列で保存する。
	UpdatesJSON       string `json:"updatesJson,omitempty" gorm:"type:text"`
	ChangesJSON       string `json:"changesJson,omitempty" gorm:"type:text"`
	ChangedFieldsJSON string `json:"changedFieldsJson,omitempty" gorm:"type:text"`

	//addItem / deleteItem用のアイテムスナップショット。
	SnapshotJSON string `json:"snapshotJson,omitempty" gorm:"type:text"`

	//サーバー側で採番する時刻。クライアントの時計は使わない。
	CreatedAt time.Time `json:"timestamp" gorm:"not null;index"`
}
