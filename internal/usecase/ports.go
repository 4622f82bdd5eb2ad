package usecase

import (
	"context"
	"time"

	"app/internal/domain/model"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 変更操作の実行者。ハンドラが認証済みユーザーから組み立てて明示的に渡す。
// グローバルな「現在のユーザー」からは読まない。
type Actor struct {
	UserID      string
	UserEmail   string
	UserName    string
	Permissions model.Permissions
}

// 変更通知イベント。購読中のクライアントへ配信される。
type ChangeEvent struct {
	//items / users
	Scope string `json:"scope"`

	//操作の種類（addItem / updateQuantity / updateItemSpecs / deleteItem / updateAccess）
	Action string `json:"action"`

	ID   string    `json:"id"`
	Name string    `json:"name,omitempty"`
	At   time.Time `json:"at"`
}

// 変更イベントを配信する約束。配信失敗で変更操作は失敗にしない。
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev ChangeEvent) error
}
