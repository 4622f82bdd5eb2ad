package model

import "time"

// 作成・更新時刻をまとめた埋め込み用の型
type Timestamp struct {
	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}
