package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// roleが既知の値かどうか
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// 操作ごとの許可フラグ。ユーザーに1セット持たせる。
type Permissions struct {
	AddItem     bool `json:"addItem" gorm:"column:perm_add_item;not null;default:false"`
	EditSpecs   bool `json:"editSpecs" gorm:"column:perm_edit_specs;not null;default:false"`
	UpdateQty   bool `json:"updateQty" gorm:"column:perm_update_qty;not null;default:false"`
	DeleteItem  bool `json:"deleteItem" gorm:"column:perm_delete_item;not null;default:false"`
	ViewReports bool `json:"viewReports" gorm:"column:perm_view_reports;not null;default:false"`
}

// 初回作成時とフォールバックで共通に使うデフォルト。
// viewReports以外は全部false（変更系は管理者が後から付与する）。
func DefaultPermissions() Permissions {
	return Permissions{ViewReports: true}
}

type User struct {
	ID           string      `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string      `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string      `json:"-" gorm:"column:password_hash;not null"`
	Role         Role        `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	Permissions  Permissions `json:"permissions" gorm:"embedded"`
	TokenVersion int         `json:"tokenVersion" gorm:"not null;default:0"`
	IsActive     bool        `json:"isActive" gorm:"not null;default:true"`
	LastLoginAt  *time.Time  `json:"lastLoginAt"`
	Timestamp    Timestamp   `json:"timestamps" gorm:"embedded"`
}
