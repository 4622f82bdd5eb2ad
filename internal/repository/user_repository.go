package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// ユーザープロフィールの保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID string) (*model.User, error)
	//メールからユーザーを1件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	//ユーザー情報の更新=>最後のログイン更新など
	Update(ctx context.Context, user *model.User) error
	//管理者画面用の一覧（email昇順）
	List(ctx context.Context) ([]model.User, error)
	//管理者によるrole・許可フラグの更新
	UpdateAccess(ctx context.Context, userID string, role model.Role, perms model.Permissions) error
	//トークンのバージョンを＋１（強制ログアウト）
	IncrementTokenVersion(ctx context.Context, userID string) (int, error)
}
