package usecase

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/sirupsen/logrus"
)

// 認証済みセッションの本人情報。認証ミドルウェアのclaimsから組み立てる。
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// 解決結果。プロフィールが読めないときも必ずこの形で返す。
// 呼び出し側のnilチェックを不要にする。
type PermissionState struct {
	Role        model.Role        `json:"role"`
	Permissions model.Permissions `json:"permissions"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
}

// セッションなし・読み取り失敗時の安全側の状態
func deniedState(errMsg string) PermissionState {
	return PermissionState{
		Role:        model.RoleUser,
		Permissions: model.DefaultPermissions(),
		Loading:     false,
		Error:       errMsg,
	}
}

// PermissionUsecase はセッションの本人情報からroleと許可フラグを解決する。
type PermissionUsecase struct {
	userRepo repo.UserRepository
	clock    Clock
	logger   *logrus.Logger
}

// DI
func NewPermissionUsecase(userRepo repo.UserRepository, clock Clock, logger *logrus.Logger) *PermissionUsecase {
	return &PermissionUsecase{
		userRepo: userRepo,
		clock:    clock,
		logger:   logger,
	}
}

// Resolve は現在のrole・許可フラグを返す。エラーでも必ず値を返す。
//   - セッションなし → デフォルト（拒否側）をそのまま返す
//   - プロフィールなし → デフォルトのプロフィールを作ってから返す
//   - 読み取り失敗 → デフォルトに落としてerrorに理由を入れる
func (u *PermissionUsecase) Resolve(ctx context.Context, identity *Identity) PermissionState {
	if identity == nil || identity.ID == "" {
		return deniedState("")
	}

	user, err := u.userRepo.FindByID(ctx, identity.ID)

	if errors.Is(err, repo.ErrUserNotFound) {
		user, err = u.bootstrapProfile(ctx, *identity)
	}

	if err != nil {
		u.logger.WithField("user_id", identity.ID).
			WithError(err).Warn("permission resolution failed, falling back to defaults")
		return deniedState(err.Error())
	}

	return PermissionState{
		Role:        user.Role,
		Permissions: user.Permissions,
		Loading:     false,
	}
}

// 初回ログインでプロフィールが無いときに1回だけ作る。
// 同時ログインで先に作られていたら作成は諦めて読み直す。
func (u *PermissionUsecase) bootstrapProfile(ctx context.Context, identity Identity) (*model.User, error) {
	now := u.clock.Now()
	user := &model.User{
		ID:          identity.ID,
		Email:       identity.Email,
		Role:        model.RoleUser,
		Permissions: model.DefaultPermissions(),
		IsActive:    true,
		Timestamp: model.Timestamp{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		//別のセッションが先に作った可能性があるので読み直す
		existing, findErr := u.userRepo.FindByID(ctx, identity.ID)
		if findErr != nil {
			return nil, err
		}
		return existing, nil
	}

	return user, nil
}
