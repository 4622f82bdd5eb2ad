package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/sirupsen/logrus"
)

// 強制ログアウトの結果
type ForceLogoutOutput struct {
	UserID          string `json:"user_id"`
	NewTokenVersion int    `json:"new_token_version"`
}

// UserManagementUsecase は管理者によるユーザーのrole・許可フラグの管理。
type UserManagementUsecase struct {
	userRepo  repo.UserRepository
	rtRepo    repo.RefreshTokenRepository
	publisher ChangePublisher
	clock     Clock
	logger    *logrus.Logger
}

// DI
func NewUserManagementUsecase(
	userRepo repo.UserRepository,
	rtRepo repo.RefreshTokenRepository,
	publisher ChangePublisher,
	clock Clock,
	logger *logrus.Logger,
) *UserManagementUsecase {
	return &UserManagementUsecase{
		userRepo:  userRepo,
		rtRepo:    rtRepo,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
	}
}

// email昇順で全ユーザーを返す
func (u *UserManagementUsecase) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := u.userRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return users, nil
}

// roleと許可フラグをまとめて更新する。管理者ルートの後ろでだけ呼ばれる。
func (u *UserManagementUsecase) UpdateAccess(ctx context.Context, targetUserID string, role model.Role, perms model.Permissions) error {
	if strings.TrimSpace(targetUserID) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if !role.Valid() {
		return NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	err := u.userRepo.UpdateAccess(ctx, targetUserID, role, perms)
	if errors.Is(err, repo.ErrUserNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//権限が変わったことを購読中のクライアントへ知らせる
	ev := ChangeEvent{
		Scope:  "users",
		Action: "updateAccess",
		ID:     targetUserID,
		At:     u.clock.Now(),
	}
	if err := u.publisher.PublishChange(ctx, ev); err != nil {
		u.logger.WithField("user_id", targetUserID).
			WithError(err).Warn("failed to publish access change event")
	}

	return nil
}

// token_versionを上げて既存のアクセストークンを全部無効にする。
func (u *UserManagementUsecase) ForceLogout(ctx context.Context, targetUserID string) (ForceLogoutOutput, error) {
	if strings.TrimSpace(targetUserID) == "" {
		return ForceLogoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	newVersion, err := u.userRepo.IncrementTokenVersion(ctx, targetUserID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return ForceLogoutOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ForceLogoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//リフレッシュトークンも全部消す
	if err := u.rtRepo.DeleteAllByUserID(ctx, targetUserID); err != nil {
		return ForceLogoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ForceLogoutOutput{
		UserID:          targetUserID,
		NewTokenVersion: newVersion,
	}, nil
}
