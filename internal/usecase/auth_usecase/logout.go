package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"app/internal/repository"
)

// LogoutUsecaseは提示されたrefresh tokenを失効させる。
// トークンが見つからなくてもエラーにしない（ログアウトは冪等）。
type LogoutUsecase struct {
	rtRepo repository.RefreshTokenRepository
}

func NewLogoutUsecase(rtRepo repository.RefreshTokenRepository) *LogoutUsecase {
	return &LogoutUsecase{rtRepo: rtRepo}
}

// ログアウト処理を実行する
func (u *LogoutUsecase) Execute(ctx context.Context, plainRefreshToken string) error {
	if plainRefreshToken == "" {
		return nil
	}

	hash := sha256.Sum256([]byte(plainRefreshToken))
	tokenHash := hex.EncodeToString(hash[:])

	rt, err := u.rtRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}

	if err := u.rtRepo.Revoke(ctx, rt.ID); err != nil {
		//すでに失効済みなら成功扱い
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return nil
		}
		return err
	}

	return nil
}
