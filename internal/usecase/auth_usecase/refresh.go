package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/usecase"
)

// refresh tokenが無効（不明・失効・期限切れ・再利用）
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// handlerからusecaseに渡す入力
type RefreshInput struct {
	PlainRefreshToken string
	UserAgent         string
}

// handlerがJSONにして返す
type RefreshOutput struct {
	Token JwtAccessToken `json:"token"`
}

// handlerがCookieに詰めるために必要な値
type RefreshSideEffect struct {
	PlainRefreshToken string
}

// RefreshUsecaseはアクセストークンの再発行。
// refresh tokenは使い捨てで、毎回新しいものに入れ替える（rotation）。
// 使用済みトークンの再利用は盗難の兆候とみなし、そのユーザーの
// refresh tokenを全部消す。
type RefreshUsecase struct {
	userRepo   repository.UserRepository
	rtRepo     repository.RefreshTokenRepository
	issuer     AccessTokenIssuer
	idGen      usecase.IDGenerator
	clock      usecase.Clock
	refreshTTL time.Duration
}

func NewRefreshUsecase(
	userRepo repository.UserRepository,
	rtRepo repository.RefreshTokenRepository,
	issuer AccessTokenIssuer,
	idGen usecase.IDGenerator,
	clock usecase.Clock,
	refreshTTL time.Duration,
) *RefreshUsecase {
	return &RefreshUsecase{
		userRepo:   userRepo,
		rtRepo:     rtRepo,
		issuer:     issuer,
		idGen:      idGen,
		clock:      clock,
		refreshTTL: refreshTTL,
	}
}

// 再発行処理を実行する
func (u *RefreshUsecase) Execute(ctx context.Context, in RefreshInput) (RefreshOutput, RefreshSideEffect, error) {
	var out RefreshOutput
	var side RefreshSideEffect

	if in.PlainRefreshToken == "" {
		return out, side, ErrInvalidRefreshToken
	}

	//保存はハッシュなので照合もハッシュで
	hash := sha256.Sum256([]byte(in.PlainRefreshToken))
	tokenHash := hex.EncodeToString(hash[:])

	rt, err := u.rtRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}

	now := u.clock.Now()

	//失効済み
	if rt.RevokedAt != nil {
		return out, side, ErrInvalidRefreshToken
	}

	//使用済みの再利用＝replay。ユーザーの全refresh tokenを無効化する。
	if rt.UsedAt != nil {
		if delErr := u.rtRepo.DeleteAllByUserID(ctx, rt.UserID); delErr != nil {
			return out, side, delErr
		}
		return out, side, ErrInvalidRefreshToken
	}

	//期限切れ
	if now.After(rt.ExpiresAt) {
		return out, side, ErrInvalidRefreshToken
	}

	//ユーザーの現在の状態を確認
	user, err := u.userRepo.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}
	if !user.IsActive {
		return out, side, ErrUserInactive
	}

	//使い捨てにする。0件更新は並行リクエストに先を越されたreplay扱い。
	if err := u.rtRepo.MarkUsed(ctx, rt.ID); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			if delErr := u.rtRepo.DeleteAllByUserID(ctx, rt.UserID); delErr != nil {
				return out, side, delErr
			}
			return out, side, ErrInvalidRefreshToken
		}
		return out, side, err
	}

	//新しいAccessToken
	accessToken, accessExp, err := u.issuer.Issue(user, now)
	if err != nil {
		return out, side, err
	}

	//新しいRefreshToken（rotation）
	plainRefresh, err := generateSecureToken(32)
	if err != nil {
		return out, side, err
	}
	newHash := sha256.Sum256([]byte(plainRefresh))

	next := &model.RefreshToken{
		ID:        u.idGen.NewID(),
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(newHash[:]),
		UserAgent: in.UserAgent,
		ExpiresAt: now.Add(u.refreshTTL),
		UsedAt:    nil,
		RevokedAt: nil,
		Timestamp: model.Timestamp{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := u.rtRepo.Create(ctx, next); err != nil {
		return out, side, err
	}

	out.Token = JwtAccessToken{
		AccessToken:  accessToken,
		ExpiresIn:    int(accessExp.Sub(now).Seconds()),
		TokenVersion: user.TokenVersion,
	}
	side.PlainRefreshToken = plainRefresh

	return out, side, nil
}
