package auth_test

import (
	"context"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	auth "app/internal/usecase/auth_usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newRefreshUC(userRepo *AuthUserRepoMock, rtRepo *AuthRTRepoMock) *auth.RefreshUsecase {
	return auth.NewRefreshUsecase(
		userRepo, rtRepo,
		&stubIssuer{},
		&authFixedIDGen{id: "rt-2"}, &authFixedClock{t: authNow},
		14*24*time.Hour,
	)
}

func storedRefreshToken() *model.RefreshToken {
	return &model.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		TokenHash: "stored-hash",
		ExpiresAt: authNow.Add(24 * time.Hour),
	}
}

// =====================
// Refresh
// =====================

func TestRefreshUsecase_RotatesToken(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(userRepo, rtRepo)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(storedRefreshToken(), nil)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(activeUser(), nil)
	rtRepo.On("MarkUsed", mock.Anything, "rt-1").Return(nil)

	var created *model.RefreshToken
	rtRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*model.RefreshToken)
	}).Return(nil)

	out, side, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "old-plain"})
	assert.NoError(t, err)

	assert.Equal(t, "signed-token", out.Token.AccessToken)
	assert.Equal(t, 2, out.Token.TokenVersion)
	assert.NotEmpty(t, side.PlainRefreshToken)
	assert.NotEqual(t, "old-plain", side.PlainRefreshToken)

	//古いトークンは使い捨てにされ、新しいトークンはハッシュで保存される
	rtRepo.AssertCalled(t, "MarkUsed", mock.Anything, "rt-1")
	if assert.NotNil(t, created) {
		assert.Equal(t, "rt-2", created.ID)
		assert.Equal(t, "user-1", created.UserID)
		assert.NotEmpty(t, created.TokenHash)
		assert.NotEqual(t, side.PlainRefreshToken, created.TokenHash)
	}
}

func TestRefreshUsecase_UnknownTokenRejected(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(new(AuthUserRepoMock), rtRepo)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(nil, repository.ErrRefreshTokenNotFound)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "forged"})
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshUsecase_EmptyTokenRejected(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(new(AuthUserRepoMock), rtRepo)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{})
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	rtRepo.AssertNotCalled(t, "FindByTokenHash", mock.Anything, mock.Anything)
}

func TestRefreshUsecase_ReplayPurgesAllUserTokens(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(new(AuthUserRepoMock), rtRepo)

	used := storedRefreshToken()
	usedAt := authNow.Add(-time.Hour)
	used.UsedAt = &usedAt

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(used, nil)
	rtRepo.On("DeleteAllByUserID", mock.Anything, "user-1").Return(nil)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "replayed"})
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

	//使用済みの再利用は盗難扱いで全トークンを消す
	rtRepo.AssertCalled(t, "DeleteAllByUserID", mock.Anything, "user-1")
}

func TestRefreshUsecase_RevokedTokenRejected(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(new(AuthUserRepoMock), rtRepo)

	revoked := storedRefreshToken()
	revokedAt := authNow.Add(-time.Hour)
	revoked.RevokedAt = &revokedAt

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(revoked, nil)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "revoked"})
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	rtRepo.AssertNotCalled(t, "DeleteAllByUserID", mock.Anything, mock.Anything)
}

func TestRefreshUsecase_ExpiredTokenRejected(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(new(AuthUserRepoMock), rtRepo)

	expired := storedRefreshToken()
	expired.ExpiresAt = authNow.Add(-time.Minute)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(expired, nil)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "stale"})
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshUsecase_InactiveUserRejected(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(userRepo, rtRepo)

	user := activeUser()
	user.IsActive = false

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(storedRefreshToken(), nil)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(user, nil)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "x"})
	assert.ErrorIs(t, err, auth.ErrUserInactive)
}

func TestRefreshUsecase_MarkUsedLostRaceTreatedAsReplay(t *testing.T) {
	userRepo := new(AuthUserRepoMock)
	rtRepo := new(AuthRTRepoMock)
	uc := newRefreshUC(userRepo, rtRepo)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(storedRefreshToken(), nil)
	userRepo.On("FindByID", mock.Anything, "user-1").Return(activeUser(), nil)
	//並行リクエストが先に使い捨て済み
	rtRepo.On("MarkUsed", mock.Anything, "rt-1").Return(repository.ErrRefreshTokenNotFound)
	rtRepo.On("DeleteAllByUserID", mock.Anything, "user-1").Return(nil)

	_, _, err := uc.Execute(context.Background(), auth.RefreshInput{PlainRefreshToken: "x"})
	assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	rtRepo.AssertCalled(t, "DeleteAllByUserID", mock.Anything, "user-1")
}

// =====================
// Logout
// =====================

func TestLogoutUsecase_RevokesPresentedToken(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := auth.NewLogoutUsecase(rtRepo)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(storedRefreshToken(), nil)
	rtRepo.On("Revoke", mock.Anything, "rt-1").Return(nil)

	err := uc.Execute(context.Background(), "plain-refresh")
	assert.NoError(t, err)
	rtRepo.AssertCalled(t, "Revoke", mock.Anything, "rt-1")
}

func TestLogoutUsecase_UnknownTokenIsNoop(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := auth.NewLogoutUsecase(rtRepo)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(nil, repository.ErrRefreshTokenNotFound)

	err := uc.Execute(context.Background(), "already-gone")
	assert.NoError(t, err)
	rtRepo.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
}

func TestLogoutUsecase_EmptyTokenIsNoop(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := auth.NewLogoutUsecase(rtRepo)

	err := uc.Execute(context.Background(), "")
	assert.NoError(t, err)
	rtRepo.AssertNotCalled(t, "FindByTokenHash", mock.Anything, mock.Anything)
}

func TestLogoutUsecase_AlreadyRevokedIsNoop(t *testing.T) {
	rtRepo := new(AuthRTRepoMock)
	uc := auth.NewLogoutUsecase(rtRepo)

	rtRepo.On("FindByTokenHash", mock.Anything, mock.Anything).Return(storedRefreshToken(), nil)
	rtRepo.On("Revoke", mock.Anything, "rt-1").Return(repository.ErrRefreshTokenNotFound)

	err := uc.Execute(context.Background(), "plain-refresh")
	assert.NoError(t, err)
}
