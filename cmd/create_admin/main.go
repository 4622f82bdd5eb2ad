package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"app/internal/domain/model"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/repository"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// 管理者を作る運用ツール。
// 最初の管理者はAPI経由では作れないのでこれで作る。
// 既存ユーザーを指定した場合は管理者へ昇格させる。
func main() {
	logger := logrus.New()

	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password (new user only)")
	flag.Parse()

	if *email == "" {
		logger.Fatal("-email is required")
	}

	_ = godotenv.Load()

	gormDB, err := db.Connect()
	if err != nil {
		logger.WithError(err).Fatal("failed to connect database")
	}
	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	userRepo := infraRepo.NewUserGormRepository(gormDB)
	ctx := context.Background()

	//全許可フラグON
	allPerms := model.Permissions{
		AddItem:     true,
		EditSpecs:   true,
		UpdateQty:   true,
		DeleteItem:  true,
		ViewReports: true,
	}

	user, err := userRepo.FindByEmail(ctx, *email)
	if err == nil {
		//既存ユーザーを昇格
		if err := userRepo.UpdateAccess(ctx, user.ID, model.RoleAdmin, allPerms); err != nil {
			logger.WithError(err).Fatal("failed to promote user")
		}
		logger.WithField("email", *email).Info("promoted existing user to admin")
		return
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		logger.WithError(err).Fatal("failed to look up user")
	}

	//新規作成
	if *password == "" {
		logger.Fatal("-password is required for a new user")
	}
	if len(*password) < 12 {
		logger.Fatal("password must be at least 12 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		logger.WithError(err).Fatal("failed to hash password")
	}

	now := time.Now()
	admin := &model.User{
		ID:           uuid.NewString(),
		Email:        *email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Permissions:  allPerms,
		TokenVersion: 0,
		IsActive:     true,
		Timestamp: model.Timestamp{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		logger.WithError(err).Fatal("failed to create admin")
	}

	logger.WithField("email", *email).Info("created admin user")
}
