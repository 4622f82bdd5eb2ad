package main

import (
	"context"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	"app/internal/infra/events"
	infraRepo "app/internal/infra/repository"
	"app/internal/server"
	"app/internal/sse"
	"app/internal/usecase"
	auth "app/internal/usecase/auth_usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(user *model.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"tv":    user.TokenVersion,
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	//.envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		logger.WithError(err).Fatal("failed to connect database")
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Item{},
		&model.AuditLog{},
		&model.RefreshToken{},
	); err != nil {
		logger.WithError(err).Fatal("failed to migrate database")
	}

	//変更イベントのpub/sub
	bus, err := events.NewRedisBus(cfg.RedisAddr, cfg.RedisPassword, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect redis")
	}
	defer bus.Close()

	//SSEのfan-out
	ctx := context.Background()
	hub := sse.NewHub(logger)
	changes, unsubscribe := bus.Subscribe(ctx)
	defer unsubscribe()
	go hub.Run(ctx, changes)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	itemRepo := infraRepo.NewItemGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//refresh TTL
	refreshTTL := 14 * 24 * time.Hour

	//Usecase生成
	recorder := usecase.NewAuditRecorder(auditRepo, idGen, clock, logger)
	inventoryUC := usecase.NewInventoryUsecase(itemRepo, recorder, bus, idGen, clock, logger)
	permissionUC := usecase.NewPermissionUsecase(userRepo, clock, logger)
	reportUC := usecase.NewReportUsecase(itemRepo)
	userMgmtUC := usecase.NewUserManagementUsecase(userRepo, rtRepo, bus, clock, logger)
	registerUC := auth.NewRegisterUserUsecase(userRepo, hasher, idGen, clock)
	loginUC := auth.NewLoginUsecase(userRepo, rtRepo, verifier, issuer, idGen, clock, refreshTTL)
	refreshUC := auth.NewRefreshUsecase(userRepo, rtRepo, issuer, idGen, clock, refreshTTL)
	logoutUC := auth.NewLogoutUsecase(rtRepo)

	//Handler生成
	authH := handler.NewAuthHandler(registerUC, loginUC, refreshUC, logoutUC, refreshTTL)
	itemH := handler.NewItemHandler(inventoryUC)
	auditH := handler.NewAuditHandler(recorder)
	adminH := handler.NewAdminUserHandler(userMgmtUC)
	reportH := handler.NewReportHandler(reportUC)
	meH := handler.NewMeHandler(permissionUC)
	eventsH := handler.NewEventsHandler(hub)

	//Server起動
	e := server.New(cfg, logger)

	authH.RegisterRoutes(e, cfg)
	itemH.RegisterRoutes(e, cfg, userRepo)
	auditH.RegisterRoutes(e, cfg, userRepo)
	adminH.RegisterRoutes(e, cfg, userRepo)
	reportH.RegisterRoutes(e, cfg, userRepo)
	meH.RegisterRoutes(e, cfg)
	eventsH.RegisterRoutes(e, cfg)

	addr := ":" + cfg.Port
	logger.WithField("addr", addr).Info("starting server")

	if err := server.Start(e, addr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
