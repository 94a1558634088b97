package main

import (
	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/notification"
	"app/internal/payment"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	//.envはローカル開発用（なくても環境変数があれば動く）
	_ = godotenv.Load("../.env")

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	if cfg.GoEnv == "dev" {
		log.SetLevel(logrus.DebugLevel)
	}

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Address{},
		&model.Product{},
		&model.Inventory{},
		&model.InventoryAdjustment{},
		&model.Coupon{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
	); err != nil {
		log.WithError(err).Fatal("migrate failed")
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	couponRepo := infraRepo.NewCouponGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//外部サービス
	gateway := payment.NewPayPalGateway(cfg.PayPalAPIBase, cfg.PayPalClientID, cfg.PayPalSecret)
	notifier := notification.NewLogNotifier(log)

	//Usecase生成
	authValidator := validator.NewAuthValidator(userRepo)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, authValidator)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	productUC := usecase.NewProductUsecase(productRepo, auditRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo, inventoryRepo, couponRepo)
	couponUC := usecase.NewCouponUsecase(couponRepo, cartRepo, cartItemRepo, productRepo, auditRepo)
	inventoryUC := usecase.NewInventoryUsecase(inventoryRepo, productRepo, auditRepo)

	pricing := usecase.PricingConfig{
		TaxRateBP:   cfg.TaxRateBP,
		ShippingFee: cfg.ShippingFee,
	}
	orderUC := usecase.NewOrderUsecase(
		txManager,
		orderRepo,
		orderItemRepo,
		addressRepo,
		auditRepo,
		gateway,
		notifier,
		log,
		pricing,
		cfg.Currency,
		cfg.FEURL+"/checkout/complete",
		cfg.FEURL+"/checkout/cancel",
	)

	//Handler生成
	h := server.Handlers{
		Auth:      handler.NewAuthHandler(cfg, userRepo, authUC),
		Address:   handler.NewAddressHandler(addressUC),
		AdminUser: handler.NewAdminUserHandler(cfg, userRepo, authUC),
		Product:   handler.NewProductHandler(productUC),
		Cart:      handler.NewCartHandler(cartUC, couponUC),
		Order:     handler.NewOrderHandler(orderUC),
		Coupon:    handler.NewCouponHandler(couponUC),
		Inventory: handler.NewInventoryHandler(inventoryUC),
	}

	e := server.New(cfg, userRepo, h, log)

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("server start")
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
