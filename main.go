package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1) Config & logging
	_ = godotenv.Load()
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 2) DB
	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		zap.L().Fatal("open db", zap.Error(err))
	}
	if err := AutoMigrate(db); err != nil {
		zap.L().Fatal("migrate", zap.Error(err))
	}

	// 3) Seed (if empty)
	if isEmpty, _ := IsQuestionTableEmpty(db); isEmpty {
		if _, err := os.Stat(cfg.QuestionsPath); err == nil {
			if err := SeedQuestionsFromJSON(db, cfg.QuestionsPath); err != nil {
				zap.L().Fatal("seed questions", zap.Error(err))
			}
			zap.L().Info("seeded questions", zap.String("path", cfg.QuestionsPath))
		} else {
			zap.L().Info("no question seed file; running with empty bank",
				zap.String("path", cfg.QuestionsPath))
		}
	}
	if isEmpty, _ := IsStoreItemTableEmpty(db); isEmpty {
		if _, err := os.Stat(cfg.StoreItemsPath); err == nil {
			if err := SeedStoreItemsFromJSON(db, cfg.StoreItemsPath); err != nil {
				zap.L().Fatal("seed store items", zap.Error(err))
			}
			zap.L().Info("seeded store items", zap.String("path", cfg.StoreItemsPath))
		}
	}

	repo := NewRepository(db)
	svc := NewPracticeService(repo, cfg.BasePoints)

	// 4) Router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS: deployed frontend origin plus any localhost port in dev.
	allowedOrigin := cfg.AllowedOrigin
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if origin == allowedOrigin {
				return true
			}
			return strings.HasPrefix(origin, "http://localhost:")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(EnsureUser(repo, cfg.SecureCookies))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	// 5) API routes
	api := r.Group("/api/v1")
	{
		// Practice
		api.GET("/questions/next", NextQuestion(svc))
		api.POST("/questions/submit", SubmitAnswer(svc))
		api.GET("/questions/recent", RecentAttempts(svc))

		// Rewards
		api.POST("/holdings/accrue", AccrueHoldings(svc))
		api.GET("/powerups/active", ActivePowerups(svc))

		// Shop
		api.GET("/shop/items", ListShopItems(svc))
		api.POST("/shop/purchase", PurchaseItem(svc))
		api.POST("/shop/activate", ActivatePowerup(svc))

		// Profile & stats
		api.GET("/me", GetMe(repo))
		api.PUT("/me", UpdateMe(db, repo))
		api.GET("/me/export-key", ExportKey())
		api.POST("/me/restore", RestoreAccount(repo, cfg.SecureCookies))
		api.GET("/stats", Stats(svc))
		api.GET("/leaderboard", Leaderboard(svc))
	}

	// 6) Server
	zap.L().Info("listening",
		zap.String("port", cfg.Port),
		zap.Bool("secure_cookies", cfg.SecureCookies),
		zap.String("allowed_origin", allowedOrigin))
	if err := r.Run(":" + cfg.Port); err != nil {
		zap.L().Fatal("run", zap.Error(err))
	}
}
