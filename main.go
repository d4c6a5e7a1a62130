package main

import (
	"log"
	"os"
	"time"

	"salachat/internal/api"
	"salachat/internal/auth"
	"salachat/internal/config"
	"salachat/internal/hub"
	"salachat/internal/media"
	"salachat/internal/redis"
	"salachat/internal/service/account"
	"salachat/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("SALACHAT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("SALACHAT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create necessary tables: users, user_tokens
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Printf("redis not configured, token cache disabled")
	}

	tokenTTL := time.Duration(cfg.BasicConfig.TokenTTLHours) * time.Hour
	accounts := account.NewService(db)
	authService := auth.NewService(db, rdb, tokenTTL)

	uploadDir := cfg.BasicConfig.UploadDir
	if uploadDir == "" {
		uploadDir = "./data/uploads"
	}
	mediaStore, err := media.NewStore(uploadDir)
	if err != nil {
		log.Fatalf("init media store: %v", err)
	}

	chatHub := hub.NewHub(accounts, cfg.BasicConfig.DefaultRoom)
	go chatHub.Run()
	defer func() {
		if err := chatHub.Shutdown(5 * time.Second); err != nil {
			log.Printf("hub shutdown: %v", err)
		}
	}()

	handlers := api.NewHandler(accounts, authService, mediaStore, chatHub)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
