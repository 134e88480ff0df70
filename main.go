package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"marketingvoice/internal/api"
	"marketingvoice/internal/auth"
	"marketingvoice/internal/config"
	"marketingvoice/internal/logger"
	"marketingvoice/internal/redis"
	"marketingvoice/internal/service/ai"
	"marketingvoice/internal/service/chat"
	"marketingvoice/internal/service/image"
	"marketingvoice/internal/service/marketing"
	"marketingvoice/internal/service/speech"
	"marketingvoice/internal/service/store"
	"marketingvoice/internal/storage"
	"marketingvoice/internal/stream"
	"marketingvoice/internal/worker"
)

const defaultStreamTTL = 30 * time.Minute

func main() {
	cfgPath := os.Getenv("MARKETINGVOICE_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logger.GetLogger()
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log, err := logger.New(cfg.BasicConfig.LogLevel, cfg.BasicConfig.LogFormat)
	if err != nil {
		bootLog := logger.GetLogger()
		bootLog.Fatal().Err(err).Msg("init logger")
	}

	dbType := os.Getenv("MARKETINGVOICE_DB")
	if dbType == "" {
		dbType = "sqlite"
	}
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("db_type", dbType).Msg("open database")
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// Redis backs stream resumption. Without it chats still stream, they
	// just cannot be reconnected to.
	var streams chat.StreamStore
	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, stream resumption disabled")
	} else {
		defer rdb.Close()
		ttl := time.Duration(cfg.BasicConfig.StreamTTL) * time.Minute
		if ttl <= 0 {
			ttl = defaultStreamTTL
		}
		streamCtx, err := stream.NewContext(rdb, ttl, log)
		if err != nil {
			log.Fatal().Err(err).Msg("init stream store")
		}
		streams = streamCtx
	}

	dispatcher := worker.NewDispatcher(
		cfg.BasicConfig.MinWorkers,
		cfg.BasicConfig.MaxWorkers,
		cfg.BasicConfig.QueueSize,
		time.Duration(cfg.BasicConfig.WorkerIdleTimeout)*time.Minute,
		log,
	)

	storeSvc := store.NewService(db)
	authSvc := auth.NewService(db, 24*time.Hour)
	chatSvc := chat.NewService(storeSvc, streams, dispatcher, cfg, log)

	imageClient := image.NewClient(cfg.Image, log)
	imageSvc := image.NewService(imageClient, storeSvc, log)
	speechSvc := speech.NewService(cfg.Speech, log)

	textGen, err := ai.NewService(cfg, campaignModelAlias(cfg), &ai.ToolDeps{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init campaign model")
	}
	marketingSvc := marketing.NewService(textGen, imageClient, log)

	handlers := api.NewHandler(chatSvc, authSvc, marketingSvc, imageSvc, speechSvc, log)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	log.Info().Str("addr", addr).Msg("server starting")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// campaignModelAlias picks the chat model used for marketing copy.
func campaignModelAlias(cfg *config.Config) string {
	if _, ok := cfg.ChatModels["chat-model"]; ok {
		return "chat-model"
	}
	for alias := range cfg.ChatModels {
		return alias
	}
	return ""
}
