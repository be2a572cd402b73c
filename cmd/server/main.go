package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soaringjerry/psyscore/internal/api"
	"github.com/soaringjerry/psyscore/internal/config"
	"github.com/soaringjerry/psyscore/internal/middleware"
	"github.com/soaringjerry/psyscore/internal/services"
	"github.com/soaringjerry/psyscore/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
	cfg := config.Load()
	if cfg.UsesDevSecret() {
		log.Printf("[config] PSYSCORE_JWT_SECRET not set, using development secret")
	}
	if cfg.UsesDefaultResultsPassword() {
		log.Printf("[config] PSYSCORE_RESULTS_PASSWORD and PSYSCORE_RESULTS_PASSWORD_HASH not set, using default results password")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, closeCache := profileCache(ctx, cfg)
	defer closeCache()
	store, closeStore := artifactStore(ctx, cfg)
	defer closeStore()

	signer := middleware.NewSigner(cfg.JWTSecret)
	gate, err := services.NewGateService(cfg.ResultsPassword, cfg.ResultsPasswordHash, signer.SignToken, cfg.GateTokenTTL)
	if err != nil {
		log.Fatalf("[config] results gate: %v", err)
	}
	sessions := services.NewSessionService(nil, cache, cfg.SessionTTL)
	go sessions.RunSweeper(ctx, cfg.SweepInterval)

	var uploads *services.UploadService
	if store != nil {
		uploads = services.NewUploadService(store, cfg.UploadTimeout)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSOrigins),
		middleware.NoStore(), middleware.SecureHeaders(), middleware.Locale())
	api.NewRouter(api.Deps{
		Sessions:  sessions,
		Gate:      gate,
		Uploads:   uploads,
		Signer:    signer,
		Commit:    cfg.Commit,
		BuildTime: cfg.BuildTime,
	}).Register(r)
	if h := frontendHandler(cfg.StaticDir, cfg.DevFrontendURL); h != nil {
		r.NoRoute(gin.WrapH(h))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("psyscore server listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	if uploads != nil {
		uploads.Wait()
	}
}

// profileCache returns a Redis-backed cache when PSYSCORE_REDIS_ADDR is set
// and reachable, otherwise an in-process one.
func profileCache(ctx context.Context, cfg *config.Config) (services.ProfileCache, func()) {
	if cfg.RedisAddr == "" {
		return services.NewMemoryCache(), func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(cfg.RedisAddr, "redis://")})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		log.Printf("[cache] redis %s unreachable, using memory cache: %v", cfg.RedisAddr, err)
		_ = rdb.Close()
		return services.NewMemoryCache(), func() {}
	}
	log.Printf("[cache] connected to redis %s", cfg.RedisAddr)
	return storage.NewRedisProfileCache(rdb), func() { _ = rdb.Close() }
}

// artifactStore returns nil when MongoDB is not configured; uploads are then
// disabled.
func artifactStore(ctx context.Context, cfg *config.Config) (services.ArtifactStore, func()) {
	if cfg.MongoURI == "" {
		log.Printf("[upload] PSYSCORE_MONGO_URI not set, uploads disabled")
		return nil, func() {}
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Printf("[upload] mongo connect: %v", err)
		return nil, func() {}
	}
	disconnect := func() { _ = client.Disconnect(context.Background()) }
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		log.Printf("[upload] mongo ping: %v", err)
		disconnect()
		return nil, func() {}
	}
	log.Printf("[upload] connected to mongo, database %s", cfg.MongoDB)
	return storage.NewMongoArtifactStore(client.Database(cfg.MongoDB)), disconnect
}
