package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/playforge/tabletop-server/internal/anticheat"
	appcfg "github.com/playforge/tabletop-server/internal/config"
	"github.com/playforge/tabletop-server/internal/httpapi"
	"github.com/playforge/tabletop-server/internal/mastery"
	"github.com/playforge/tabletop-server/internal/matchmaking"
	"github.com/playforge/tabletop-server/internal/obslog"
	"github.com/playforge/tabletop-server/internal/ratelimit"
	"github.com/playforge/tabletop-server/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis_url_invalid", zap.Error(err))
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatal("redis_connect_error", zap.Error(err))
	}
	cancel()

	// persistence is optional; without DATABASE_URL everything lives in
	// memory and Redis, which is enough for local development
	var (
		db        *sql.DB
		cheatRepo = anticheat.NewMemoryRepository()
		rankStore = mastery.NewMemoryStore()
		archive   session.Archive
	)
	if cfg.DatabaseURL != "" {
		repo, err := session.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("database_connect_error", zap.Error(err))
		}
		archive = repo
		db = repo.DB()
		cheatRepo = anticheat.NewPostgresRepository(db)
		rankStore = mastery.NewPostgresStore(db)
	} else {
		logger.Warn("database_disabled", zap.String("reason", "DATABASE_URL not set"))
	}

	cheat := anticheat.NewService(cheatRepo)

	policies := ratelimit.DefaultPolicies()
	policies[ratelimit.ActionGameStart] = ratelimit.Policy{MaxCount: cfg.RateGameStartPerHour, Window: time.Hour}
	policies[ratelimit.ActionMatchmakingJoin] = ratelimit.Policy{MaxCount: cfg.RateMatchJoinPerHour, Window: time.Hour}
	policies[ratelimit.ActionAPICall] = ratelimit.Policy{MaxCount: cfg.RateAPICallPerHour, Window: time.Hour}
	policies[ratelimit.ActionProfileUpdate] = ratelimit.Policy{MaxCount: cfg.RateProfileEditPerHour, Window: time.Hour}
	limiter := ratelimit.NewLimiter(rdb, policies)

	sessions, err := session.NewManager(rdb, limiter, cheat, rankStore, cfg.AntiCheatSecret)
	if err != nil {
		logger.Fatal("session_manager_error", zap.Error(err))
	}
	sessions.WithTTL(time.Duration(cfg.SessionTTLSec) * time.Second)
	if archive != nil {
		sessions.AttachArchive(archive)
	}

	queue, err := matchmaking.NewQueue(rdb, limiter, cheat, rankStore)
	if err != nil {
		logger.Fatal("matchmaking_error", zap.Error(err))
	}

	api := httpapi.NewServer(sessions, queue, rankStore).WithDefaultDifficulty(cfg.DefaultDifficulty)
	httpSrv := &fasthttp.Server{
		Handler:      api.Handler,
		Name:         "tabletop-server",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpSrv.ListenAndServe(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("server_shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server_error", zap.Error(err))
	}

	_ = httpSrv.Shutdown()
	_ = rdb.Close()
	if db != nil {
		_ = db.Close()
	}
	_ = logger.Sync()
}
