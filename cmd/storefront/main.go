package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storefront/internal/apiclient"
	"storefront/internal/config"
	"storefront/internal/debounce"
	"storefront/internal/server"
	"storefront/internal/session"
	"storefront/internal/storefront"
	"storefront/internal/util"
	"storefront/internal/web"
)

const (
	defaultScreenIdleTimeout = 30 * time.Minute
	shutdownTimeout          = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	apiTimeout, _ := config.ParseDuration(cfg.APITimeout, 0)
	sessionTTL, _ := config.ParseDuration(cfg.SessionTTL, 24*time.Hour)
	searchDebounce, _ := config.ParseDuration(cfg.SearchDebounce, debounce.DefaultWait)
	screenIdle, _ := config.ParseDuration(cfg.ScreenIdleTimeout, defaultScreenIdleTimeout)

	logger := util.InitLogger("storefront", cfg.LogLevel)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("invalid trustedProxyCidrs: %v", err)
	}

	store, closeStore, err := newSessionStore(cfg, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}
	defer closeStore()
	codec, err := session.NewCookieCodec(cfg.SessionSecret, sessionTTL)
	if err != nil {
		log.Fatalf("failed to init session cookie: %v", err)
	}
	sessions, err := session.NewAccessor(session.AccessorConfig{
		Store:        store,
		Codec:        codec,
		CookieName:   cfg.CookieName,
		CookieSecure: cfg.CookieSecure,
	})
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	api := apiclient.NewClient(cfg.APIBaseURL, apiTimeout)
	screens := storefront.NewRegistry(api, storefront.Options{DebounceWait: searchDebounce})
	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("failed to parse templates: %v", err)
	}

	httpServer, err := server.New(server.Config{
		Auth:                     api,
		Screens:                  screens,
		Sessions:                 sessions,
		Renderer:                 renderer,
		TrustedProxies:           trusted,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SearchRateLimitPerMinute: cfg.SearchRateLimitPerMinute,
		AuthRateLimitPerMinute:   cfg.AuthRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}
	defer httpServer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepScreens(ctx, screens, screenIdle)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("server listening", "addr", addr, "api", cfg.APIBaseURL, "session_backend", cfg.SessionBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	slog.Info("server stopped")
}

func newSessionStore(cfg config.FileConfig, ttl time.Duration) (session.Store, func(), error) {
	if cfg.SessionBackend == config.SessionBackendMemory {
		slog.Warn("using in-memory session store; sessions are lost on restart")
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, ttl)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func sweepScreens(ctx context.Context, screens *storefront.Registry, maxIdle time.Duration) {
	if maxIdle <= 0 {
		maxIdle = defaultScreenIdleTimeout
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := screens.Sweep(maxIdle); n > 0 {
				slog.Debug("dropped idle screens", "count", n)
			}
		}
	}
}
