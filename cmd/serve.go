package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"restaurant-menu/config"
	"restaurant-menu/handlers"
	"restaurant-menu/logger"
	"restaurant-menu/middleware"
	"restaurant-menu/routes"
	"restaurant-menu/session"
	"restaurant-menu/store"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("http-addr", v.GetString("http.addr"), "address to listen on")
	cmd.Flags().String("session-backend", v.GetString("session.backend"), "where sessions are kept (db or redis)")
	_ = v.BindPFlag("http.addr", cmd.Flags().Lookup("http-addr"))
	_ = v.BindPFlag("session.backend", cmd.Flags().Lookup("session-backend"))
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	gin.SetMode(cfg.GinMode)

	db, err := config.InitDB(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	st := store.New(db)

	sessions, closeSessions, err := newSessionStore(ctx, cfg, st)
	if err != nil {
		return err
	}
	defer closeSessions()
	manager := session.NewManager(sessions, cfg.SessionSecret, cfg.SessionTTL, log.With(zap.String("component", "session")))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	h := handlers.New(st, manager, metrics, handlers.Options{
		CookieName:     cfg.SessionCookie,
		SecureCookie:   cfg.SecureCookie,
		BcryptCost:     cfg.BcryptCost,
		ExemptOwnEmail: cfg.ExemptOwnEmail,
	})
	r, err := routes.NewRouter(routes.Options{
		Handler:        h,
		Sessions:       manager,
		CookieName:     cfg.SessionCookie,
		SecureCookie:   cfg.SecureCookie,
		Limiter:        middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst),
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("Server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("session_backend", cfg.SessionBackend))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}

// newSessionStore returns the configured session backend and a function
// releasing it.
func newSessionStore(ctx context.Context, cfg config.Config, st *store.Store) (session.Store, func(), error) {
	if cfg.SessionBackend != "redis" {
		return session.NewGormStore(st.DB()), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, errors.Wrapf(err, "failed to reach redis at %s", cfg.RedisAddr)
	}
	return session.NewRedisStore(client), func() { client.Close() }, nil
}
