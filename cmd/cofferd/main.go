// The cofferd command implements the Coffer secrets server
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/coffersec/coffer/internal/cofferd/auth"
	"github.com/coffersec/coffer/internal/cofferd/auth/device"
	authhttp "github.com/coffersec/coffer/internal/cofferd/auth/http"
	"github.com/coffersec/coffer/internal/cofferd/auth/identity"
	identitypg "github.com/coffersec/coffer/internal/cofferd/auth/identity/postgres"
	"github.com/coffersec/coffer/internal/cofferd/auth/token"
	tokenpg "github.com/coffersec/coffer/internal/cofferd/auth/token/postgres"
	"github.com/coffersec/coffer/internal/cofferd/auth/upstream"
	"github.com/coffersec/coffer/internal/cofferd/config"
	"github.com/coffersec/coffer/internal/cofferd/database"
	"github.com/coffersec/coffer/internal/cofferd/migrations"
	"github.com/coffersec/coffer/internal/cofferd/ratelimit"
	ratelimitmem "github.com/coffersec/coffer/internal/cofferd/ratelimit/memory"
	ratelimitredis "github.com/coffersec/coffer/internal/cofferd/ratelimit/redis"
	"github.com/coffersec/coffer/internal/cofferd/secret"
	"github.com/coffersec/coffer/internal/cofferd/secret/delivery"
	secrethttp "github.com/coffersec/coffer/internal/cofferd/secret/http"
	secretpg "github.com/coffersec/coffer/internal/cofferd/secret/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Structured logging with JSON format for easier parsing
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			logger.Error("failed to load config file", "error", err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.SetupDatabase(connStr, 5, time.Second)
	if err != nil {
		logger.Error("failed to setup database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	database.ConfigurePool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)

	if err := migrations.NewManager(db).ApplyMigrations(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      setupRouter(cfg, db, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)

		var err error
		if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
			err = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	<-shutdown
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

// setupRouter creates and configures the HTTP router with all application routes
func setupRouter(cfg *config.Config, db *sql.DB, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Health check endpoints
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Poll rate limiting, backed by Redis when configured
	limiter := ratelimit.NewService(newRateLimitStore(cfg, logger), logger)
	if err := limiter.RegisterLimit(ratelimit.TypeDevicePoll, ratelimit.Limit{
		Rate:   cfg.RateLimit.PollLimit,
		Period: cfg.RateLimit.PollWindow,
	}); err != nil {
		logger.Error("invalid rate limit configuration", "error", err)
		os.Exit(1)
	}

	// Auth service dependencies
	identityRepo := identitypg.NewRepository(db, logger)
	resolver := identity.NewResolver(identityRepo, cfg.Auth.DefaultOrgName, logger)
	exchanger := upstream.NewGitHubClient(cfg.Auth.OAuth.ClientID, cfg.Auth.OAuth.ClientSecret, nil)
	jwt := token.NewJWT(cfg.Auth.TokenSigningKey, cfg.Auth.AccessTokenTTL)
	refresh := token.NewRefreshManager(tokenpg.NewRepository(db, logger), cfg.Auth.RefreshTokenTTL)

	authService := auth.NewService(
		device.NewRegistry(),
		limiter,
		exchanger,
		resolver,
		jwt,
		refresh,
		logger,
	)
	r.Mount("/api/v1alpha1/auth", authhttp.NewHandler(authService, logger).Router())

	// Secret service dependencies
	hub := secret.NewHub()
	secretService := secret.NewService(
		secretpg.NewRepository(db, logger),
		hub,
		&identityDirectory{resolver: resolver},
		cfg.Auth.AdminImplicitAccess,
		logger,
	)
	streamer := delivery.NewStreamer(hub, secretService, logger)

	zlogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	secretHandler := secrethttp.NewHandler(secretService, streamer, zlogger)

	r.Route("/api/v1alpha1/secrets", func(r chi.Router) {
		r.Use(authhttp.Authenticator(authService, logger))
		secretHandler.RegisterRoutes(r)
	})

	return r
}

// newRateLimitStore picks the rate limit backend: Redis when an address
// is configured, otherwise process-local memory
func newRateLimitStore(cfg *config.Config, logger *slog.Logger) ratelimit.Store {
	if cfg.Redis.Addr == "" {
		return ratelimitmem.NewStore()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Info("using redis rate limit store", "addr", cfg.Redis.Addr)
	return ratelimitredis.NewStore(client)
}

// identityDirectory adapts the identity resolver to view-as lookups
type identityDirectory struct {
	resolver *identity.Resolver
}

func (d *identityDirectory) UserContext(ctx context.Context, userID uuid.UUID) (*secret.UserContext, error) {
	user, teamIDs, err := d.resolver.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &secret.UserContext{
		ID:      user.ID,
		OrgID:   user.OrgID,
		IsAdmin: user.IsAdmin,
		TeamIDs: teamIDs,
	}, nil
}
