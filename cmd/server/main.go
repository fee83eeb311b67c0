package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/config"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/crypto"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/db"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/errs"
	api "github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/http"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/migrate"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/model"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/repository"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/resets"
	"github.com/rogeriosantosdeveloper/uniguacuportifolio/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	if !cfg.SkipMigrations {
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	var resetStore *resets.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return err
		}
		defer client.Close()
		resetStore = resets.NewStore(client, cfg.ResetTokenTTL)
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set, password reset disabled")
	}

	files, err := storage.NewStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	if err := ensureAdmin(ctx, cfg, store, logger); err != nil {
		return err
	}

	server := api.NewServer(cfg, store, files, resetStore, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// ensureAdmin seeds the moderation account on first boot when ADMIN_EMAIL and
// ADMIN_PASSWORD are configured.
func ensureAdmin(ctx context.Context, cfg config.Config, store *repository.Store, logger *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := store.GetUserByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	hash, err := crypto.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin := model.User{
		NomeCompleto: "Administrador",
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := store.CreateUser(ctx, &admin); err != nil {
		// lost a race with another replica seeding the same account
		if errors.Is(err, errs.ErrEmailTaken) {
			return nil
		}
		return err
	}
	logger.Info("admin account created", zap.String("email", cfg.AdminEmail))
	return nil
}
