package main

import (
	"context"
	"digimart/internal/auth"
	"digimart/internal/config"
	"digimart/internal/database"
	"digimart/internal/domain"
	httpapi "digimart/internal/http"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/logger"
	"digimart/internal/repo"
	"digimart/internal/service"
	"digimart/internal/worker"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type repos struct {
	tx       repo.TxManager
	products repo.ProductRepo
	orders   repo.OrderRepo
	users    repo.UserRepo
	health   func(ctx context.Context) map[string]string
	close    func() error
}

func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*repos, error) {
	if cfg.Storage == config.StorageMemory {
		store := repo.NewMemoryStore()
		return &repos{
			tx:       store.Tx(),
			products: store.Products(),
			orders:   store.Orders(),
			users:    store.Users(),
			close:    func() error { return nil },
		}, nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	svc := database.New(db, cfg.Database.Name, log)
	return &repos{
		tx:       repo.NewTxManager(db),
		products: repo.NewProductRepo(db),
		orders:   repo.NewOrderRepo(db),
		users:    repo.NewUserRepo(db),
		health:   svc.Health,
		close:    svc.Close,
	}, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()
	log.Info("storage ready", zap.String("storage", string(cfg.Storage)))

	outbox := messaging.NewWhatsAppChannel(200, log)
	dispatcher := messaging.NewAsyncDispatcher(outbox, 64, log)
	composer := messaging.Composer{BaseURL: cfg.PublicURL}

	catalog := service.NewCatalogService(store.tx, store.products, log)
	orders := service.NewOrderService(store.tx, store.orders, store.products,
		service.NewOrderNumberGenerator(cfg.OrderPrefix, cfg.OrderMaxAttempts),
		service.Notifier{Dispatcher: dispatcher, Composer: composer, AdminContact: cfg.Admin.Contact},
		log)
	authSvc := service.NewAuthService(store.users,
		auth.NewPasswordHasher(auth.DefaultBcryptCost),
		auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL),
		log)

	if cfg.Admin.Password == "" {
		log.Warn("DIGIMART_ADMIN_PASSWORD not set, no admin account bootstrapped")
	} else {
		admin, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if cfg.Seed {
			n, err := service.Seed(ctx, catalog, domain.ActorFor(*admin))
			if err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			log.Info("catalog seeded", zap.Int("products", n))
		}
	}

	reminder := worker.NewReminderWorker(store.orders, dispatcher, composer, cfg.Admin.Contact,
		cfg.ReminderInterval, cfg.ReminderAfter, log)
	go reminder.Run(ctx)

	srv := httpapi.NewServer(httpapi.Deps{
		Catalog:     catalog,
		Orders:      orders,
		Auth:        authSvc,
		Outbox:      outbox,
		Health:      store.health,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error("dispatcher drain", zap.Error(err))
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "digimart:", err)
		os.Exit(1)
	}
}
