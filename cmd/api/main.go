package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/events"
	"storefront/internal/httpserver"
	"storefront/internal/logging"
	cartrepo "storefront/internal/repository/cart"
	dashboardrepo "storefront/internal/repository/dashboard"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	userrepo "storefront/internal/repository/user"
	wishlistrepo "storefront/internal/repository/wishlist"
	adminsvc "storefront/internal/service/admin"
	cartsvc "storefront/internal/service/cart"
	catalogsvc "storefront/internal/service/catalog"
	ordersvc "storefront/internal/service/order"
	usersvc "storefront/internal/service/user"
	wishlistsvc "storefront/internal/service/wishlist"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.Pool())
	if err != nil {
		logger.Error("connect to db", zap.Error(err))
		return err
	}
	defer pool.Close()

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafka(cfg.KafkaBrokers, cfg.KafkaOrderTopic, logger)
		logger.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	} else {
		publisher = events.NewLog(logger)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	productRepo := productrepo.NewPostgres(pool, logger)
	cartRepo := cartrepo.NewPostgres(pool, logger)
	orderRepo := orderrepo.NewPostgres(pool, logger)
	userRepo := userrepo.NewPostgres(pool, logger)
	wishlistRepo := wishlistrepo.NewPostgres(pool, logger)
	dashboardRepo := dashboardrepo.NewPostgres(pool, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, pool, httpserver.Deps{
		Auth:        usersvc.New(userRepo, cfg.JWTSecret, cfg.JWTTTL, logger),
		Catalog:     catalogsvc.New(productRepo, userRepo, logger),
		Cart:        cartsvc.New(cartRepo, productRepo, logger),
		Orders:      ordersvc.New(orderRepo, productRepo, publisher, logger),
		Wishlist:    wishlistsvc.New(wishlistRepo, productRepo, logger),
		Admin:       adminsvc.New(dashboardRepo, userRepo, logger),
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Error("init server", zap.Error(err))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
