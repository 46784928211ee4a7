// Command bpcheckoutd runs the provider callback server: it receives IPN
// webhook deliveries and close callbacks and reconciles them onto the local
// transaction and order records.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bpcheckout "github.com/bpcheckout/bpcheckout-go"
	"github.com/bpcheckout/bpcheckout-go/config"
	gatewayhttp "github.com/bpcheckout/bpcheckout-go/http"
	ginadapter "github.com/bpcheckout/bpcheckout-go/pkg/gin"
	"github.com/bpcheckout/bpcheckout-go/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	txStore, cleanup, err := newTransactionStore(cfg)
	if err != nil {
		logger.Fatal("transaction store init failed", zap.Error(err))
	}
	defer cleanup()

	gateway := gatewayhttp.NewInvoiceClient(&gatewayhttp.GatewayConfig{
		Env:     cfg.Env,
		Token:   cfg.Token,
		Timeout: cfg.GatewayTimeout,
	})

	// Order and quote access adapt to the host commerce platform in a real
	// deployment; the in-memory repositories serve standalone operation.
	orders := store.NewMemoryOrderRepository()
	quotes := store.NewMemoryQuoteRepository()
	session := store.NewMemorySession("")

	opts := []bpcheckout.ReconcilerOption{
		bpcheckout.WithLogger(logger),
		bpcheckout.WithFetchTimeout(cfg.GatewayTimeout),
	}
	if cfg.DedupTTL > 0 {
		opts = append(opts, bpcheckout.WithDeliveryCache(bpcheckout.NewDeliveryCache(cfg.DedupTTL)))
	}
	reconciler := bpcheckout.NewReconciler(gateway, txStore, orders, opts...)
	closer := bpcheckout.NewCloseHandler(orders, quotes, session, cfg.BaseURL+"checkout/cart", logger)

	router := gin.New()
	router.Use(gin.Recovery())
	handler := ginadapter.NewHandler(reconciler, closer, logger)
	handler.RegisterRoutes(router)

	logger.Info("bpcheckoutd listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("env", cfg.Env))
	if err := router.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newTransactionStore(cfg *config.Config) (bpcheckout.TransactionStore, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewMemoryTransactionStore(), func() {}, nil
	}

	pg, err := store.NewPostgresTransactionStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.EnsureSchema(context.Background()); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, func() { pg.Close() }, nil
}
