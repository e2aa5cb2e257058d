// storefront serves the Under the Skin supplement shop: catalog browsing,
// a per-session cart with simulated checkout, and the advisor chat.
//
// The advisor uses Gemini when GEMINI_API_KEY (or API_KEY) is set and
// falls back to canned demo replies otherwise.
// Default port: 8080
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/underskin/storefront/internal/advisor"
	"github.com/underskin/storefront/internal/api"
	"github.com/underskin/storefront/internal/cart"
	"github.com/underskin/storefront/internal/catalog"
	"github.com/underskin/storefront/internal/config"
	"github.com/underskin/storefront/internal/gemini"
	"github.com/underskin/storefront/internal/session"
	"github.com/underskin/storefront/pkg/admin"
	"github.com/underskin/storefront/pkg/shopcore"
	"github.com/underskin/storefront/pkg/store"
	"github.com/underskin/storefront/pkg/webhook"
)

const sweepInterval = time.Minute

func main() {
	envFile, err := config.LoadDotEnv()
	if err != nil {
		log.Fatalf("failed to load env file: %v", err)
	}
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := shopcore.NewLogger(os.Stdout, cfg.Verbose)
	if envFile != "" {
		logger.Info("loaded env file", "file", envFile)
	}
	generated, err := cfg.EnsureSessionSecret()
	if err != nil {
		log.Fatalf("failed to create session secret: %v", err)
	}
	if generated {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	products, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	var strategy advisor.Strategy
	if cfg.RemoteAdvisor() {
		client := gemini.NewClient(cfg.Gemini.APIKey,
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithLogger(logger),
		)
		strategy = advisor.NewRemote(client, products.Products())
	} else {
		strategy = advisor.NewLocal(cfg.AdvisorDelay)
	}

	clock := store.NewClock()
	processor := cart.NewSimulatedProcessor(cfg.CheckoutDelay)
	dispatcher := webhook.NewDispatcher(webhook.Config{
		URL:         cfg.Webhook.URL,
		Secret:      cfg.Webhook.Secret,
		Logger:      logger,
		AutoDeliver: cfg.Webhook.URL != "",
		Now:         clock.Now,
	})

	sessions, err := session.NewManager(session.Config{
		Secret:         []byte(cfg.Session.Secret),
		TTL:            cfg.Session.TTL,
		Processor:      processor,
		Strategy:       strategy,
		AdvisorTimeout: cfg.AdvisorTimeout,
		Events:         dispatcher,
		Clock:          clock,
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("failed to initialize sessions: %v", err)
	}

	srv := shopcore.New(shopcore.Options{
		Name:    "storefront",
		Port:    cfg.Port,
		Verbose: cfg.Verbose,
		Logger:  logger,
	})

	api.NewHandler(products, sessions, srv.Middleware(), logger).Routes(srv.Router)

	adminHandler := admin.NewHandler(sessions, srv.Middleware(), clock)
	adminHandler.SetDecliner(processor)
	adminHandler.SetFlusher(dispatcher)
	adminHandler.Routes(srv.Router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.Run(ctx, sweepInterval)

	logger.Info("storefront ready",
		"port", cfg.Port,
		"products", products.Len(),
		"advisor", strategy.Mode(),
		"webhooks", cfg.Webhook.URL != "",
	)

	if err := srv.Serve(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	dispatcher.Wait()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}
