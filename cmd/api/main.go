package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okonst/widgetbridge/internal/config"
	"github.com/okonst/widgetbridge/internal/handler"
	"github.com/okonst/widgetbridge/internal/handler/widgets"
	"github.com/okonst/widgetbridge/internal/model/widget"
	"github.com/okonst/widgetbridge/internal/service/market"
	"github.com/okonst/widgetbridge/internal/service/relay"
	"github.com/okonst/widgetbridge/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Report dependency status up front so a missing CLI is obvious.
	if ok, msg := relay.CheckInstalled(cfg.Agent.Binary); ok {
		log.Printf("agent CLI: %s", msg)
	} else {
		log.Printf("warning: agent CLI: %s", msg)
	}
	if ok, msg := cfg.Agent.CheckTargetRepo(); ok {
		log.Printf("target repo: %s", msg)
	} else {
		log.Printf("warning: target repo: %s", msg)
	}

	sessions := session.NewManager(cfg.Agent.ResolvedSessionDir())
	guard := session.NewGuard()

	workingDir, _ := cfg.Agent.ResolvedTargetRepo()
	runner := relay.NewRunner(relay.Config{
		Binary:           cfg.Agent.Binary,
		WorkingDirectory: workingDir,
		Timeout:          cfg.Agent.Timeout,
		SkipPermissions:  cfg.Agent.SkipPermissions,
	}, guard)

	registry := widget.NewRegistry(widgets.Seed()...)

	apps := widget.NewAppsFile(cfg.Grid.AppsFile)
	if err := apps.Watch(); err != nil {
		log.Printf("warning: apps file watch disabled: %v", err)
	} else {
		defer apps.Close()
	}

	feed := market.NewFeed()

	router := handler.NewRouter(handler.Deps{
		Config:   cfg,
		Sessions: sessions,
		Guard:    guard,
		Runner:   runner,
		Registry: registry,
		Apps:     apps,
		Feed:     feed,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("widgetbridge backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
