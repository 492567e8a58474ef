package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/inamate/keepsake/internal/asset"
	"github.com/inamate/keepsake/internal/auth"
	"github.com/inamate/keepsake/internal/catalog"
	"github.com/inamate/keepsake/internal/config"
	"github.com/inamate/keepsake/internal/design"
	mw "github.com/inamate/keepsake/internal/middleware"
	"github.com/inamate/keepsake/internal/session"
	"github.com/inamate/keepsake/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("load catalog", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Relative image sources point back at this server's /assets/ route.
	images, err := asset.NewResolver(fmt.Sprintf("http://127.0.0.1:%d", cfg.Port), cfg.AssetTimeout, cfg.AssetHosts...)
	if err != nil {
		slog.Error("create asset resolver", "error", err)
		os.Exit(1)
	}
	defer images.Close()

	authService := auth.NewService(cfg.JWTSecret)

	hub := session.NewHub(st, cat, images, cfg.AutosaveInterval)
	designHandler := design.NewHandler(design.NewService(st, cat, hub))
	wsHandler := session.NewHandler(hub, authService, cfg.OriginHosts())
	assetHandler := asset.NewHandler(cfg.AssetDir)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	designHandler.Routes(api)

	// WebSocket endpoint; the token travels as a query parameter
	r.Handle("/ws/designs/{designId}", wsHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mw.CORS(cfg.Origins())(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so every open design is saved
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", store.Describe(cfg.DatabaseURL))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
