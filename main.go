package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dayvpn-panel/internal/api"
	"dayvpn-panel/internal/auth"
	"dayvpn-panel/internal/models"
	"dayvpn-panel/internal/netutil"
	"dayvpn-panel/internal/relay"
	"dayvpn-panel/internal/store"
)

func runServer(stop <-chan struct{}) error {
	// Initialize storage
	db, err := store.New()
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer db.Close()

	cfg, _ := db.GetConfig()
	ensureJWTSecret(db, cfg)
	api.SetJWTSecret(cfg.JWTSecret)
	applyEnvOverrides(cfg)

	if cfg.PasswordHash == "" {
		log.Printf("warning: no password hash configured, login is impossible (set DAYVPN_PASSWORD_HASH)")
	}

	// Auth guard + countdown, restored from the persisted session
	guard := auth.NewGuard(db, cfg.PasswordHash)
	countdown := auth.NewCountdown(func() { guard.Logout() })
	defer countdown.Stop()
	guard.OnChange(countdown.SetExpiry)
	guard.Restore()

	upstream := netutil.NormalizeUpstreamBaseURL(cfg.UpstreamBaseURL)
	relayClient := relay.NewClient(upstream, cfg.APIToken)
	notifier := relay.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)

	// Setup HTTP routes
	mux := http.NewServeMux()

	handler := api.NewHandler(db, guard, countdown, relayClient, notifier)
	retentionStop := make(chan struct{})
	defer close(retentionStop)
	handler.StartRetentionLoop(retentionStop)
	handler.RegisterAuthRoutes(mux)
	handler.RegisterRoutes(mux)

	// Pass-through relay for the browser (attaches only Authorization)
	mux.Handle("/relay/", relay.NewProxy(upstream, "/relay"))

	// Serve the dashboard frontend if a web dir is configured
	if webDir := strings.TrimSpace(os.Getenv("DAYVPN_WEB_DIR")); webDir != "" {
		registerSPA(mux, webDir)
	}

	// CORS + Auth middleware
	corsHandler := corsMiddleware(handler.AuthMiddleware(mux))

	fmt.Printf("=== DayVPN Panel ===\n")
	fmt.Printf("Dashboard: http://localhost:%s\n", cfg.Port)
	fmt.Printf("API:       http://localhost:%s/api/\n", cfg.Port)
	fmt.Printf("Relay:     http://localhost:%s/relay/\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsHandler,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	if stop == nil {
		err = <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		return nil
	}
}

func main() {
	if err := runServer(nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// registerSPA serves static files with an index.html fallback for SPA routes.
func registerSPA(mux *http.ServeMux, webDir string) {
	fileServer := http.FileServer(http.Dir(webDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "/index.html"
		}
		if _, err := os.Stat(filepath.Join(webDir, filepath.FromSlash(strings.TrimPrefix(path, "/")))); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}
		// Fallback to index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// ensureJWTSecret generates and persists a signing secret on first boot.
// Only the generated secret is written back; env-supplied config values stay
// runtime-only and never reach the store.
func ensureJWTSecret(db *store.Store, cfg *models.PanelConfig) {
	if cfg.JWTSecret != "" {
		return
	}
	cfg.JWTSecret = api.GenerateRandomSecret()
	if err := db.SaveConfig(cfg); err != nil {
		log.Printf("config save failed: %v", err)
	}
}

func applyEnvOverrides(cfg *models.PanelConfig) {
	if v := strings.TrimSpace(os.Getenv("DAYVPN_PORT")); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYVPN_UPSTREAM_URL")); v != "" {
		cfg.UpstreamBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYVPN_API_TOKEN")); v != "" {
		cfg.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYVPN_TG_BOT_TOKEN")); v != "" {
		cfg.TelegramBotToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYVPN_TG_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}
	if v := strings.TrimSpace(os.Getenv("DAYVPN_PASSWORD_HASH")); v != "" {
		cfg.PasswordHash = v
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		next.ServeHTTP(w, r)
	})
}
