package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"dayvpn-panel/internal/auth"
	"dayvpn-panel/internal/models"
	"dayvpn-panel/internal/netutil"
	"dayvpn-panel/internal/relay"
	"dayvpn-panel/internal/store"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store     *store.Store
	guard     *auth.Guard
	countdown *auth.Countdown
	relay     *relay.Client
	notifier  *relay.Notifier

	actionMu sync.Mutex
	inFlight map[string]bool
}

// NewHandler creates a new Handler
func NewHandler(s *store.Store, guard *auth.Guard, countdown *auth.Countdown, rc *relay.Client, notifier *relay.Notifier) *Handler {
	return &Handler{
		store:     s,
		guard:     guard,
		countdown: countdown,
		relay:     rc,
		notifier:  notifier,
		inFlight:  make(map[string]bool),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/actions", h.handleActions)
	mux.HandleFunc("/api/actions/{name}", h.handleAction)
	mux.HandleFunc("/api/digests", h.handleDigests)
	mux.HandleFunc("/api/config", h.handleConfig)
}

// StartRetentionLoop purges old digest entries in the background until stop
// is closed.
func (h *Handler) StartRetentionLoop(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cfg, _ := h.store.GetConfig()
				days := cfg.RetentionDays
				if days < 1 {
					days = 30
				}
				if _, err := h.store.PurgeDigests(time.Duration(days) * 24 * time.Hour); err != nil {
					log.Printf("digest purge failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}

// handleDigests returns recorded digests, newest first
func (h *Handler) handleDigests(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method not allowed"}`, 405)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		from, _ = parseFlexTime(v)
	}
	if v := q.Get("to"); v != "" {
		to, _ = parseFlexTime(v)
	}

	entries, err := h.store.QueryDigests(q.Get("action"), q.Get("shape"), from, to, limit)
	if err != nil {
		httpErr(w, err, 500)
		return
	}
	json.NewEncoder(w).Encode(entries)
}

// handleConfig GET/PUT panel config
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		cfg, _ := h.store.GetConfig()
		stripSecrets(cfg)
		json.NewEncoder(w).Encode(cfg)

	case http.MethodPut:
		existing, _ := h.store.GetConfig()
		var cfg models.PanelConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			httpErr(w, err, 400)
			return
		}
		if strings.TrimSpace(cfg.Port) == "" {
			cfg.Port = "8080"
		}
		if cfg.SessionMinutes < 1 {
			cfg.SessionMinutes = 60
		}
		if cfg.RetentionDays < 1 {
			cfg.RetentionDays = 30
		}
		cfg.UpstreamBaseURL = netutil.NormalizeUpstreamBaseURL(cfg.UpstreamBaseURL)
		// Preserve secrets unless explicitly replaced
		cfg.JWTSecret = existing.JWTSecret
		if strings.TrimSpace(cfg.APIToken) == "" {
			cfg.APIToken = existing.APIToken
		}
		if strings.TrimSpace(cfg.TelegramBotToken) == "" {
			cfg.TelegramBotToken = existing.TelegramBotToken
		}
		if strings.TrimSpace(cfg.PasswordHash) == "" {
			cfg.PasswordHash = existing.PasswordHash
		}
		if err := h.store.SaveConfig(&cfg); err != nil {
			httpErr(w, err, 500)
			return
		}
		stripSecrets(&cfg)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"config": cfg,
		})

	default:
		http.Error(w, `{"error":"method not allowed"}`, 405)
	}
}

func stripSecrets(cfg *models.PanelConfig) {
	cfg.JWTSecret = ""
	cfg.APIToken = ""
	cfg.TelegramBotToken = ""
	cfg.PasswordHash = ""
}

func httpErr(w http.ResponseWriter, err error, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func parseFlexTime(v string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
