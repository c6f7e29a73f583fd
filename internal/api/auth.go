package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dayvpn-panel/internal/auth"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

func init() {
	b := make([]byte, 32)
	rand.Read(b)
	jwtSecret = b
}

func SetJWTSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

func GenerateRandomSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// generateToken signs a bearer token whose exp matches the session expiry.
func generateToken(expiryMillis int64) (string, error) {
	claims := jwt.MapClaims{
		"exp": expiryMillis / 1000,
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func parseToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string `json:"token"`
	ExpiryTime int64  `json:"expiryTime"`
}

// AuthMiddleware protects API routes requiring authentication. A valid bearer
// token is not enough on its own: the server-side session must still be live,
// so logout invalidates unexpired tokens too.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Public routes: login and the auth state probe
		if path == "/api/auth/login" || path == "/api/auth/state" {
			next.ServeHTTP(w, r)
			return
		}
		// Non-API routes (frontend static files, the relay mount)
		if !strings.HasPrefix(path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, `{"error":"unauthorized"}`, 401)
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := parseToken(tokenStr); err != nil {
			http.Error(w, `{"error":"invalid token"}`, 401)
			return
		}

		st := h.guard.State()
		if !st.IsLoggedIn || st.ExpiryTime == nil || *st.ExpiryTime <= time.Now().UnixMilli() {
			http.Error(w, `{"error":"session expired"}`, 401)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, 405)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid body"}`, 400)
		return
	}

	expiry, err := h.guard.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrLoginPending):
		httpErr(w, err, 409)
		return
	case errors.Is(err, auth.ErrEmptyPassword):
		httpErr(w, err, 400)
		return
	case errors.Is(err, auth.ErrWrongPassword):
		httpErr(w, err, 401)
		return
	case err != nil:
		httpErr(w, err, 500)
		return
	}

	token, err := generateToken(expiry)
	if err != nil {
		httpErr(w, fmt.Errorf("token error"), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{Token: token, ExpiryTime: expiry})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, 405)
		return
	}
	h.guard.Logout()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleAuthState(w http.ResponseWriter, r *http.Request) {
	st := h.guard.State()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"isLoggedIn":    st.IsLoggedIn,
		"isAuthLoading": st.IsAuthLoading,
		"expiryTime":    st.ExpiryTime,
		"remaining":     h.countdown.Remaining(),
	})
}

func (h *Handler) RegisterAuthRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/state", h.handleAuthState)
}
