package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"dayvpn-panel/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// SessionDuration is how long a session stays valid after a successful login.
const SessionDuration = 60 * time.Minute

var (
	// ErrEmptyPassword is the validation message for a blank password.
	ErrEmptyPassword = errors.New("لطفا رمز عبور را وارد کنید")
	// ErrWrongPassword is returned when the hash does not match.
	ErrWrongPassword = errors.New("رمز اشتباه است")
	// ErrLoginPending is returned while another login attempt is in flight.
	ErrLoginPending = errors.New("login already in progress")
)

// SessionStore is the persistence surface the guard talks to. The guard never
// touches storage directly.
type SessionStore interface {
	SaveSession(expiryTime int64) error
	LoadSession() (*models.Session, error)
	ClearSession() error
}

// Guard owns the login session state machine: Unknown until the startup
// restore resolves, then LoggedOut or LoggedIn. Storage failures are logged
// and never block the in-memory flow.
type Guard struct {
	store    SessionStore
	hash     string
	duration time.Duration
	now      func() time.Time

	mu       sync.Mutex
	restored bool
	loggedIn bool
	expiry   int64 // epoch millis, 0 when logged out
	pending  bool  // a login attempt is in flight
	onChange func(expiry *int64)
}

// NewGuard creates a guard verifying against the configured password hash.
func NewGuard(store SessionStore, passwordHash string) *Guard {
	return &Guard{
		store:    store,
		hash:     passwordHash,
		duration: SessionDuration,
		now:      time.Now,
	}
}

// OnChange registers a listener invoked with the new expiry (nil when logged
// out) after every state transition. Register before Restore.
func (g *Guard) OnChange(fn func(expiry *int64)) {
	g.mu.Lock()
	g.onChange = fn
	g.mu.Unlock()
}

// Restore resolves the initial Unknown state from the persisted session.
// It runs once at startup; the auth-loading flag drops exactly once,
// regardless of outcome.
func (g *Guard) Restore() {
	sess, err := g.store.LoadSession()
	if err != nil {
		log.Printf("session restore failed: %v", err)
	}

	g.mu.Lock()
	if g.restored {
		g.mu.Unlock()
		return
	}
	g.restored = true
	var notify func(expiry *int64)
	var expiry *int64
	if sess.Valid(g.now()) {
		g.loggedIn = true
		g.expiry = sess.ExpiryTime
		e := sess.ExpiryTime
		expiry = &e
	}
	notify = g.onChange
	g.mu.Unlock()

	if notify != nil {
		notify(expiry)
	}
}

// State returns the derived authentication state.
func (g *Guard) State() models.AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := models.AuthState{
		IsLoggedIn:    g.loggedIn,
		IsAuthLoading: !g.restored,
	}
	if g.loggedIn {
		e := g.expiry
		st.ExpiryTime = &e
	}
	return st
}

// Login verifies the password and, on success, creates a session expiring
// SessionDuration from now. Exactly one transition happens per successful
// attempt; concurrent attempts while one is pending are rejected.
func (g *Guard) Login(password string) (int64, error) {
	g.mu.Lock()
	if g.pending {
		g.mu.Unlock()
		return 0, ErrLoginPending
	}
	g.pending = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.pending = false
		g.mu.Unlock()
	}()

	if strings.TrimSpace(password) == "" {
		return 0, ErrEmptyPassword
	}
	if !VerifyPassword(password, g.hash) {
		return 0, ErrWrongPassword
	}

	expiry := g.now().Add(g.duration).UnixMilli()
	if err := g.store.SaveSession(expiry); err != nil {
		// Session stays usable for this runtime, just not persisted.
		log.Printf("session save failed: %v", err)
	}

	g.mu.Lock()
	g.loggedIn = true
	g.expiry = expiry
	notify := g.onChange
	g.mu.Unlock()

	if notify != nil {
		e := expiry
		notify(&e)
	}
	return expiry, nil
}

// Logout clears the persisted session and resets the in-memory state. Safe to
// call repeatedly.
func (g *Guard) Logout() {
	if err := g.store.ClearSession(); err != nil {
		log.Printf("session clear failed: %v", err)
	}

	g.mu.Lock()
	g.loggedIn = false
	g.expiry = 0
	notify := g.onChange
	g.mu.Unlock()

	if notify != nil {
		notify(nil)
	}
}

// VerifyPassword checks raw input against the configured hash: bcrypt when the
// hash carries a bcrypt prefix, sha256 hex otherwise. No timing-safety
// guarantee is needed for this threat model.
func VerifyPassword(input, configuredHash string) bool {
	h := strings.TrimSpace(configuredHash)
	if h == "" {
		return false
	}
	if strings.HasPrefix(h, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(h), []byte(input)) == nil
	}
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:]) == strings.ToLower(h)
}
