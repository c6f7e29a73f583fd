package models

import "time"

// Session is the single client-held record proving recent successful
// authentication. It is valid while ExpiryTime (epoch millis) is in the future.
type Session struct {
	ExpiryTime int64 `json:"expiryTime"`
}

// Valid reports whether the session expiry is still ahead of now.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.ExpiryTime > now.UnixMilli()
}

// AuthState is the derived in-memory authentication state.
// IsAuthLoading is true only before the startup session restore completes.
type AuthState struct {
	IsLoggedIn    bool   `json:"isLoggedIn"`
	IsAuthLoading bool   `json:"isAuthLoading"`
	ExpiryTime    *int64 `json:"expiryTime,omitempty"`
}

// PanelConfig holds panel server settings
type PanelConfig struct {
	Port             string `json:"port"`
	UpstreamBaseURL  string `json:"upstreamBaseUrl"`
	APIToken         string `json:"apiToken,omitempty"`
	TelegramBotToken string `json:"telegramBotToken,omitempty"`
	TelegramChatID   int64  `json:"telegramChatId,omitempty"`
	PasswordHash     string `json:"passwordHash,omitempty"` // sha256 hex or bcrypt hash
	SessionMinutes   int    `json:"sessionMinutes"`
	RetentionDays    int    `json:"retentionDays"`
	JWTSecret        string `json:"jwtSecret,omitempty"`
}

// DigestEntry is one formatted response digest recorded centrally after it was
// forwarded to the Telegram sink.
type DigestEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"` // upstream endpoint the digest came from
	Shape     string    `json:"shape"`  // recognized response shape tag
	OK        bool      `json:"ok"`
	Text      string    `json:"text"`
}

// ActionField describes one input of a panel action.
type ActionField struct {
	Name     string  `json:"name"`
	Label    string  `json:"label"`
	Required bool    `json:"required,omitempty"`
	Type     string  `json:"type,omitempty"` // text / number
	Min      float64 `json:"min,omitempty"`
}

// Action is one relayable operation of the upstream bot API.
type Action struct {
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Method   string        `json:"method"` // GET / POST
	Endpoint string        `json:"endpoint"`
	Fields   []ActionField `json:"fields,omitempty"`
}
