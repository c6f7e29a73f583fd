package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dayvpn-panel/internal/models"

	"go.etcd.io/bbolt"
	_ "modernc.org/sqlite"
)

const (
	BucketSession = "Session"
	BucketConfig  = "Config"
	BucketDigests = "Digests"
	KeyPanel      = "panel"
	KeySession    = "current"
)

// Store manages persistent storage for the panel server
type Store struct {
	db             *bbolt.DB
	sqlDB          *sql.DB
	readFromSQLite bool
	now            func() time.Time
}

// New creates a new store instance
func New() (*Store, error) {
	baseDir, err := resolveDataDir()
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(baseDir, "dayvpn-panel.db")
	sqlitePath := filepath.Join(baseDir, "dayvpn-panel.sqlite")

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketSession)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(BucketDigests)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(BucketConfig))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init buckets: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if _, err := sqlDB.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to init sqlite pragmas: %w", err)
	}
	if err := initSQLiteSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
	}

	readFromSQLite := false
	if v := os.Getenv("DAYVPN_DB_READ_SQLITE"); v != "" {
		if b, e := strconv.ParseBool(v); e == nil {
			readFromSQLite = b
		}
	}

	return &Store{db: db, sqlDB: sqlDB, readFromSQLite: readFromSQLite, now: time.Now}, nil
}

func resolveDataDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("DAYVPN_DATA_DIR")); v != "" {
		if err := os.MkdirAll(v, 0o755); err != nil {
			return "", fmt.Errorf("failed to create data dir %s: %w", v, err)
		}
		return v, nil
	}

	wd, err := os.Getwd()
	if err == nil && strings.TrimSpace(wd) != "" {
		return wd, nil
	}

	ex, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve data dir (wd/exe): %w", err)
	}
	return filepath.Dir(ex), nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS session (k TEXT PRIMARY KEY, data TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS config (k TEXT PRIMARY KEY, data TEXT NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS digests (id TEXT PRIMARY KEY, ts TEXT NOT NULL, action TEXT, shape TEXT, ok INTEGER, data TEXT NOT NULL);`,
		`CREATE INDEX IF NOT EXISTS idx_digests_ts ON digests(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_digests_action_ts ON digests(action, ts);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	return s.db.Close()
}

// SaveSession persists the single session record under the fixed key.
func (s *Store) SaveSession(expiryTime int64) error {
	raw, err := json.Marshal(models.Session{ExpiryTime: expiryTime})
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketSession))
		return b.Put([]byte(KeySession), raw)
	})
	if err != nil {
		return err
	}
	if s.sqlDB != nil {
		_, _ = s.sqlDB.Exec(`INSERT INTO session(k, data) VALUES(?, ?) ON CONFLICT(k) DO UPDATE SET data=excluded.data`, KeySession, string(raw))
	}
	return nil
}

// LoadSession returns the persisted session, or nil when it is absent, expired
// or unparseable. Corrupt and expired records are removed so they are never
// acted on again.
func (s *Store) LoadSession() (*models.Session, error) {
	var raw []byte
	if s.readFromSQLite && s.sqlDB != nil {
		var data string
		if err := s.sqlDB.QueryRow(`SELECT data FROM session WHERE k=?`, KeySession).Scan(&data); err == nil {
			raw = []byte(data)
		}
	}
	if raw == nil {
		err := s.db.View(func(tx *bbolt.Tx) error {
			if data := tx.Bucket([]byte(BucketSession)).Get([]byte(KeySession)); data != nil {
				raw = append([]byte(nil), data...)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if raw == nil {
		return nil, nil
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.ExpiryTime <= 0 {
		_ = s.ClearSession()
		return nil, nil
	}
	if !sess.Valid(s.now()) {
		_ = s.ClearSession()
		return nil, nil
	}
	return &sess, nil
}

// ClearSession removes the session record.
func (s *Store) ClearSession() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketSession)).Delete([]byte(KeySession))
	})
	if err != nil {
		return err
	}
	if s.sqlDB != nil {
		_, _ = s.sqlDB.Exec(`DELETE FROM session WHERE k=?`, KeySession)
	}
	return nil
}

// GetConfig returns the panel config, or defaults if not set
func (s *Store) GetConfig() (*models.PanelConfig, error) {
	if s.readFromSQLite && s.sqlDB != nil {
		var raw string
		err := s.sqlDB.QueryRow(`SELECT data FROM config WHERE k=?`, KeyPanel).Scan(&raw)
		if err == nil {
			cfg := defaultConfig()
			_ = json.Unmarshal([]byte(raw), cfg)
			return cfg, nil
		}
	}
	cfg := defaultConfig()
	_ = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketConfig))
		data := b.Get([]byte(KeyPanel))
		if data != nil {
			json.Unmarshal(data, cfg)
		}
		return nil
	})
	return cfg, nil
}

func defaultConfig() *models.PanelConfig {
	return &models.PanelConfig{
		Port:           "8080",
		SessionMinutes: 60,
		RetentionDays:  30,
	}
}

// SaveConfig persists the panel config
func (s *Store) SaveConfig(cfg *models.PanelConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketConfig))
		return b.Put([]byte(KeyPanel), raw)
	})
	if err != nil {
		return err
	}
	if s.sqlDB != nil {
		_, _ = s.sqlDB.Exec(`INSERT INTO config(k, data) VALUES(?, ?) ON CONFLICT(k) DO UPDATE SET data=excluded.data`, KeyPanel, string(raw))
	}
	return nil
}
