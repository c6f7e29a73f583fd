package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayvpn-panel/internal/models"
	"go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("DAYVPN_DATA_DIR", t.TempDir())
	s, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	expiry := time.Now().Add(time.Hour).UnixMilli()

	require.NoError(t, s.SaveSession(expiry))

	sess, err := s.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, expiry, sess.ExpiryTime)
}

func TestLoadSessionAbsent(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestLoadSessionExpiredIsCleared(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession(time.Now().Add(-time.Minute).UnixMilli()))

	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	// The expired record was deleted, not just skipped.
	err = s.db.View(func(tx *bbolt.Tx) error {
		assert.Nil(t, tx.Bucket([]byte(BucketSession)).Get([]byte(KeySession)))
		return nil
	})
	require.NoError(t, err)
}

func TestLoadSessionCorruptIsCleared(t *testing.T) {
	s := newTestStore(t)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketSession)).Put([]byte(KeySession), []byte("{garbage"))
	})
	require.NoError(t, err)

	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	err = s.db.View(func(tx *bbolt.Tx) error {
		assert.Nil(t, tx.Bucket([]byte(BucketSession)).Get([]byte(KeySession)))
		return nil
	})
	require.NoError(t, err)
}

func TestClearSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveSession(time.Now().Add(time.Hour).UnixMilli()))
	require.NoError(t, s.ClearSession())

	sess, err := s.LoadSession()
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Repeated clears are fine.
	require.NoError(t, s.ClearSession())
}

func TestGetConfigDefaults(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 60, cfg.SessionMinutes)
	assert.Equal(t, 30, cfg.RetentionDays)
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.GetConfig()
	require.NoError(t, err)
	cfg.UpstreamBaseURL = "https://bot.example/api"
	cfg.APIToken = "tok"
	cfg.TelegramChatID = 12345
	require.NoError(t, s.SaveConfig(cfg))

	got, err := s.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example/api", got.UpstreamBaseURL)
	assert.Equal(t, "tok", got.APIToken)
	assert.Equal(t, int64(12345), got.TelegramChatID)
}

func TestSaveDigestFillsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)

	entry, err := s.SaveDigest(models.DigestEntry{Action: "status", Shape: "system_status", OK: true, Text: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
	assert.Equal(t, 1, s.DigestCount())
}

func TestQueryDigestsOrderAndFilters(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i, action := range []string{"status", "clients", "status"} {
		_, err := s.SaveDigest(models.DigestEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Action:    action,
			Shape:     "system_status",
			OK:        true,
			Text:      action,
		})
		require.NoError(t, err)
	}

	all, err := s.QueryDigests("", "", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))
	assert.True(t, all[1].Timestamp.After(all[2].Timestamp))

	byAction, err := s.QueryDigests("status", "", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	byShape, err := s.QueryDigests("", "new_service", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, byShape)

	limited, err := s.QueryDigests("", "", time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	windowed, err := s.QueryDigests("", "", base.Add(30*time.Second), base.Add(90*time.Second), 0)
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, "clients", windowed[0].Action)
}

func TestPurgeDigests(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.now = func() time.Time { return now }

	_, err := s.SaveDigest(models.DigestEntry{Timestamp: now.Add(-48 * time.Hour), Action: "old"})
	require.NoError(t, err)
	_, err = s.SaveDigest(models.DigestEntry{Timestamp: now.Add(-time.Hour), Action: "recent"})
	require.NoError(t, err)

	deleted, err := s.PurgeDigests(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	remaining, err := s.QueryDigests("", "", time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "recent", remaining[0].Action)
}

func TestSQLiteMirrorRead(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DAYVPN_DATA_DIR", dir)

	s, err := New()
	require.NoError(t, err)
	expiry := time.Now().Add(time.Hour).UnixMilli()
	require.NoError(t, s.SaveSession(expiry))
	_, err = s.SaveDigest(models.DigestEntry{Action: "status", Shape: "system_status", OK: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	t.Setenv("DAYVPN_DB_READ_SQLITE", "true")
	s2, err := New()
	require.NoError(t, err)
	defer s2.Close()

	sess, err := s2.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, expiry, sess.ExpiryTime)
	assert.Equal(t, 1, s2.DigestCount())
}
