package store

import (
	"encoding/json"
	"fmt"
	"time"

	"dayvpn-panel/internal/models"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

// SaveDigest stores a formatted response digest.
func (s *Store) SaveDigest(entry models.DigestEntry) (models.DigestEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return entry, err
	}

	// Key: timestamp_nano + id for ordering
	key := fmt.Sprintf("%020d_%s", entry.Timestamp.UnixNano(), entry.ID)
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketDigests)).Put([]byte(key), data)
	})
	if err != nil {
		return entry, err
	}

	if s.sqlDB != nil {
		ok := 0
		if entry.OK {
			ok = 1
		}
		_, _ = s.sqlDB.Exec(`INSERT OR IGNORE INTO digests(id, ts, action, shape, ok, data) VALUES(?, ?, ?, ?, ?, ?)`,
			entry.ID,
			entry.Timestamp.UTC().Format(time.RFC3339Nano),
			entry.Action,
			entry.Shape,
			ok,
			string(data),
		)
	}
	return entry, nil
}

// QueryDigests returns digests matching filters, ordered by timestamp desc
func (s *Store) QueryDigests(action, shape string, from, to time.Time, limit int) ([]models.DigestEntry, error) {
	results := []models.DigestEntry{}
	if limit <= 0 {
		limit = 200
	}

	if s.readFromSQLite && s.sqlDB != nil {
		q := `SELECT data FROM digests WHERE 1=1`
		args := []any{}
		if action != "" {
			q += ` AND action = ?`
			args = append(args, action)
		}
		if shape != "" {
			q += ` AND shape = ?`
			args = append(args, shape)
		}
		if !from.IsZero() {
			q += ` AND ts >= ?`
			args = append(args, from.UTC().Format(time.RFC3339Nano))
		}
		if !to.IsZero() {
			q += ` AND ts <= ?`
			args = append(args, to.UTC().Format(time.RFC3339Nano))
		}
		q += ` ORDER BY ts DESC LIMIT ?`
		args = append(args, limit)
		rows, err := s.sqlDB.Query(q, args...)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var raw string
				if rows.Scan(&raw) != nil {
					continue
				}
				var e models.DigestEntry
				if json.Unmarshal([]byte(raw), &e) == nil {
					results = append(results, e)
				}
			}
			return results, nil
		}
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketDigests))
		c := b.Cursor()

		var startKey, endKey []byte
		if !from.IsZero() {
			startKey = []byte(fmt.Sprintf("%020d", from.UnixNano()))
		}
		if !to.IsZero() {
			endKey = []byte(fmt.Sprintf("%020d", to.UnixNano()+1))
		}

		// Iterate in reverse (newest first)
		var k, v []byte
		if endKey != nil {
			k, v = c.Seek(endKey)
			if k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		} else {
			k, v = c.Last()
		}

		for ; k != nil && len(results) < limit; k, v = c.Prev() {
			if startKey != nil && string(k) < string(startKey) {
				break
			}
			var e models.DigestEntry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			if action != "" && e.Action != action {
				continue
			}
			if shape != "" && e.Shape != shape {
				continue
			}
			results = append(results, e)
		}
		return nil
	})
	return results, err
}

// PurgeDigests removes digests older than the given duration
func (s *Store) PurgeDigests(olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	cutoffKey := []byte(fmt.Sprintf("%020d", cutoff.UnixNano()))
	deleted := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketDigests))
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if string(k) >= string(cutoffKey) {
				break
			}
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}

	if s.sqlDB != nil {
		_, _ = s.sqlDB.Exec(`DELETE FROM digests WHERE ts < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	}

	return deleted, nil
}

// DigestCount returns total number of stored digests
func (s *Store) DigestCount() int {
	if s.readFromSQLite && s.sqlDB != nil {
		var n int
		if err := s.sqlDB.QueryRow(`SELECT COUNT(*) FROM digests`).Scan(&n); err == nil {
			return n
		}
	}
	count := 0
	s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(BucketDigests)).Stats().KeyN
		return nil
	})
	return count
}
