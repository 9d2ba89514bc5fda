package health

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ziadkadry99/switchboard/internal/db"
)

// Snapshot is one persisted rate-limit reading.
type Snapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	Provider          string    `json:"provider"`
	Model             string    `json:"model"`
	Status            Status    `json:"status"`
	RequestsRemaining int       `json:"requests_remaining"`
	RequestsLimit     int       `json:"requests_limit"`
	TokensRemaining   int       `json:"tokens_remaining"`
	TokensLimit       int       `json:"tokens_limit"`
	TimeUntilReset    int       `json:"time_until_reset"`
	Bottleneck        string    `json:"bottleneck,omitempty"`
}

// SnapshotStore persists rate-limit snapshots so limit pressure can be
// inspected after the fact.
type SnapshotStore struct {
	db *db.DB
}

// NewSnapshotStore creates a SnapshotStore backed by the given database.
func NewSnapshotStore(database *db.DB) *SnapshotStore {
	return &SnapshotStore{db: database}
}

// Save inserts one snapshot.
func (s *SnapshotStore) Save(snap Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO rate_limit_snapshots
			(timestamp, provider, model, status,
			 requests_remaining, requests_limit, tokens_remaining, tokens_limit,
			 time_until_reset, bottleneck)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Timestamp.Unix(), snap.Provider, snap.Model, string(snap.Status),
		snap.RequestsRemaining, snap.RequestsLimit, snap.TokensRemaining, snap.TokensLimit,
		snap.TimeUntilReset, snap.Bottleneck,
	)
	if err != nil {
		return fmt.Errorf("inserting rate limit snapshot: %w", err)
	}
	return nil
}

// Recent returns the newest snapshots for a provider, most recent
// first. limit <= 0 selects the default of 20.
func (s *SnapshotStore) Recent(provider string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT timestamp, provider, model, status,
		       requests_remaining, requests_limit, tokens_remaining, tokens_limit,
		       time_until_reset, bottleneck
		FROM rate_limit_snapshots
		WHERE provider = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, provider, limit)
	if err != nil {
		return nil, fmt.Errorf("querying rate limit snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		var ts int64
		var status string
		var bottleneck sql.NullString
		if err := rows.Scan(&ts, &snap.Provider, &snap.Model, &status,
			&snap.RequestsRemaining, &snap.RequestsLimit, &snap.TokensRemaining, &snap.TokensLimit,
			&snap.TimeUntilReset, &bottleneck); err != nil {
			return nil, fmt.Errorf("scanning rate limit snapshot: %w", err)
		}
		snap.Timestamp = time.Unix(ts, 0)
		snap.Status = Status(status)
		snap.Bottleneck = bottleneck.String
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
