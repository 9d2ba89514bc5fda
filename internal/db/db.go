package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB with switchboard-specific helpers.
type DB struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	d := &DB{DB: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// OpenMemory creates an in-memory SQLite database (useful for testing).
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}

	d := &DB{DB: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// migrate runs all schema migrations.
func (d *DB) migrate() error {
	_, err := d.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key TEXT UNIQUE NOT NULL,
    intent TEXT NOT NULL,
    project TEXT NOT NULL DEFAULT '',
    response TEXT NOT NULL,
    state_signature TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    hit_count INTEGER NOT NULL DEFAULT 0,
    last_hit_at INTEGER,
    tokens_saved INTEGER NOT NULL DEFAULT 0,
    tier TEXT NOT NULL DEFAULT 'exact_match',
    metadata TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_cache_key ON cache_entries(cache_key);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);
CREATE INDEX IF NOT EXISTS idx_cache_project ON cache_entries(project);
CREATE INDEX IF NOT EXISTS idx_cache_intent ON cache_entries(intent);

CREATE TABLE IF NOT EXISTS cache_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    intent TEXT NOT NULL DEFAULT '',
    project TEXT NOT NULL DEFAULT '',
    tier TEXT NOT NULL DEFAULT '',
    tokens_saved INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON cache_metrics(timestamp);
CREATE INDEX IF NOT EXISTS idx_metrics_event ON cache_metrics(event_type);

CREATE TABLE IF NOT EXISTS invalidation_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    reason TEXT NOT NULL,
    target_type TEXT NOT NULL CHECK(target_type IN ('project','intent','all')),
    target_value TEXT NOT NULL,
    keys_cleared INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_invalidation_timestamp ON invalidation_log(timestamp);

CREATE TABLE IF NOT EXISTS rate_limit_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp INTEGER NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    status TEXT NOT NULL CHECK(status IN ('green','yellow','red')),
    requests_remaining INTEGER NOT NULL DEFAULT 0,
    requests_limit INTEGER NOT NULL DEFAULT 0,
    tokens_remaining INTEGER NOT NULL DEFAULT 0,
    tokens_limit INTEGER NOT NULL DEFAULT 0,
    time_until_reset INTEGER NOT NULL DEFAULT 0,
    bottleneck TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_ratelimit_timestamp ON rate_limit_snapshots(timestamp);
CREATE INDEX IF NOT EXISTS idx_ratelimit_provider ON rate_limit_snapshots(provider);
CREATE INDEX IF NOT EXISTS idx_ratelimit_status ON rate_limit_snapshots(status);

CREATE TABLE IF NOT EXISTS decision_log (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    received_at TEXT NOT NULL,
    user_id TEXT NOT NULL,
    layer TEXT NOT NULL CHECK(layer IN ('keyword','ollama','openai','fallback')),
    intent TEXT NOT NULL,
    confidence REAL NOT NULL,
    reason TEXT NOT NULL,
    keyword_hit TEXT,
    ollama_ok INTEGER NOT NULL DEFAULT 0,
    openai_ok INTEGER NOT NULL DEFAULT 0,
    latency_ms_total REAL NOT NULL DEFAULT 0,
    latency_ms_per_layer TEXT NOT NULL DEFAULT '{}',
    estimated_cost_usd REAL NOT NULL DEFAULT 0,
    health_checked_at TEXT NOT NULL,
    brownout_active INTEGER NOT NULL DEFAULT 0,
    circuit_breakers TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_decisions_received ON decision_log(received_at);
CREATE INDEX IF NOT EXISTS idx_decisions_user ON decision_log(user_id);
CREATE INDEX IF NOT EXISTS idx_decisions_layer ON decision_log(layer);
CREATE INDEX IF NOT EXISTS idx_decisions_intent ON decision_log(intent);
`
