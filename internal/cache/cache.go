// Package cache is the state-aware response cache. Entries are keyed
// by intent, project, and a repository state signature, so a push or a
// deploy silently orphans every answer produced against the old state.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/switchboard/internal/db"
	"github.com/ziadkadry99/switchboard/internal/llm"
	"github.com/ziadkadry99/switchboard/internal/metrics"
)

// Cache stores responses in sqlite with per-intent TTLs.
type Cache struct {
	db       *db.DB
	logger   *slog.Logger
	excludes []string
	now      func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	writes      atomic.Int64
	evictions   atomic.Int64
	tokensSaved atomic.Int64
}

// New creates a Cache. excludeProjects are doublestar globs naming
// projects whose responses must never be stored.
func New(database *db.DB, excludeProjects []string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		db:       database,
		logger:   logger,
		excludes: excludeProjects,
		now:      time.Now,
	}
}

// Hit is one successful cache read: the stored response plus the
// bookkeeping a caller may surface (how warm the entry is, what it
// saved, and the metadata written alongside it).
type Hit struct {
	Response    string `json:"response"`
	Metadata    string `json:"metadata"`
	HitCount    int64  `json:"hit_count"`
	AgeSeconds  int64  `json:"age_seconds"`
	TokensSaved int64  `json:"tokens_saved"`
}

// Get looks up a response for the intent at the given project state.
// Failures degrade to a miss: a broken cache never breaks dispatch.
func (c *Cache) Get(intent, project, stateSignature string) (Hit, bool) {
	key := EntryKey(intent, project, stateSignature)
	now := c.now().Unix()

	var hit Hit
	var createdAt int64
	err := c.db.QueryRow(`
		SELECT response, metadata, hit_count, tokens_saved, created_at
		FROM cache_entries
		WHERE cache_key = ? AND expires_at > ?`, key, now).
		Scan(&hit.Response, &hit.Metadata, &hit.HitCount, &hit.TokensSaved, &createdAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		metrics.CacheEventsTotal.WithLabelValues("miss").Inc()
		c.recordEvent("cache_miss", intent, project, "exact_match", 0)
		return Hit{}, false
	}
	hit.HitCount++
	hit.AgeSeconds = now - createdAt

	if _, err := c.db.Exec(`
		UPDATE cache_entries SET hit_count = hit_count + 1, last_hit_at = ?
		WHERE cache_key = ?`, now, key); err != nil {
		c.logger.Warn("cache hit bookkeeping failed", "key", key, "error", err)
	}

	c.hits.Add(1)
	c.tokensSaved.Add(hit.TokensSaved)
	metrics.CacheEventsTotal.WithLabelValues("hit").Inc()
	metrics.TokensSavedTotal.Add(float64(hit.TokensSaved))
	c.recordEvent("cache_hit", intent, project, "exact_match", hit.TokensSaved)
	return hit, true
}

// Put stores a response and returns its cache key. tokensSaved <= 0
// falls back to an estimate from the response length; tier "" means
// exact_match. Uncacheable intents, excluded projects, and store
// failures all return "" — the caller served the response either way.
func (c *Cache) Put(intent, project, stateSignature, response string, tokensSaved int64, tier string) string {
	ttl, cacheable := TTLFor(intent)
	if !cacheable {
		return ""
	}
	if c.excluded(project) {
		c.logger.Debug("project excluded from cache", "project", project)
		return ""
	}

	key := EntryKey(intent, project, stateSignature)
	now := c.now().Unix()
	if tokensSaved <= 0 {
		tokensSaved = int64(llm.EstimateTokens(response))
	}
	if tier == "" {
		tier = "exact_match"
	}
	metadata := fmt.Sprintf(`{"ttl":%d,"tier":%q}`, ttl, tier)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO cache_entries
			(cache_key, intent, project, response, state_signature, created_at, expires_at, tokens_saved, tier, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key, intent, project, response, stateSignature, now, now+int64(ttl), tokensSaved, tier, metadata)
	if err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
		return ""
	}

	c.writes.Add(1)
	metrics.CacheEventsTotal.WithLabelValues("write").Inc()
	c.recordEvent("cache_write", intent, project, tier, tokensSaved)
	return key
}

// ClearExpired deletes entries past their TTL and logs the sweep when
// anything was reclaimed.
func (c *Cache) ClearExpired() (int64, error) {
	res, err := c.db.Exec(`DELETE FROM cache_entries WHERE expires_at <= ?`, c.now().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.noteEviction("expired", "all", "", n)
	return n, nil
}

// ClearByProject deletes every entry for a project. The reason lands
// in the invalidation log ("git_state_changed", "manual", ...).
func (c *Cache) ClearByProject(project, reason string) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM cache_entries WHERE project = ?`, project)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.noteEviction(reason, "project", project, n)
	return n, nil
}

// ClearByIntent deletes every entry for an intent.
func (c *Cache) ClearByIntent(intent, reason string) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM cache_entries WHERE intent = ?`, intent)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.noteEviction(reason, "intent", intent, n)
	return n, nil
}

// ClearAll empties the cache.
func (c *Cache) ClearAll(reason string) (int64, error) {
	res, err := c.db.Exec(`DELETE FROM cache_entries`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	c.noteEviction(reason, "all", "", n)
	return n, nil
}

func (c *Cache) noteEviction(reason, targetType, targetValue string, n int64) {
	if n <= 0 {
		return
	}
	c.evictions.Add(n)
	metrics.CacheEventsTotal.WithLabelValues("eviction").Add(float64(n))

	_, err := c.db.Exec(`
		INSERT INTO invalidation_log (timestamp, reason, target_type, target_value, keys_cleared)
		VALUES (?, ?, ?, ?, ?)`,
		c.now().Unix(), reason, targetType, targetValue, n)
	if err != nil {
		c.logger.Warn("failed to log invalidation", "reason", reason, "error", err)
	}
	c.logger.Info("cache invalidated",
		"reason", reason, "target_type", targetType, "target_value", targetValue, "keys_cleared", n)
}

// Statistics summarizes cache effectiveness since process start plus
// the current table shape.
type Statistics struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Writes      int64   `json:"writes"`
	Evictions   int64   `json:"evictions"`
	TokensSaved int64   `json:"tokens_saved"`
	Entries     int64   `json:"entries"`
	Expired     int64   `json:"expired"`
}

// Statistics returns current cache statistics.
func (c *Cache) Statistics() Statistics {
	stats := Statistics{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Writes:      c.writes.Load(),
		Evictions:   c.evictions.Load(),
		TokensSaved: c.tokensSaved.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	now := c.now().Unix()
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&stats.Entries); err != nil {
		c.logger.Warn("cache stats query failed", "error", err)
	}
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries WHERE expires_at <= ?`, now).Scan(&stats.Expired); err != nil {
		c.logger.Warn("cache stats query failed", "error", err)
	}
	return stats
}

// Invalidation is one row of the invalidation log.
type Invalidation struct {
	Timestamp   time.Time `json:"timestamp"`
	Reason      string    `json:"reason"`
	TargetType  string    `json:"target_type"`
	TargetValue string    `json:"target_value"`
	KeysCleared int64     `json:"keys_cleared"`
}

// Invalidations returns the most recent invalidation log rows, newest
// first. limit <= 0 selects 20.
func (c *Cache) Invalidations(limit int) ([]Invalidation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.Query(`
		SELECT timestamp, reason, target_type, target_value, keys_cleared
		FROM invalidation_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invalidations []Invalidation
	for rows.Next() {
		var inv Invalidation
		var ts int64
		if err := rows.Scan(&ts, &inv.Reason, &inv.TargetType, &inv.TargetValue, &inv.KeysCleared); err != nil {
			return nil, err
		}
		inv.Timestamp = time.Unix(ts, 0)
		invalidations = append(invalidations, inv)
	}
	return invalidations, rows.Err()
}

func (c *Cache) excluded(project string) bool {
	if project == "" {
		return false
	}
	for _, pattern := range c.excludes {
		if ok, err := doublestar.Match(pattern, project); err == nil && ok {
			return true
		}
	}
	return false
}

// recordEvent appends to the cache_metrics table, best effort.
func (c *Cache) recordEvent(eventType, intent, project, tier string, tokensSaved int64) {
	_, err := c.db.Exec(`
		INSERT INTO cache_metrics (timestamp, event_type, intent, project, tier, tokens_saved)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.now().Unix(), eventType, intent, project, tier, tokensSaved)
	if err != nil {
		c.logger.Warn("failed to record cache event", "event", eventType, "error", err)
	}
}
