package decision

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/switchboard/internal/db"
)

// Store persists decision records.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log validates and inserts one record. The record is rejected with an
// error when it fails schema validation; nothing invalid ever lands in
// the log. If record.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("rejecting decision record: %w", err)
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	perLayer, err := json.Marshal(record.LatencyMSPerLayer)
	if err != nil {
		return fmt.Errorf("marshalling per-layer latency: %w", err)
	}
	breakers, err := json.Marshal(record.CircuitBreakers)
	if err != nil {
		return fmt.Errorf("marshalling breaker states: %w", err)
	}

	var keywordHit sql.NullString
	if record.KeywordHit != nil {
		keywordHit = sql.NullString{String: *record.KeywordHit, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decision_log (
			id, request_id, received_at, user_id, layer, intent,
			confidence, reason, keyword_hit, ollama_ok, openai_ok,
			latency_ms_total, latency_ms_per_layer, estimated_cost_usd,
			health_checked_at, brownout_active, circuit_breakers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RequestID,
		record.ReceivedAt.UTC().Format(time.RFC3339),
		record.UserID,
		string(record.Layer),
		record.Intent,
		record.Confidence,
		record.Reason,
		keywordHit,
		record.OllamaOK,
		record.OpenAIOK,
		record.LatencyMSTotal,
		string(perLayer),
		record.EstimatedCostUSD,
		record.HealthCheckedAt.UTC().Format(time.RFC3339),
		record.BrownoutActive,
		string(breakers),
	)
	if err != nil {
		return fmt.Errorf("inserting decision record: %w", err)
	}
	return nil
}

// GetByID retrieves a single decision record.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM decision_log WHERE id = ?", id)
	return scanRecord(row)
}

// QueryFilter controls which decision records Query returns.
type QueryFilter struct {
	UserID string
	Layer  Layer
	Intent string
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// Query returns decision records matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Layer != "" {
		clauses = append(clauses, "layer = ?")
		args = append(args, string(filter.Layer))
	}
	if filter.Intent != "" {
		clauses = append(clauses, "intent = ?")
		args = append(args, filter.Intent)
	}
	if filter.Since != nil {
		clauses = append(clauses, "received_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.RFC3339))
	}
	if filter.Until != nil {
		clauses = append(clauses, "received_at <= ?")
		args = append(args, filter.Until.UTC().Format(time.RFC3339))
	}

	query := selectColumns + " FROM decision_log"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY received_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying decision records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

const selectColumns = `SELECT id, request_id, received_at, user_id, layer, intent,
	confidence, reason, keyword_hit, ollama_ok, openai_ok,
	latency_ms_total, latency_ms_per_layer, estimated_cost_usd,
	health_checked_at, brownout_active, circuit_breakers`

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		r                       Record
		layer                   string
		receivedAt, checkedAt   string
		keywordHit              sql.NullString
		perLayerJSON, breakJSON string
	)

	err := sc.Scan(
		&r.ID, &r.RequestID, &receivedAt, &r.UserID, &layer, &r.Intent,
		&r.Confidence, &r.Reason, &keywordHit, &r.OllamaOK, &r.OpenAIOK,
		&r.LatencyMSTotal, &perLayerJSON, &r.EstimatedCostUSD,
		&checkedAt, &r.BrownoutActive, &breakJSON,
	)
	if err != nil {
		return nil, err
	}

	r.Layer = Layer(layer)
	if t, parseErr := time.Parse(time.RFC3339, receivedAt); parseErr == nil {
		r.ReceivedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339, checkedAt); parseErr == nil {
		r.HealthCheckedAt = t
	}
	if keywordHit.Valid {
		r.KeywordHit = &keywordHit.String
	}
	if err := json.Unmarshal([]byte(perLayerJSON), &r.LatencyMSPerLayer); err != nil {
		r.LatencyMSPerLayer = nil
	}
	if err := json.Unmarshal([]byte(breakJSON), &r.CircuitBreakers); err != nil {
		r.CircuitBreakers = nil
	}
	return &r, nil
}
