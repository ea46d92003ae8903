package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playops-hq/playops-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Runtimes ---

// CreateRuntime inserts an immutable runtime config row
func (r *PostgresRepository) CreateRuntime(ctx context.Context, rt *models.RuntimeConfig) error {
	query := `
		INSERT INTO runtimes (id, template_id, sub_competency, mode, time_limit_s, accuracy_threshold, edge_threshold, sessions_required, randomize, proof_log, seed, published_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		rt.ID,
		rt.TemplateID,
		rt.SubCompetency,
		string(rt.Mode),
		rt.TimeLimitS,
		rt.AccuracyThreshold,
		rt.EdgeThreshold,
		rt.SessionsRequired,
		rt.Randomize,
		rt.ProofLog,
		nullString(rt.Seed),
		nullString(rt.PublishedBy),
		rt.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}

	return nil
}

// GetRuntime retrieves a runtime config by ID
func (r *PostgresRepository) GetRuntime(ctx context.Context, id string) (*models.RuntimeConfig, error) {
	query := `
		SELECT id, template_id, sub_competency, mode, time_limit_s, accuracy_threshold, edge_threshold, sessions_required, randomize, proof_log, seed, published_by, created_at
		FROM runtimes
		WHERE id = $1
	`

	var rt models.RuntimeConfig
	var modeStr string
	var seed, publishedBy sql.NullString

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rt.ID,
		&rt.TemplateID,
		&rt.SubCompetency,
		&modeStr,
		&rt.TimeLimitS,
		&rt.AccuracyThreshold,
		&rt.EdgeThreshold,
		&rt.SessionsRequired,
		&rt.Randomize,
		&rt.ProofLog,
		&seed,
		&publishedBy,
		&rt.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get runtime: %w", err)
	}

	rt.Mode = models.GameMode(modeStr)
	rt.Seed = seed.String
	rt.PublishedBy = publishedBy.String

	return &rt, nil
}

// --- Sessions ---

// CreateSession creates a new session record in the started state
func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.Session) error {
	metricsJSON, err := json.Marshal(s.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO sessions (id, user_id, runtime_id, mode, started_at, finished_at, accuracy, time_s, edge_score, level, passed, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.RuntimeID,
		string(s.Mode),
		s.StartedAt,
		nullTime(s.FinishedAt),
		s.Accuracy,
		s.TimeS,
		s.EdgeScore,
		s.Level,
		s.Passed,
		metricsJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, runtime_id, mode, started_at, finished_at, accuracy, time_s, edge_score, level, passed, metrics
		FROM sessions
		WHERE id = $1
	`

	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// FinishSession applies the single finish-time update. The write is
// conditional on the session still being open, so concurrent finishes
// race on one row and exactly one wins.
func (r *PostgresRepository) FinishSession(ctx context.Context, s *models.Session) (bool, error) {
	metricsJSON, err := json.Marshal(s.Metrics)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		UPDATE sessions
		SET finished_at = $2, accuracy = $3, time_s = $4, edge_score = $5, level = $6, passed = $7, metrics = $8
		WHERE id = $1 AND finished_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query,
		s.ID,
		nullTime(s.FinishedAt),
		s.Accuracy,
		s.TimeS,
		s.EdgeScore,
		s.Level,
		s.Passed,
		metricsJSON,
	)

	if err != nil {
		return false, fmt.Errorf("failed to finish session: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// CountCompletedSessions counts a user's finished sessions for one runtime
func (r *PostgresRepository) CountCompletedSessions(ctx context.Context, userID, runtimeID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM sessions
		WHERE user_id = $1 AND runtime_id = $2 AND finished_at IS NOT NULL
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, runtimeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed sessions: %w", err)
	}
	return count, nil
}

// DeleteSession deletes a session by ID
func (r *PostgresRepository) DeleteSession(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("session not found: %s", id)
	}

	return nil
}

// GetStaleSessions returns open sessions started before the given cutoff
func (r *PostgresRepository) GetStaleSessions(ctx context.Context, startedBefore time.Time) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, runtime_id, mode, started_at, finished_at, accuracy, time_s, edge_score, level, passed, metrics
		FROM sessions
		WHERE finished_at IS NULL AND started_at < $1
		ORDER BY started_at ASC
	`

	rows, err := r.pool.Query(ctx, query, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// --- Telemetry events ---

// CreateSessionEvent appends one telemetry event. Insertion order is the
// only ordering guarantee; events are never read back by scoring.
func (r *PostgresRepository) CreateSessionEvent(ctx context.Context, ev *models.SessionEvent) error {
	query := `
		INSERT INTO session_events (session_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`

	payload := ev.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	_, err := r.pool.Exec(ctx, query,
		ev.SessionID,
		ev.EventType,
		[]byte(payload),
		ev.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session event: %w", err)
	}

	return nil
}

// --- Proof receipts ---

// CreateProofReceipt inserts an immutable proof receipt
func (r *PostgresRepository) CreateProofReceipt(ctx context.Context, pr *models.ProofReceipt) error {
	metricsJSON, err := json.Marshal(pr.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO proof_receipts (receipt_id, user_id, session_id, template_id, template_name, sub_competency, level, metrics, xp_awarded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		pr.ReceiptID,
		pr.UserID,
		pr.SessionID,
		pr.TemplateID,
		nullString(pr.TemplateName),
		pr.SubCompetency,
		pr.Level,
		metricsJSON,
		pr.XPAwarded,
		pr.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to create proof receipt: %w", err)
	}

	return nil
}

// ListProofReceipts returns a user's proof receipts, newest first
func (r *PostgresRepository) ListProofReceipts(ctx context.Context, userID string, limit, offset int) ([]*models.ProofReceipt, error) {
	query := `
		SELECT receipt_id, user_id, session_id, template_id, template_name, sub_competency, level, metrics, xp_awarded, created_at
		FROM proof_receipts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list proof receipts: %w", err)
	}
	defer rows.Close()

	var receipts []*models.ProofReceipt
	for rows.Next() {
		var pr models.ProofReceipt
		var templateName sql.NullString
		var metricsJSON []byte

		err := rows.Scan(
			&pr.ReceiptID,
			&pr.UserID,
			&pr.SessionID,
			&pr.TemplateID,
			&templateName,
			&pr.SubCompetency,
			&pr.Level,
			&metricsJSON,
			&pr.XPAwarded,
			&pr.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proof receipt: %w", err)
		}

		pr.TemplateName = templateName.String
		if metricsJSON != nil {
			if err := json.Unmarshal(metricsJSON, &pr.Metrics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
			}
		}

		receipts = append(receipts, &pr)
	}

	return receipts, rows.Err()
}

// --- API tokens ---

// GetTokenByValue resolves a bearer token to its user
func (r *PostgresRepository) GetTokenByValue(ctx context.Context, token string) (*models.ApiToken, error) {
	query := `
		SELECT id, token, user_id, user_name, role, is_active, created_at, last_used_at
		FROM api_tokens
		WHERE token = $1
	`

	var t models.ApiToken
	var userName, role sql.NullString
	var lastUsedAt sql.NullTime

	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.ID,
		&t.Token,
		&t.UserID,
		&userName,
		&role,
		&t.IsActive,
		&t.CreatedAt,
		&lastUsedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api token: %w", err)
	}

	t.UserName = userName.String
	t.Role = role.String
	if lastUsedAt.Valid {
		t.LastUsedAt = &lastUsedAt.Time
	}

	return &t, nil
}

// UpdateTokenLastUsed updates the last_used_at timestamp for a token
func (r *PostgresRepository) UpdateTokenLastUsed(ctx context.Context, token string) error {
	query := `UPDATE api_tokens SET last_used_at = NOW() WHERE token = $1`

	_, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to update token last_used_at: %w", err)
	}

	return nil
}

// --- Scan helpers ---

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var modeStr string
	var finishedAt sql.NullTime
	var metricsJSON []byte

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.RuntimeID,
		&modeStr,
		&s.StartedAt,
		&finishedAt,
		&s.Accuracy,
		&s.TimeS,
		&s.EdgeScore,
		&s.Level,
		&s.Passed,
		&metricsJSON,
	)
	if err != nil {
		return nil, err
	}

	s.Mode = models.GameMode(modeStr)
	if finishedAt.Valid {
		s.FinishedAt = &finishedAt.Time
	}
	if metricsJSON != nil {
		if err := json.Unmarshal(metricsJSON, &s.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}

	return &s, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
