package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/storage"
)

// HistoryRepo implements storage.HistoryRepository on top of DB.
type HistoryRepo struct {
	db *DB
}

var (
	_ storage.HistoryRepository = (*HistoryRepo)(nil)
	_ storage.Pruner            = (*HistoryRepo)(nil)
)

// NewHistoryRepo creates a new SQL history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

type historyRow struct {
	RequestID          string          `db:"request_id"`
	RawInput           string          `db:"raw_input"`
	Category           string          `db:"category"`
	Success            bool            `db:"success"`
	ArtifactRef        string          `db:"artifact_ref"`
	ProviderTag        string          `db:"provider_tag"`
	MethodTag          string          `db:"method_tag"`
	Quality            string          `db:"quality"`
	Filename           string          `db:"filename"`
	Title              string          `db:"title"`
	Confidence         sql.NullFloat64 `db:"confidence"`
	VerificationMethod string          `db:"verification_method"`
	Tiers              pq.StringArray  `db:"tiers"`
	Attempts           string          `db:"attempts"`
	Error              sql.NullString  `db:"error"`
	TotalDurationMs    int64           `db:"total_duration_ms"`
	CompletedAt        time.Time       `db:"completed_at"`
}

const historyColumns = `request_id, raw_input, category, success, artifact_ref, provider_tag,
	method_tag, quality, filename, title, confidence, verification_method, tiers, attempts,
	error, total_duration_ms, completed_at`

// Save inserts a finished result.
func (r *HistoryRepo) Save(ctx context.Context, result domain.OrchestrationResult) error {
	row, err := toRow(result)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO retrieval_history (` + historyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.db.ExecContext(ctx, query,
		row.RequestID,
		row.RawInput,
		row.Category,
		row.Success,
		row.ArtifactRef,
		row.ProviderTag,
		row.MethodTag,
		row.Quality,
		row.Filename,
		row.Title,
		row.Confidence,
		row.VerificationMethod,
		row.Tiers,
		row.Attempts,
		row.Error,
		row.TotalDurationMs,
		row.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// Recent returns the newest results first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.OrchestrationResult, error) {
	if limit <= 0 {
		limit = storage.DefaultRecentLimit
	}

	query := r.db.Rebind(`
		SELECT ` + historyColumns + `
		FROM retrieval_history
		ORDER BY id DESC
		LIMIT ?
	`)

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	results := make([]domain.OrchestrationResult, 0, len(rows))
	for _, row := range rows {
		res, err := row.toResult()
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Count returns the number of stored entries.
func (r *HistoryRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM retrieval_history`); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes entries completed before cutoff.
func (r *HistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM retrieval_history WHERE completed_at < ?`)
	res, err := r.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned rows: %w", err)
	}
	return n, nil
}

func toRow(result domain.OrchestrationResult) (historyRow, error) {
	attempts := result.Attempts
	if attempts == nil {
		attempts = []domain.AttemptRecord{}
	}
	attemptsJSON, err := json.Marshal(attempts)
	if err != nil {
		return historyRow{}, fmt.Errorf("failed to marshal attempts: %w", err)
	}

	row := historyRow{
		RequestID:          result.Request.ID,
		RawInput:           result.Request.RawInput,
		Category:           string(result.Request.Category),
		Success:            result.Success,
		ArtifactRef:        result.ArtifactRef,
		ProviderTag:        result.ProviderTag,
		MethodTag:          result.MethodTag,
		Quality:            result.Quality,
		Filename:           result.Filename,
		Title:              result.Title,
		VerificationMethod: result.VerificationMethod,
		Tiers:              pq.StringArray(result.ProviderTags()),
		Attempts:           string(attemptsJSON),
		TotalDurationMs:    result.TotalDurationMs,
		CompletedAt:        result.CompletedAt.UTC(),
	}
	if result.Confidence != nil {
		row.Confidence = sql.NullFloat64{Float64: *result.Confidence, Valid: true}
	}
	if result.Error != nil {
		errJSON, err := json.Marshal(result.Error)
		if err != nil {
			return historyRow{}, fmt.Errorf("failed to marshal error: %w", err)
		}
		row.Error = sql.NullString{String: string(errJSON), Valid: true}
	}
	return row, nil
}

func (row historyRow) toResult() (domain.OrchestrationResult, error) {
	res := domain.OrchestrationResult{
		Request: domain.Request{
			ID:       row.RequestID,
			RawInput: row.RawInput,
			Category: domain.Category(row.Category),
		},
		Success:            row.Success,
		ArtifactRef:        row.ArtifactRef,
		ProviderTag:        row.ProviderTag,
		MethodTag:          row.MethodTag,
		Quality:            row.Quality,
		Filename:           row.Filename,
		Title:              row.Title,
		VerificationMethod: row.VerificationMethod,
		TotalDurationMs:    row.TotalDurationMs,
		CompletedAt:        row.CompletedAt,
	}
	if row.Confidence.Valid {
		c := row.Confidence.Float64
		res.Confidence = &c
	}
	if err := json.Unmarshal([]byte(row.Attempts), &res.Attempts); err != nil {
		return res, fmt.Errorf("failed to unmarshal attempts for %s: %w", row.RequestID, err)
	}
	if row.Error.Valid {
		res.Error = &domain.OrchestrationError{}
		if err := json.Unmarshal([]byte(row.Error.String), res.Error); err != nil {
			return res, fmt.Errorf("failed to unmarshal error for %s: %w", row.RequestID, err)
		}
	}
	return res, nil
}
