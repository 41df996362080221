package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchboxhq/launchbox/internal/database"
	"github.com/launchboxhq/launchbox/internal/models"
)

// OneTimeCodeRepository is the persistence surface for one-time codes.
// Upsert must be atomic against concurrent callers for the same
// (purpose, recipient) pair: exactly one record may exist per pair.
type OneTimeCodeRepository interface {
	Create(ctx context.Context, code *models.OneTimeCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.OneTimeCode, error)
	FindOne(ctx context.Context, purpose, recipient string) (*models.OneTimeCode, error)
	Upsert(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error)
	Expired(ctx context.Context, sel models.CodeSelection, at time.Time) ([]*models.OneTimeCode, error)
	Cleanup(ctx context.Context, sel models.CodeSelection, at time.Time) (int64, error)
}

// PostgresOneTimeCodeRepository implements OneTimeCodeRepository on pgx.
// A unique index on (purpose, recipient) backs the upsert.
type PostgresOneTimeCodeRepository struct {
	pool *pgxpool.Pool
}

func NewOneTimeCodeRepository(db *database.DB) *PostgresOneTimeCodeRepository {
	return &PostgresOneTimeCodeRepository{pool: db.Pool}
}

func scanOneTimeCode(row rowScanner) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	err := row.Scan(
		&code.ID, &code.Purpose, &code.Recipient,
		&code.IssuedAt, &code.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &code, nil
}

func codeWhere(sel models.CodeSelection, args []any) (string, []any) {
	clause := ""
	if sel.Purpose != "" {
		args = append(args, sel.Purpose)
		clause += fmt.Sprintf(" AND purpose = $%d", len(args))
	}
	if sel.Recipient != "" {
		args = append(args, sel.Recipient)
		clause += fmt.Sprintf(" AND recipient = $%d", len(args))
	}
	return clause, args
}

func (r *PostgresOneTimeCodeRepository) Create(ctx context.Context, code *models.OneTimeCode) error {
	query := `
		INSERT INTO one_time_codes (id, purpose, recipient, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		code.ID, code.Purpose, code.Recipient, code.IssuedAt, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create one-time code: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *PostgresOneTimeCodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.OneTimeCode, error) {
	query := `
		SELECT id, purpose, recipient, issued_at, expires_at
		FROM one_time_codes
		WHERE id = $1
	`

	return scanOneTimeCode(r.pool.QueryRow(ctx, query, id))
}

// FindOne returns the single record matching the pair. It probes for a
// second row so that ambiguity (possible only in data predating the
// unique index) is reported instead of silently picking one.
func (r *PostgresOneTimeCodeRepository) FindOne(ctx context.Context, purpose, recipient string) (*models.OneTimeCode, error) {
	query := `
		SELECT id, purpose, recipient, issued_at, expires_at
		FROM one_time_codes
		WHERE purpose = $1 AND recipient = $2
		LIMIT 2
	`

	rows, err := r.pool.Query(ctx, query, purpose, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to query one-time code: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	var matches []*models.OneTimeCode
	for rows.Next() {
		code, err := scanOneTimeCode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan one-time code: %w", err)
		}
		matches = append(matches, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating code rows: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, models.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, models.ErrAmbiguousMatch
	}
}

// Upsert inserts the candidate record or, when a record for the same
// (purpose, recipient) already exists, refreshes its window in place.
// The surviving row is returned: an existing record keeps its identity
// (and therefore its code) across the refresh. One statement, so two
// concurrent callers on an empty store still produce exactly one row.
func (r *PostgresOneTimeCodeRepository) Upsert(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error) {
	query := `
		INSERT INTO one_time_codes (id, purpose, recipient, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (purpose, recipient) DO UPDATE
		SET issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at
		RETURNING id, purpose, recipient, issued_at, expires_at
	`

	stored, err := scanOneTimeCode(r.pool.QueryRow(ctx, query,
		code.ID, code.Purpose, code.Recipient, code.IssuedAt, code.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert one-time code: %w", err)
	}
	return stored, nil
}

func (r *PostgresOneTimeCodeRepository) Expired(ctx context.Context, sel models.CodeSelection, at time.Time) ([]*models.OneTimeCode, error) {
	args := []any{at}
	clause, args := codeWhere(sel, args)
	query := `
		SELECT id, purpose, recipient, issued_at, expires_at
		FROM one_time_codes
		WHERE expires_at <= $1` + clause

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired codes: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	codes := make([]*models.OneTimeCode, 0)
	for rows.Next() {
		code, err := scanOneTimeCode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan one-time code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating code rows: %w", err)
	}
	return codes, nil
}

func (r *PostgresOneTimeCodeRepository) Cleanup(ctx context.Context, sel models.CodeSelection, at time.Time) (int64, error) {
	args := []any{at}
	clause, args := codeWhere(sel, args)
	query := `DELETE FROM one_time_codes WHERE expires_at <= $1` + clause

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired codes: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

