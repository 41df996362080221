package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchboxhq/launchbox/internal/database"
	"github.com/launchboxhq/launchbox/internal/models"
)

// BearerTokenRepository is the persistence surface the token lifecycle
// needs. The engine itself owns none of the storage; selections are
// explicit filter values and every bulk operation is a single set-wide
// statement. The reference instant is always passed in by the caller.
type BearerTokenRepository interface {
	Create(ctx context.Context, token *models.BearerToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BearerToken, error)
	UpdateWindow(ctx context.Context, id uuid.UUID, window models.ExpiryWindow) error
	RevokeAll(ctx context.Context, sel models.TokenSelection, at time.Time) (int64, error)
	Expired(ctx context.Context, sel models.TokenSelection, at time.Time) ([]*models.BearerToken, error)
	Cleanup(ctx context.Context, sel models.TokenSelection, at time.Time) (int64, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresBearerTokenRepository implements BearerTokenRepository on pgx.
type PostgresBearerTokenRepository struct {
	pool *pgxpool.Pool
}

func NewBearerTokenRepository(db *database.DB) *PostgresBearerTokenRepository {
	return &PostgresBearerTokenRepository{pool: db.Pool}
}

func scanBearerToken(row rowScanner) (*models.BearerToken, error) {
	var token models.BearerToken
	err := row.Scan(
		&token.ID, &token.Owner.Kind, &token.Owner.ID,
		&token.IssuedAt, &token.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

func scanBearerTokens(rows pgx.Rows) ([]*models.BearerToken, error) {
	defer rows.Close()

	tokens := make([]*models.BearerToken, 0)
	for rows.Next() {
		token, err := scanBearerToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bearer token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token rows: %w", err)
	}
	return tokens, nil
}

// tokenWhere renders a selection into a WHERE fragment. The zero
// selection yields no conditions and so matches every token.
func tokenWhere(sel models.TokenSelection, args []any) (string, []any) {
	clause := ""
	if sel.OwnerKind != "" {
		args = append(args, sel.OwnerKind)
		clause += fmt.Sprintf(" AND owner_kind = $%d", len(args))
	}
	if sel.OwnerID != uuid.Nil {
		args = append(args, sel.OwnerID)
		clause += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	return clause, args
}

func (r *PostgresBearerTokenRepository) Create(ctx context.Context, token *models.BearerToken) error {
	query := `
		INSERT INTO bearer_tokens (id, owner_kind, owner_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID, token.Owner.Kind, token.Owner.ID, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create bearer token: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *PostgresBearerTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BearerToken, error) {
	query := `
		SELECT id, owner_kind, owner_id, issued_at, expires_at
		FROM bearer_tokens
		WHERE id = $1
	`

	return scanBearerToken(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresBearerTokenRepository) UpdateWindow(ctx context.Context, id uuid.UUID, window models.ExpiryWindow) error {
	query := `
		UPDATE bearer_tokens
		SET issued_at = $2, expires_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, window.IssuedAt, window.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to update token window: %w", database.MapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RevokeAll collapses the expiry of every token in the selection in one
// atomic update and returns the number of rows touched.
func (r *PostgresBearerTokenRepository) RevokeAll(ctx context.Context, sel models.TokenSelection, at time.Time) (int64, error) {
	args := []any{at}
	clause, args := tokenWhere(sel, args)
	query := `UPDATE bearer_tokens SET expires_at = $1 WHERE true` + clause

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke tokens: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

// Expired returns the tokens in the selection with expires_at <= at.
func (r *PostgresBearerTokenRepository) Expired(ctx context.Context, sel models.TokenSelection, at time.Time) ([]*models.BearerToken, error) {
	args := []any{at}
	clause, args := tokenWhere(sel, args)
	query := `
		SELECT id, owner_kind, owner_id, issued_at, expires_at
		FROM bearer_tokens
		WHERE expires_at <= $1` + clause

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired tokens: %w", database.MapPostgresError(err))
	}
	return scanBearerTokens(rows)
}

// Cleanup deletes the expired subset of the selection in one statement.
func (r *PostgresBearerTokenRepository) Cleanup(ctx context.Context, sel models.TokenSelection, at time.Time) (int64, error) {
	args := []any{at}
	clause, args := tokenWhere(sel, args)
	query := `DELETE FROM bearer_tokens WHERE expires_at <= $1` + clause

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}
