package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// ClaimStore implements domain.ClaimStore using PostgreSQL. Each instance is
// scoped to one claimed token; the equity register and the wrapper share the
// claims table, keyed by (token, target).
type ClaimStore struct {
	pool  *pgxpool.Pool
	token string
}

// NewClaimStore creates a ClaimStore for claims on the given token, backed by
// the given connection pool.
func NewClaimStore(pool *pgxpool.Pool, token common.Address) *ClaimStore {
	return &ClaimStore{pool: pool, token: token.Hex()}
}

const claimSelectCols = `target, claimant, currency, collateral::text, declared_at`

func scanClaimRows(rows pgx.Rows) ([]domain.Claim, error) {
	var claims []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func scanClaim(row pgx.Row) (domain.Claim, error) {
	var (
		c                          domain.Claim
		target, claimant, currency string
		collateral                 *string
	)
	if err := row.Scan(&target, &claimant, &currency, &collateral, &c.DeclaredAt); err != nil {
		return domain.Claim{}, err
	}
	c.Target = common.HexToAddress(target)
	c.Claimant = common.HexToAddress(claimant)
	c.Currency = common.HexToAddress(currency)
	c.Collateral = parseNum(collateral)
	return c, nil
}

// Upsert writes the claim row for its target, replacing any previous claim on
// the same address. The registry allows a fresh claim once the prior one
// reached a terminal status, so (token, target) is the natural key.
func (s *ClaimStore) Upsert(ctx context.Context, claim domain.Claim, status domain.ClaimStatus) error {
	const query = `
		INSERT INTO claims (token, target, claimant, currency, collateral, declared_at, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (token, target) DO UPDATE SET
			claimant = EXCLUDED.claimant,
			currency = EXCLUDED.currency,
			collateral = EXCLUDED.collateral,
			declared_at = EXCLUDED.declared_at,
			status = EXCLUDED.status,
			updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query,
		s.token, claim.Target.Hex(), claim.Claimant.Hex(), claim.Currency.Hex(),
		numArg(claim.Collateral), claim.DeclaredAt, string(status),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert claim: %w", err)
	}
	return nil
}

// GetOpen returns the open claim on the given target address, or
// domain.ErrNotFound when none is open.
func (s *ClaimStore) GetOpen(ctx context.Context, target string) (domain.Claim, error) {
	query := `SELECT ` + claimSelectCols + ` FROM claims WHERE token = $1 AND target = $2 AND status = $3`
	row := s.pool.QueryRow(ctx, query, s.token, common.HexToAddress(target).Hex(), string(domain.ClaimStatusOpen))

	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Claim{}, domain.ErrNotFound
		}
		return domain.Claim{}, fmt.Errorf("postgres: get open claim: %w", err)
	}
	return c, nil
}

// ListOpen returns open claims ordered by declaration time, newest first.
func (s *ClaimStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Claim, error) {
	query := `SELECT ` + claimSelectCols + ` FROM claims WHERE token = $1 AND status = $2 ORDER BY declared_at DESC`
	args := []any{s.token, string(domain.ClaimStatusOpen)}
	argIdx := 3

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open claims: %w", err)
	}
	defer rows.Close()

	claims, err := scanClaimRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open claims: %w", err)
	}
	return claims, nil
}

// ListByClaimant returns all claims ever declared by the given claimant,
// newest first, regardless of status.
func (s *ClaimStore) ListByClaimant(ctx context.Context, claimant string, opts domain.ListOpts) ([]domain.Claim, error) {
	query := `SELECT ` + claimSelectCols + ` FROM claims WHERE token = $1 AND claimant = $2 ORDER BY declared_at DESC`
	args := []any{s.token, common.HexToAddress(claimant).Hex()}
	argIdx := 3

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claims by claimant: %w", err)
	}
	defer rows.Close()

	claims, err := scanClaimRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan claims by claimant: %w", err)
	}
	return claims, nil
}
