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

// OfferStore implements domain.OfferStore using PostgreSQL.
type OfferStore struct {
	pool *pgxpool.Pool
}

// NewOfferStore creates a new OfferStore backed by the given connection pool.
func NewOfferStore(pool *pgxpool.Pool) *OfferStore {
	return &OfferStore{pool: pool}
}

const offerSelectCols = `id, buyer, price::text, currency, created_at,
	yes_votes::text, no_votes::text, status`

func scanOffer(row pgx.Row) (domain.OfferSnapshot, error) {
	var (
		o                        domain.OfferSnapshot
		buyer, currency          string
		price, yesVotes, noVotes *string
	)
	if err := row.Scan(
		&o.ID, &buyer, &price, &currency, &o.CreatedAt,
		&yesVotes, &noVotes, &o.Status,
	); err != nil {
		return domain.OfferSnapshot{}, err
	}
	o.Buyer = common.HexToAddress(buyer)
	o.Currency = common.HexToAddress(currency)
	o.Price = parseNum(price)
	o.YesVotes = parseNum(yesVotes)
	o.NoVotes = parseNum(noVotes)
	return o, nil
}

// Upsert writes the offer snapshot, updating tallies and status in place as
// votes arrive.
func (s *OfferStore) Upsert(ctx context.Context, offer domain.OfferSnapshot) error {
	const query = `
		INSERT INTO offers (id, buyer, price, currency, created_at, yes_votes, no_votes, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (id) DO UPDATE SET
			yes_votes = EXCLUDED.yes_votes,
			no_votes = EXCLUDED.no_votes,
			status = EXCLUDED.status,
			updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query,
		offer.ID, offer.Buyer.Hex(), numArg(offer.Price), offer.Currency.Hex(),
		offer.CreatedAt, numArg(offer.YesVotes), numArg(offer.NoVotes),
		string(offer.Status),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert offer: %w", err)
	}
	return nil
}

// SetStatus moves an offer to a terminal status and records the verdict
// string, e.g. the contest reason.
func (s *OfferStore) SetStatus(ctx context.Context, id string, status domain.OfferStatus, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE offers SET status = $2, reason = $3, updated_at = NOW() WHERE id = $1`,
		id, string(status), reason,
	)
	if err != nil {
		return fmt.Errorf("postgres: set offer status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetPending returns the single pending offer, or domain.ErrNotFound when no
// acquisition is underway.
func (s *OfferStore) GetPending(ctx context.Context) (domain.OfferSnapshot, error) {
	query := `SELECT ` + offerSelectCols + ` FROM offers WHERE status = $1 ORDER BY created_at DESC LIMIT 1`
	row := s.pool.QueryRow(ctx, query, string(domain.OfferStatusPending))

	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OfferSnapshot{}, domain.ErrNotFound
		}
		return domain.OfferSnapshot{}, fmt.Errorf("postgres: get pending offer: %w", err)
	}
	return o, nil
}

// ListHistory returns all offers newest first, including terminal ones.
func (s *OfferStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.OfferSnapshot, error) {
	query := `SELECT ` + offerSelectCols + ` FROM offers ORDER BY created_at DESC`
	var args []any
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list offer history: %w", err)
	}
	defer rows.Close()

	var offers []domain.OfferSnapshot
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan offer history: %w", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan offer history: %w", err)
	}
	return offers, nil
}
