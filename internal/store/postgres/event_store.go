package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Amounts are NUMERIC(78,0) in the schema; wide enough for any uint256-scale
// value. They cross the wire as decimal strings.
const eventSelectCols = `id, kind, token, actor, subject, currency,
	amount::text, price::text, reason, timestamp`

func numArg(v *big.Int) any {
	if v == nil {
		return nil
	}
	return v.String()
}

func parseNum(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil
	}
	return v
}

func scanEventRows(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			ev                              domain.Event
			token, actor, subject, currency string
			amount, price                   *string
		)
		if err := rows.Scan(
			&ev.ID, &ev.Kind, &token, &actor, &subject, &currency,
			&amount, &price, &ev.Reason, &ev.Timestamp,
		); err != nil {
			return nil, err
		}
		ev.Token = common.HexToAddress(token)
		ev.Actor = common.HexToAddress(actor)
		ev.Subject = common.HexToAddress(subject)
		ev.Currency = common.HexToAddress(currency)
		ev.Amount = parseNum(amount)
		ev.Price = parseNum(price)
		events = append(events, ev)
	}
	return events, rows.Err()
}

const eventInsertQuery = `
	INSERT INTO events (
		id, kind, token, actor, subject, currency,
		amount, price, reason, timestamp
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10
	) ON CONFLICT (id) DO NOTHING`

// Insert persists a single event. Duplicate IDs are silently skipped so that
// replayed deliveries stay idempotent.
func (s *EventStore) Insert(ctx context.Context, ev domain.Event) error {
	_, err := s.pool.Exec(ctx, eventInsertQuery,
		ev.ID, ev.Kind, ev.Token.Hex(), ev.Actor.Hex(),
		ev.Subject.Hex(), ev.Currency.Hex(),
		numArg(ev.Amount), numArg(ev.Price), ev.Reason, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert event: %w", err)
	}
	return nil
}

// InsertBatch inserts multiple events efficiently using pgx Batch.
func (s *EventStore) InsertBatch(ctx context.Context, evs []domain.Event) error {
	if len(evs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range evs {
		batch.Queue(eventInsertQuery,
			ev.ID, ev.Kind, ev.Token.Hex(), ev.Actor.Hex(),
			ev.Subject.Hex(), ev.Currency.Hex(),
			numArg(ev.Amount), numArg(ev.Price), ev.Reason, ev.Timestamp,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range evs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert event batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the newest events, most recent first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + eventSelectCols + ` FROM events ORDER BY timestamp DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent events: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent events: %w", err)
	}
	return events, nil
}

// ListByKind returns events of one kind with pagination and optional time filtering.
func (s *EventStore) ListByKind(ctx context.Context, kind domain.EventKind, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventSelectCols + ` FROM events WHERE kind = $1`
	args := []any{string(kind)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY timestamp DESC"

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
		return nil, fmt.Errorf("postgres: list events by kind: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan events by kind: %w", err)
	}
	return events, nil
}

// ListBefore returns events with timestamp strictly before the given time,
// oldest first (for archiving). A limit of 0 means no limit.
func (s *EventStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Event, error) {
	query := `SELECT ` + eventSelectCols + ` FROM events WHERE timestamp < $1 ORDER BY timestamp ASC`
	args := []any{before}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before: %w", err)
	}
	defer rows.Close()

	events, err := scanEventRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan events before: %w", err)
	}
	return events, nil
}

// DeleteBefore deletes events with timestamp before the given time. Returns
// the number deleted.
func (s *EventStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete events before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of journal rows.
func (s *EventStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count events: %w", err)
	}
	return n, nil
}
