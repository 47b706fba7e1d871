package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type CastRepo struct {
	db *sql.DB
}

func NewCastRepo(db *sql.DB) *CastRepo {
	return &CastRepo{db: db}
}

// Create stores a cast and its events in one transaction. Event sequence
// numbers are assigned from their order.
func (r *CastRepo) Create(ctx context.Context, cast *Cast, events []CastEvent) error {
	if cast.ID == "" {
		id, err := NewID()
		if err != nil {
			return err
		}
		cast.ID = id
	}
	if cast.CreatedAt.IsZero() {
		cast.CreatedAt = nowUTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start cast transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO casts (id, title, source, width, height, duration, idle_time_limit, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, cast.ID, cast.Title, cast.Source, cast.Width, cast.Height, cast.Duration, cast.IdleTimeLimit, formatTimestamp(cast.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create cast: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cast_events (cast_id, seq, time, type, data) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cast event insert: %w", err)
	}
	defer stmt.Close()

	for i := range events {
		events[i].Seq = i
		ev := events[i]
		if _, err := stmt.ExecContext(ctx, cast.ID, ev.Seq, ev.Time, ev.Type, ev.Data); err != nil {
			return fmt.Errorf("failed to insert cast event %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cast: %w", err)
	}
	cast.EventCount = len(events)
	return nil
}

const castColumns = `c.id, c.title, c.source, c.width, c.height, c.duration, c.idle_time_limit, c.created_at,
	(SELECT count(1) FROM cast_events e WHERE e.cast_id = c.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCast(row rowScanner) (*Cast, error) {
	var c Cast
	var createdAtRaw string
	if err := row.Scan(&c.ID, &c.Title, &c.Source, &c.Width, &c.Height, &c.Duration, &c.IdleTimeLimit, &createdAtRaw, &c.EventCount); err != nil {
		return nil, err
	}
	createdAt, err := parseTimestamp(createdAtRaw)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt
	return &c, nil
}

// Get returns nil, nil when no cast has the id.
func (r *CastRepo) Get(ctx context.Context, id string) (*Cast, error) {
	c, err := scanCast(r.db.QueryRowContext(ctx, `SELECT `+castColumns+` FROM casts c WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cast %q: %w", id, err)
	}
	return c, nil
}

// List returns casts newest first.
func (r *CastRepo) List(ctx context.Context, filter CastFilter) ([]*Cast, error) {
	query := `SELECT ` + castColumns + ` FROM casts c`
	args := []any{}
	where := []string{}

	if filter.Title != "" {
		where = append(where, "c.title LIKE ?")
		args = append(args, "%"+filter.Title+"%")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.created_at DESC, c.rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list casts: %w", err)
	}
	defer rows.Close()

	casts := []*Cast{}
	for rows.Next() {
		c, err := scanCast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cast: %w", err)
		}
		casts = append(casts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate casts: %w", err)
	}
	return casts, nil
}

func (r *CastRepo) Events(ctx context.Context, castID string) ([]CastEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT seq, time, type, data
FROM cast_events
WHERE cast_id = ?
ORDER BY seq ASC
`, castID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for cast %q: %w", castID, err)
	}
	defer rows.Close()

	events := []CastEvent{}
	for rows.Next() {
		var ev CastEvent
		if err := rows.Scan(&ev.Seq, &ev.Time, &ev.Type, &ev.Data); err != nil {
			return nil, fmt.Errorf("failed to scan cast event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cast events: %w", err)
	}
	return events, nil
}

// Delete removes a cast and, through the foreign key, its events.
func (r *CastRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM casts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cast %q: %w", id, err)
	}
	return nil
}
