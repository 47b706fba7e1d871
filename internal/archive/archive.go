package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/termdemo/internal/db"
	"github.com/user/termdemo/internal/recorder"
)

var ErrNotFound = errors.New("cast not found")

// Save stores everything rec captured as a new cast.
func Save(ctx context.Context, repo *db.CastRepo, rec *recorder.Recorder, source string) (*db.Cast, error) {
	h := rec.Header()
	events := rec.Events()

	cast := &db.Cast{
		Title:         h.Title,
		Source:        source,
		Width:         h.Width,
		Height:        h.Height,
		Duration:      h.Duration,
		IdleTimeLimit: h.IdleTimeLimit,
		CreatedAt:     time.Unix(h.Timestamp, 0).UTC(),
	}
	rows := make([]db.CastEvent, len(events))
	for i, ev := range events {
		rows[i] = db.CastEvent{Time: ev.Time, Type: string(ev.Type), Data: ev.Data}
	}
	if err := repo.Create(ctx, cast, rows); err != nil {
		return nil, err
	}
	return cast, nil
}

// Export writes a stored cast to w in asciicast v2 format.
func Export(ctx context.Context, repo *db.CastRepo, id string, w io.Writer) error {
	cast, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if cast == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rows, err := repo.Events(ctx, id)
	if err != nil {
		return err
	}

	h := recorder.Header{
		Version:       recorder.Version,
		Width:         cast.Width,
		Height:        cast.Height,
		Timestamp:     cast.CreatedAt.Unix(),
		Duration:      cast.Duration,
		IdleTimeLimit: cast.IdleTimeLimit,
		Title:         cast.Title,
	}
	events := make([]recorder.Event, len(rows))
	for i, row := range rows {
		events[i] = recorder.Event{Time: row.Time, Type: recorder.EventType(row.Type), Data: row.Data}
	}
	return recorder.WriteCast(w, h, events)
}

// Import stores an asciicast v2 stream read from r as a new cast.
func Import(ctx context.Context, repo *db.CastRepo, r io.Reader, source string) (*db.Cast, error) {
	h, events, err := recorder.ReadCast(r)
	if err != nil {
		return nil, err
	}

	cast := &db.Cast{
		Title:         h.Title,
		Source:        source,
		Width:         h.Width,
		Height:        h.Height,
		Duration:      h.Duration,
		IdleTimeLimit: h.IdleTimeLimit,
	}
	if h.Timestamp > 0 {
		cast.CreatedAt = time.Unix(h.Timestamp, 0).UTC()
	}
	if cast.Duration == 0 && len(events) > 0 {
		cast.Duration = events[len(events)-1].Time
	}
	rows := make([]db.CastEvent, len(events))
	for i, ev := range events {
		rows[i] = db.CastEvent{Time: ev.Time, Type: string(ev.Type), Data: ev.Data}
	}
	if err := repo.Create(ctx, cast, rows); err != nil {
		return nil, err
	}
	return cast, nil
}
