package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

type draftRepo struct {
	db *sql.DB
}

func (r *draftRepo) Save(ctx context.Context, d Draft) error {
	if d.Key == "" {
		return errors.New("draft key is required")
	}
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO drafts (key, title, scenario_id, diagram_id, payload, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			title = excluded.title,
			scenario_id = excluded.scenario_id,
			diagram_id = excluded.diagram_id,
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		d.Key, d.Title, d.ScenarioID, d.DiagramID, string(d.Payload), d.SavedAt.UnixMilli())
	if err != nil {
		return errors.Wrap(err, "save draft")
	}
	return nil
}

func (r *draftRepo) Get(ctx context.Context, key string) (*Draft, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT key, title, scenario_id, diagram_id, payload, saved_at FROM drafts WHERE key = ?`, key)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get draft")
	}
	return d, nil
}

func (r *draftRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "delete draft")
	}
	return nil
}

func (r *draftRepo) List(ctx context.Context) ([]Draft, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, title, scenario_id, diagram_id, payload, saved_at FROM drafts ORDER BY saved_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list drafts")
	}
	defer rows.Close()

	var drafts []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan draft")
		}
		drafts = append(drafts, *d)
	}
	return drafts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var (
		d       Draft
		payload string
		savedAt int64
	)
	if err := row.Scan(&d.Key, &d.Title, &d.ScenarioID, &d.DiagramID, &payload, &savedAt); err != nil {
		return nil, err
	}
	d.Payload = []byte(payload)
	d.SavedAt = time.UnixMilli(savedAt)
	return &d, nil
}
