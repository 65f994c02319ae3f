package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

type eventRepo struct {
	db *sql.DB
}

const llmCallColumns = `id, at, provider, model, purpose, input_tokens, output_tokens,
	latency_ms, success, error_message, request_body, response_body`

func (r *eventRepo) AppendLLMRequest(ctx context.Context, d LLMRequestEventData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO llm_calls (at, provider, model, purpose, input_tokens, output_tokens,
			latency_ms, success, error_message, request_body, response_body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UnixMilli(), d.Provider, d.Model, d.Purpose, d.InputTokens, d.OutputTokens,
		d.LatencyMs, d.Success, d.ErrorMessage, d.RequestBody, d.ResponseBody)
	return errors.Wrap(err, "insert llm call")
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error) {
	var (
		conds []string
		args  []any
	)
	if opts.Purpose != "" {
		conds = append(conds, "purpose = ?")
		args = append(args, opts.Purpose)
	}
	if !opts.Since.IsZero() {
		conds = append(conds, "at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.BeforeID > 0 {
		conds = append(conds, "id < ?")
		args = append(args, opts.BeforeID)
	}

	var q strings.Builder
	q.WriteString("SELECT " + llmCallColumns + " FROM llm_calls")
	if len(conds) > 0 {
		q.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	q.WriteString(" ORDER BY id DESC")
	if opts.Limit > 0 {
		q.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "query llm calls")
	}
	defer rows.Close()

	var out []LLMEventRecord
	for rows.Next() {
		rec, err := scanLLMCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "iterate llm calls")
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error) {
	rec, err := scanLLMCall(r.db.QueryRowContext(ctx,
		"SELECT "+llmCallColumns+" FROM llm_calls WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsageStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT purpose, COUNT(*), TOTAL(input_tokens), TOTAL(output_tokens), CAST(IFNULL(AVG(latency_ms), 0) AS INTEGER)
		 FROM llm_calls GROUP BY purpose ORDER BY COUNT(*) DESC, purpose`)
	if err != nil {
		return nil, errors.Wrap(err, "usage by purpose")
	}
	defer rows.Close()

	var out []LLMUsageStats
	for rows.Next() {
		var s LLMUsageStats
		var in, outT float64
		if err := rows.Scan(&s.Purpose, &s.Calls, &in, &outT, &s.AvgLatencyMs); err != nil {
			return nil, errors.Wrap(err, "scan usage by purpose")
		}
		s.InputTokens, s.OutputTokens = int(in), int(outT)
		out = append(out, s)
	}
	return out, errors.Wrap(rows.Err(), "iterate usage by purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model, COUNT(*), TOTAL(input_tokens), TOTAL(output_tokens)
		 FROM llm_calls GROUP BY model ORDER BY COUNT(*) DESC, model`)
	if err != nil {
		return nil, errors.Wrap(err, "usage by model")
	}
	defer rows.Close()

	var out []LLMModelUsage
	for rows.Next() {
		var u LLMModelUsage
		var in, outT float64
		if err := rows.Scan(&u.Model, &u.Calls, &in, &outT); err != nil {
			return nil, errors.Wrap(err, "scan usage by model")
		}
		u.InputTokens, u.OutputTokens = int(in), int(outT)
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterate usage by model")
}

func scanLLMCall(row rowScanner) (LLMEventRecord, error) {
	var (
		rec LLMEventRecord
		at  int64
	)
	err := row.Scan(&rec.ID, &at, &rec.Provider, &rec.Model, &rec.Purpose,
		&rec.InputTokens, &rec.OutputTokens, &rec.LatencyMs, &rec.Success,
		&rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody)
	if err != nil {
		return rec, errors.Wrap(err, "scan llm call")
	}
	rec.Timestamp = time.UnixMilli(at)
	return rec, nil
}
