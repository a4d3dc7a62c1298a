package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"contract-decoder/internal/contract"
	"contract-decoder/internal/shared/storage/db"
)

// SQLRepo implements Repo on database/sql. JSON columns are stored as TEXT and
// created_at as unix milliseconds so the same schema serves SQLite and Postgres.
type SQLRepo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

const selectColumns = `id, document_title, contract_text, analysis, options, chat_history, created_at`

func (r *SQLRepo) Add(ctx context.Context, rec Record) (string, error) {
	rec, err := prepare(rec)
	if err != nil {
		return "", err
	}
	analysis, err := marshalText(rec.Analysis)
	if err != nil {
		return "", err
	}
	options, err := marshalText(rec.Options)
	if err != nil {
		return "", err
	}
	history, err := marshalHistory(rec.ChatHistory)
	if err != nil {
		return "", err
	}

	const query = `
INSERT INTO analyses (id, document_title, contract_text, analysis, options, chat_history, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = r.DB.ExecContext(ctx, r.Dialect.Rebind(query),
		rec.ID,
		rec.DocumentTitle,
		rec.ContractText,
		analysis,
		options,
		history,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}
	return rec.ID, nil
}

func (r *SQLRepo) GetLatest(ctx context.Context) (Record, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *SQLRepo) GetAll(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLRepo) GetByID(ctx context.Context, id string) (Record, error) {
	query := r.Dialect.Rebind(`SELECT ` + selectColumns + ` FROM analyses WHERE id = ? LIMIT 1`)
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

func (r *SQLRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM analyses WHERE id = ?`), id)
	return err
}

func (r *SQLRepo) Update(ctx context.Context, id string, p Patch) (bool, error) {
	var sets []string
	var args []any
	if p.DocumentTitle != nil {
		sets = append(sets, "document_title = ?")
		args = append(args, *p.DocumentTitle)
	}
	if p.Analysis != nil {
		payload, err := marshalText(p.Analysis)
		if err != nil {
			return false, err
		}
		sets = append(sets, "analysis = ?")
		args = append(args, payload)
	}
	if p.Options != nil {
		payload, err := marshalText(p.Options)
		if err != nil {
			return false, err
		}
		sets = append(sets, "options = ?")
		args = append(args, payload)
	}
	if p.SetChatHistory {
		payload, err := marshalHistory(p.ChatHistory)
		if err != nil {
			return false, err
		}
		sets = append(sets, "chat_history = ?")
		args = append(args, payload)
	}

	if len(sets) == 0 {
		var one int
		err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT 1 FROM analyses WHERE id = ?`), id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return err == nil, err
	}

	query := `UPDATE analyses SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("update analysis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SQLRepo) Clear(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM analyses`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var analysis, options, history sql.NullString
	var createdAt int64
	if err := row.Scan(
		&rec.ID,
		&rec.DocumentTitle,
		&rec.ContractText,
		&analysis,
		&options,
		&history,
		&createdAt,
	); err != nil {
		return Record{}, err
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if analysis.Valid && analysis.String != "" {
		if err := json.Unmarshal([]byte(analysis.String), &rec.Analysis); err != nil {
			return Record{}, fmt.Errorf("decode analysis %s: %w", rec.ID, err)
		}
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &rec.Options); err != nil {
			// keep defaults
			rec.Options = contract.AnalysisOptions{}
		}
	}
	rec.Options = rec.Options.Normalize()
	if history.Valid && history.String != "" {
		if err := json.Unmarshal([]byte(history.String), &rec.ChatHistory); err != nil {
			// unreadable transcripts are dropped
			rec.ChatHistory = nil
		}
	}
	return rec, nil
}

func marshalText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalHistory(msgs []contract.ChatMessage) (string, error) {
	if msgs == nil {
		msgs = []contract.ChatMessage{}
	}
	return marshalText(msgs)
}

var _ Repo = (*SQLRepo)(nil)
