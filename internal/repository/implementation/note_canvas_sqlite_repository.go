package implementation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studyhub-be/internal/entity"
	"studyhub-be/internal/repository/contract"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteCanvasSchema = `CREATE TABLE IF NOT EXISTS note_canvas_states (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	data TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// NoteCanvasSQLiteRepository is the single file store used for local runs
// and the CLI.
type NoteCanvasSQLiteRepository struct {
	conn *sql.DB
}

func OpenNoteCanvasSQLite(path string) (*NoteCanvasSQLiteRepository, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(sqliteCanvasSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &NoteCanvasSQLiteRepository{conn: conn}, nil
}

var _ contract.NoteCanvasRepository = (*NoteCanvasSQLiteRepository)(nil)

func (r *NoteCanvasSQLiteRepository) Close() error {
	return r.conn.Close()
}

func (r *NoteCanvasSQLiteRepository) FindByUserID(ctx context.Context, userID string) (*entity.NoteCanvasState, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT id, user_id, data, created_at, updated_at FROM note_canvas_states WHERE user_id = ?`, userID)
	state, err := scanCanvasState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return state, err
}

func (r *NoteCanvasSQLiteRepository) Upsert(ctx context.Context, state *entity.NoteCanvasState) (*entity.NoteCanvasState, error) {
	data := string(state.Data)
	if data == "" {
		data = "{}"
	}
	now := time.Now().UTC()
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO note_canvas_states (id, user_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		uuid.NewString(), state.UserId, data, now, now)
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, state.UserId)
}

func (r *NoteCanvasSQLiteRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM note_canvas_states WHERE user_id = ?`, userID)
	return err
}

func (r *NoteCanvasSQLiteRepository) List(ctx context.Context, limit, offset int) ([]*entity.NoteCanvasState, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, user_id, data, created_at, updated_at FROM note_canvas_states
		ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.NoteCanvasState
	for rows.Next() {
		state, err := scanCanvasState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (r *NoteCanvasSQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM note_canvas_states`).Scan(&n)
	return n, err
}

func (r *NoteCanvasSQLiteRepository) Ping(ctx context.Context) error {
	return r.conn.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCanvasState(row rowScanner) (*entity.NoteCanvasState, error) {
	var s entity.NoteCanvasState
	var data string
	if err := row.Scan(&s.Id, &s.UserId, &data, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Data = []byte(data)
	return &s, nil
}
