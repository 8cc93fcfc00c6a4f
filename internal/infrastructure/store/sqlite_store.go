package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/gadget-go/internal/domain"
	"github.com/doeshing/gadget-go/internal/ports"
)

const commandColumns = "id, text, status, response, transport, created_at, updated_at"

// SQLiteStore persists the command log in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time

	// mu serializes writers so ids follow acceptance order.
	mu sync.Mutex

	pubMu  sync.Mutex
	subMu  sync.Mutex
	subs   map[int]chan []domain.Command
	nextID int
}

// Open creates (or opens) the database at path. ":memory:" keeps everything
// in process, which the tests rely on.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// A single connection keeps :memory: databases shared and writes ordered.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:   db,
		path: path,
		now:  time.Now,
		subs: make(map[int]chan []domain.Command),
	}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		status TEXT NOT NULL,
		response TEXT NOT NULL DEFAULT '',
		transport TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS commands_status_id ON commands(status, id);`)
	return err
}

// Enqueue inserts a pending command and returns it with its allocated id.
func (s *SQLiteStore) Enqueue(ctx context.Context, text string) (domain.Command, error) {
	s.mu.Lock()
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO commands (text, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		text, string(domain.StatusPending), formatTime(now), formatTime(now),
	)
	s.mu.Unlock()
	if err != nil {
		return domain.Command{}, fmt.Errorf("enqueue command: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Command{}, fmt.Errorf("enqueue command: %w", err)
	}
	s.publish(ctx)
	return domain.Command{
		ID:        id,
		Text:      text,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NextPending returns the oldest command still pending.
func (s *SQLiteStore) NextPending(ctx context.Context) (domain.Command, bool, error) {
	return s.pending(ctx, "ASC")
}

// LatestPending returns the newest command still pending.
func (s *SQLiteStore) LatestPending(ctx context.Context) (domain.Command, bool, error) {
	return s.pending(ctx, "DESC")
}

func (s *SQLiteStore) pending(ctx context.Context, order string) (domain.Command, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+commandColumns+" FROM commands WHERE status = ? ORDER BY id "+order+" LIMIT 1",
		string(domain.StatusPending),
	)
	cmd, err := scanCommand(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Command{}, false, nil
	}
	if err != nil {
		return domain.Command{}, false, err
	}
	return cmd, true, nil
}

// UpdateStatus moves a pending command to success or failed. Any other
// transition, including a second update of the same command, is rejected with
// domain.ErrInvalidTransition.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status domain.Status, response string, transport domain.Transport) (domain.Command, error) {
	s.mu.Lock()
	cmd, err := s.updateStatus(ctx, id, status, response, transport)
	s.mu.Unlock()
	if err != nil {
		return domain.Command{}, err
	}
	s.publish(ctx)
	return cmd, nil
}

func (s *SQLiteStore) updateStatus(ctx context.Context, id int64, status domain.Status, response string, transport domain.Transport) (domain.Command, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Command{}, err
	}
	defer tx.Rollback()

	current, err := scanCommand(tx.QueryRowContext(ctx, "SELECT "+commandColumns+" FROM commands WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Command{}, fmt.Errorf("%w: %d", domain.ErrCommandNotFound, id)
	}
	if err != nil {
		return domain.Command{}, err
	}
	next, err := current.Status.Transition(status)
	if err != nil {
		return domain.Command{}, fmt.Errorf("command %d: %w", id, err)
	}

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE commands SET status = ?, response = ?, transport = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(next), response, string(transport), formatTime(now), id, string(domain.StatusPending),
	)
	if err != nil {
		return domain.Command{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return domain.Command{}, err
	} else if n != 1 {
		return domain.Command{}, fmt.Errorf("command %d: %w", id, domain.ErrInvalidTransition)
	}
	if err := tx.Commit(); err != nil {
		return domain.Command{}, err
	}

	current.Status = next
	current.Response = response
	current.Transport = transport
	current.UpdatedAt = now
	return current, nil
}

// Get loads a single command.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (domain.Command, error) {
	cmd, err := scanCommand(s.db.QueryRowContext(ctx, "SELECT "+commandColumns+" FROM commands WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Command{}, fmt.Errorf("%w: %d", domain.ErrCommandNotFound, id)
	}
	return cmd, err
}

// List returns commands newest first. limit <= 0 returns everything.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]domain.Command, error) {
	query := "SELECT " + commandColumns + " FROM commands ORDER BY id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var commands []domain.Command
	for rows.Next() {
		cmd, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		commands = append(commands, cmd)
	}
	return commands, rows.Err()
}

// CountPending reports how many commands are still in flight.
func (s *SQLiteStore) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM commands WHERE status = ?", string(domain.StatusPending)).Scan(&n)
	return n, err
}

// ExportJSON writes the command table to a jsonl file, oldest first.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dest string) error {
	commands, err := s.List(ctx, 0)
	if err != nil {
		return err
	}
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	for i := len(commands) - 1; i >= 0; i-- {
		if err := enc.Encode(commands[i]); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database and ends every subscription.
func (s *SQLiteStore) Close() error {
	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCommand(row rowScanner) (domain.Command, error) {
	var (
		cmd                  domain.Command
		status, transport    string
		createdAt, updatedAt string
	)
	if err := row.Scan(&cmd.ID, &cmd.Text, &status, &cmd.Response, &transport, &createdAt, &updatedAt); err != nil {
		return domain.Command{}, err
	}
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Command{}, err
	}
	cmd.Status = parsed
	cmd.Transport = domain.Transport(transport)
	cmd.CreatedAt = parseTime(createdAt)
	cmd.UpdatedAt = parseTime(updatedAt)
	return cmd, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ ports.CommandRepository = (*SQLiteStore)(nil)
