package serverstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcus/todosync/internal/todomodel"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func marshalTags(tags []string) (string, error) {
	data, err := json.Marshal(todomodel.NormalizeTags(tags))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalTags(s string) ([]string, error) {
	var tags []string
	if s == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil, err
	}
	return todomodel.NormalizeTags(tags), nil
}

// GetTodoTx fetches a todo by id within tx. Returns (nil, nil) if absent.
func GetTodoTx(tx *sql.Tx, id string) (*todomodel.Todo, error) {
	row := tx.QueryRow(`SELECT id, title, notes, due_date, tags, status, position, edited_at, updated_at, created_by, updated_by
		FROM todos WHERE id = ?`, id)
	return scanTodo(row)
}

func scanTodo(row *sql.Row) (*todomodel.Todo, error) {
	var (
		t                     todomodel.Todo
		dueDate               sql.NullString
		tagsJSON              string
		editedAt, updatedAt   string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Notes, &dueDate, &tagsJSON, &t.Status, &t.Position, &editedAt, &updatedAt, &t.CreatedBy, &t.UpdatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	if dueDate.Valid {
		d, err := parseTime(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse due date: %w", err)
		}
		t.DueDate = &d
	}
	tags, err := unmarshalTags(tagsJSON)
	if err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	t.Tags = tags
	t.EditedAt, err = parseTime(editedAt)
	if err != nil {
		return nil, fmt.Errorf("parse editedAt: %w", err)
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updatedAt: %w", err)
	}
	return &t, nil
}

// UpsertTodoTx inserts or overwrites a todo row within tx (S3 step 4:
// overwrite all fields, set updatedBy/updatedAt).
func UpsertTodoTx(tx *sql.Tx, t todomodel.Todo) error {
	var dueDate any
	if t.DueDate != nil {
		dueDate = formatTime(*t.DueDate)
	}
	tagsJSON, err := marshalTags(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO todos (id, title, notes, due_date, tags, status, position, edited_at, updated_at, created_by, updated_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, notes=excluded.notes, due_date=excluded.due_date,
			tags=excluded.tags, status=excluded.status, position=excluded.position,
			edited_at=excluded.edited_at, updated_at=excluded.updated_at, updated_by=excluded.updated_by`,
		t.ID, t.Title, t.Notes, dueDate, tagsJSON, string(t.Status), t.Position,
		formatTime(t.EditedAt), formatTime(t.UpdatedAt), t.CreatedBy, t.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("upsert todo: %w", err)
	}
	return nil
}

// DeleteTodoTx removes a todo row within tx (S3: delete accepted).
func DeleteTodoTx(tx *sql.Tx, id string) error {
	_, err := tx.Exec(`DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

// GetTombstoneTx fetches a tombstone by server id within tx. Returns
// (nil, nil) if absent.
func GetTombstoneTx(tx *sql.Tx, serverID string) (*todomodel.Tombstone, error) {
	row := tx.QueryRow(`SELECT server_id, deleted_at, recorded_at, deleted_by FROM tombstones WHERE server_id = ?`, serverID)
	var ts todomodel.Tombstone
	var deletedAt, recordedAt string
	err := row.Scan(&ts.ServerID, &deletedAt, &recordedAt, &ts.DeletedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan tombstone: %w", err)
	}
	if ts.DeletedAt, err = parseTime(deletedAt); err != nil {
		return nil, fmt.Errorf("parse deletedAt: %w", err)
	}
	if ts.RecordedAt, err = parseTime(recordedAt); err != nil {
		return nil, fmt.Errorf("parse recordedAt: %w", err)
	}
	return &ts, nil
}

// UpsertTombstoneTx inserts or overwrites the tombstone for a server id,
// keeping only the newest by deletedAt (B4). Caller is responsible for
// having already checked that overwrite is warranted.
func UpsertTombstoneTx(tx *sql.Tx, ts todomodel.Tombstone) error {
	_, err := tx.Exec(`INSERT INTO tombstones (server_id, deleted_at, recorded_at, deleted_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(server_id) DO UPDATE SET
			deleted_at=excluded.deleted_at, recorded_at=excluded.recorded_at, deleted_by=excluded.deleted_by`,
		ts.ServerID, formatTime(ts.DeletedAt), formatTime(ts.RecordedAt), ts.DeletedBy,
	)
	if err != nil {
		return fmt.Errorf("upsert tombstone: %w", err)
	}
	return nil
}

// DeleteTombstoneTx removes the tombstone for a server id within tx (S3:
// resurrection clears the tombstone).
func DeleteTombstoneTx(tx *sql.Tx, serverID string) error {
	_, err := tx.Exec(`DELETE FROM tombstones WHERE server_id = ?`, serverID)
	if err != nil {
		return fmt.Errorf("delete tombstone: %w", err)
	}
	return nil
}

// ListAllTodos returns every todo, for GET /state and bootstrap.
func (s *Store) ListAllTodos() ([]todomodel.Todo, error) {
	return s.listTodos(`SELECT id, title, notes, due_date, tags, status, position, edited_at, updated_at, created_by, updated_by FROM todos`)
}

// ListTodosUpdatedSince returns todos with updatedAt > since, for S4.
func (s *Store) ListTodosUpdatedSince(since time.Time) ([]todomodel.Todo, error) {
	return s.listTodos(
		`SELECT id, title, notes, due_date, tags, status, position, edited_at, updated_at, created_by, updated_by
		 FROM todos WHERE updated_at > ?`, formatTime(since))
}

func (s *Store) listTodos(query string, args ...any) ([]todomodel.Todo, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []todomodel.Todo
	for rows.Next() {
		var (
			t                   todomodel.Todo
			dueDate             sql.NullString
			tagsJSON            string
			editedAt, updatedAt string
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.Notes, &dueDate, &tagsJSON, &t.Status, &t.Position, &editedAt, &updatedAt, &t.CreatedBy, &t.UpdatedBy); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		if dueDate.Valid {
			d, err := parseTime(dueDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse due date: %w", err)
			}
			t.DueDate = &d
		}
		tags, err := unmarshalTags(tagsJSON)
		if err != nil {
			return nil, fmt.Errorf("parse tags: %w", err)
		}
		t.Tags = tags
		if t.EditedAt, err = parseTime(editedAt); err != nil {
			return nil, fmt.Errorf("parse editedAt: %w", err)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updatedAt: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return out, nil
}

// ListTombstonesRecordedSince returns tombstones with recordedAt > since,
// using server time (not client deletedAt) so backdated deletes still
// propagate (§4.8).
func (s *Store) ListTombstonesRecordedSince(since time.Time) ([]todomodel.Tombstone, error) {
	rows, err := s.conn.Query(
		`SELECT server_id, deleted_at, recorded_at, deleted_by FROM tombstones WHERE recorded_at > ?`,
		formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	defer rows.Close()

	var out []todomodel.Tombstone
	for rows.Next() {
		var ts todomodel.Tombstone
		var deletedAt, recordedAt string
		if err := rows.Scan(&ts.ServerID, &deletedAt, &recordedAt, &ts.DeletedBy); err != nil {
			return nil, fmt.Errorf("scan tombstone: %w", err)
		}
		var err error
		if ts.DeletedAt, err = parseTime(deletedAt); err != nil {
			return nil, fmt.Errorf("parse deletedAt: %w", err)
		}
		if ts.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, fmt.Errorf("parse recordedAt: %w", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tombstones: %w", err)
	}
	return out, nil
}

// ResetAll deletes every todo and tombstone, for DELETE /reset. Returns
// the number of todos deleted.
func (s *Store) ResetAll() (int, error) {
	var count int
	err := s.WithTx(func(tx *sql.Tx) error {
		if err := tx.QueryRow(`SELECT COUNT(*) FROM todos`).Scan(&count); err != nil {
			return fmt.Errorf("count todos: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM todos`); err != nil {
			return fmt.Errorf("delete todos: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM tombstones`); err != nil {
			return fmt.Errorf("delete tombstones: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
