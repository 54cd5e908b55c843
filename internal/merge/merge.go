// Package merge implements the server merge engine (S3): the per-record
// last-edit-wins decision rule with userId tiebreak, delete-vs-edit
// resurrection, and tombstone lifecycle management. ApplyPush runs the
// whole decision for one push inside a single transaction (I5).
package merge

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/todosync/internal/serverstore"
	"github.com/marcus/todosync/internal/syncwire"
	"github.com/marcus/todosync/internal/todomodel"
)

// wins reports whether (editedAt, userID) strictly outranks
// (otherEditedAt, otherUserID) under the last-edit-wins-with-tiebreak
// rule (§4.7 step 3, B3): later editedAt wins; on an exact tie, the
// lexicographically larger userId wins.
func wins(editedAt time.Time, userID string, otherEditedAt time.Time, otherUserID string) bool {
	if editedAt.After(otherEditedAt) {
		return true
	}
	if editedAt.Before(otherEditedAt) {
		return false
	}
	return userID > otherUserID
}

// ApplyPush applies one push request transactionally and returns the
// conflicts and clientId->serverId mappings to report back to the
// pusher.
func ApplyPush(tx *sql.Tx, userID string, req syncwire.PushRequest, now time.Time) ([]syncwire.Conflict, []syncwire.Mapping, error) {
	var conflicts []syncwire.Conflict
	var mappings []syncwire.Mapping

	for _, upsert := range req.Todos.Upserted {
		conflict, mapping, err := applyUpsert(tx, userID, upsert, now)
		if err != nil {
			return nil, nil, err
		}
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
		if mapping != nil {
			mappings = append(mappings, *mapping)
		}
	}

	for _, del := range req.Todos.Deleted {
		conflict, err := applyDeletion(tx, userID, del, now)
		if err != nil {
			return nil, nil, err
		}
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
	}

	return conflicts, mappings, nil
}

func applyUpsert(tx *sql.Tx, userID string, in syncwire.PushTodo, now time.Time) (*syncwire.Conflict, *syncwire.Mapping, error) {
	editedAt, err := time.Parse(time.RFC3339, in.EditedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parse editedAt: %w", err)
	}

	sid := in.ServerID
	if sid == "" {
		sid = uuid.NewString()
	}

	// Step: tombstone check. A live tombstone blocks the upsert unless
	// the incoming edit is strictly newer (resurrection).
	tomb, err := serverstore.GetTombstoneTx(tx, sid)
	if err != nil {
		return nil, nil, err
	}
	if tomb != nil {
		if !editedAt.After(tomb.DeletedAt) {
			return &syncwire.Conflict{
				ServerID:   sid,
				Reason:     syncwire.ReasonRemoteDeleteNewer,
				ServerTodo: nil,
				ClientTodo: ptr(in),
			}, nil, nil
		}
		if err := serverstore.DeleteTombstoneTx(tx, sid); err != nil {
			return nil, nil, err
		}
	}

	stored, err := serverstore.GetTodoTx(tx, sid)
	if err != nil {
		return nil, nil, err
	}

	if stored != nil {
		if !wins(editedAt, userID, stored.EditedAt, stored.UpdatedBy) {
			return &syncwire.Conflict{
				ServerID:   sid,
				Reason:     syncwire.ReasonRemoteEditNewer,
				ServerTodo: ToWireTodo(*stored),
				ClientTodo: ptr(in),
			}, nil, nil
		}
	}

	fields, err := fieldsFromWire(in)
	if err != nil {
		return nil, nil, err
	}

	createdBy := userID
	if stored != nil {
		createdBy = stored.CreatedBy
	}

	todo := todomodel.Todo{
		ID:        sid,
		Fields:    fields,
		EditedAt:  editedAt,
		UpdatedAt: now,
		CreatedBy: createdBy,
		UpdatedBy: userID,
	}
	if err := serverstore.UpsertTodoTx(tx, todo); err != nil {
		return nil, nil, err
	}

	var mapping *syncwire.Mapping
	if in.ServerID == "" && in.ClientID != "" {
		mapping = &syncwire.Mapping{ServerID: sid, ClientID: in.ClientID}
	}

	return nil, mapping, nil
}

func applyDeletion(tx *sql.Tx, userID string, in syncwire.PushDeletion, now time.Time) (*syncwire.Conflict, error) {
	deletedAt, err := time.Parse(time.RFC3339, in.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("parse deletedAt: %w", err)
	}

	stored, err := serverstore.GetTodoTx(tx, in.ServerID)
	if err != nil {
		return nil, err
	}

	if stored == nil {
		// No stored todo: persist/overwrite the tombstone only if newer
		// than any existing one (B4: newest deletedAt wins).
		existing, err := serverstore.GetTombstoneTx(tx, in.ServerID)
		if err != nil {
			return nil, err
		}
		if existing != nil && !deletedAt.After(existing.DeletedAt) {
			return nil, nil
		}
		return nil, serverstore.UpsertTombstoneTx(tx, todomodel.Tombstone{
			ServerID:   in.ServerID,
			DeletedAt:  deletedAt,
			RecordedAt: now,
			DeletedBy:  userID,
		})
	}

	if !wins(deletedAt, userID, stored.EditedAt, stored.UpdatedBy) {
		return &syncwire.Conflict{
			ServerID:        in.ServerID,
			Reason:          syncwire.ReasonRemoteEditNewer,
			ServerTodo:      ToWireTodo(*stored),
			ClientDeletedAt: in.DeletedAt,
		}, nil
	}

	if err := serverstore.DeleteTodoTx(tx, in.ServerID); err != nil {
		return nil, err
	}
	return nil, serverstore.UpsertTombstoneTx(tx, todomodel.Tombstone{
		ServerID:   in.ServerID,
		DeletedAt:  deletedAt,
		RecordedAt: now,
		DeletedBy:  userID,
	})
}

func fieldsFromWire(in syncwire.PushTodo) (todomodel.Fields, error) {
	f := todomodel.Fields{
		Title:    in.Title,
		Notes:    in.Notes,
		Tags:     todomodel.NormalizeTags(in.Tags),
		Status:   in.Status,
		Position: in.Position,
	}
	if in.DueDate != nil {
		d, err := time.Parse(time.RFC3339, *in.DueDate)
		if err != nil {
			return todomodel.Fields{}, fmt.Errorf("parse dueDate: %w", err)
		}
		f.DueDate = &d
	}
	return f, nil
}

// ToWireTodo converts a stored todo to its wire representation, used by
// the HTTP layer for /state, /delta, and conflict payloads.
func ToWireTodo(t todomodel.Todo) *syncwire.WireTodo {
	w := &syncwire.WireTodo{
		ID:        t.ID,
		Title:     t.Title,
		Notes:     t.Notes,
		Tags:      todomodel.NormalizeTags(t.Tags),
		Status:    t.Status,
		Position:  t.Position,
		EditedAt:  t.EditedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339Nano),
		CreatedBy: t.CreatedBy,
		UpdatedBy: t.UpdatedBy,
	}
	if t.DueDate != nil {
		s := t.DueDate.UTC().Format(time.RFC3339Nano)
		w.DueDate = &s
	}
	return w
}

func ptr[T any](v T) *T { return &v }
