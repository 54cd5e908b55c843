package merge

import (
	"database/sql"
	"testing"
	"time"

	"github.com/marcus/todosync/internal/serverstore"
	"github.com/marcus/todosync/internal/syncwire"
	"github.com/marcus/todosync/internal/todomodel"
)

func newTestStore(t *testing.T) *serverstore.Store {
	t.Helper()
	store, err := serverstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func rfc3339(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func upsert(serverID, clientID, title, editedAt string) syncwire.PushTodo {
	return syncwire.PushTodo{
		ServerID: serverID,
		ClientID: clientID,
		Title:    title,
		Tags:     []string{},
		Status:   todomodel.StatusOpen,
		EditedAt: editedAt,
	}
}

func TestResurrection(t *testing.T) {
	store := newTestStore(t)
	t0 := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)

	var serverID string
	req1 := syncwire.PushRequest{}
	req1.Todos.Upserted = []syncwire.PushTodo{upsert("", "local-a", "A's item", rfc3339(t0))}
	if err := store.WithTx(func(tx *sql.Tx) error {
		_, mappings, err := ApplyPush(tx, "user-A", req1, t0)
		if err != nil {
			return err
		}
		if len(mappings) != 1 {
			t.Fatalf("expected 1 mapping, got %d", len(mappings))
		}
		serverID = mappings[0].ServerID
		return nil
	}); err != nil {
		t.Fatalf("apply push 1: %v", err)
	}

	// B deletes at t0+60s.
	del := syncwire.PushRequest{}
	del.Todos.Deleted = []syncwire.PushDeletion{{ServerID: serverID, DeletedAt: rfc3339(t0.Add(60 * time.Second))}}
	if err := store.WithTx(func(tx *sql.Tx) error {
		conflicts, _, err := ApplyPush(tx, "user-B", del, t0.Add(60*time.Second))
		if err != nil {
			return err
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected delete to be accepted, got conflicts %+v", conflicts)
		}
		return nil
	}); err != nil {
		t.Fatalf("apply delete: %v", err)
	}

	// A re-edits at t0+120s.
	req2 := syncwire.PushRequest{}
	req2.Todos.Upserted = []syncwire.PushTodo{upsert(serverID, "", "A's post-delete value", rfc3339(t0.Add(120*time.Second)))}
	if err := store.WithTx(func(tx *sql.Tx) error {
		conflicts, _, err := ApplyPush(tx, "user-A", req2, t0.Add(120*time.Second))
		if err != nil {
			return err
		}
		if len(conflicts) != 0 {
			t.Fatalf("expected resurrection to succeed with no conflicts, got %+v", conflicts)
		}
		return nil
	}); err != nil {
		t.Fatalf("apply resurrect: %v", err)
	}

	todos, err := store.ListAllTodos()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != 1 || todos[0].Title != "A's post-delete value" {
		t.Fatalf("expected resurrected todo with A's title, got %+v", todos)
	}

	tombstones, err := store.ListTombstonesRecordedSince(time.Time{})
	if err != nil {
		t.Fatalf("list tombstones: %v", err)
	}
	if len(tombstones) != 0 {
		t.Fatalf("expected tombstone cleared on resurrection, got %+v", tombstones)
	}
}

func TestOlderEditRejected(t *testing.T) {
	store := newTestStore(t)
	t0 := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	serverID := "S"

	bReq := syncwire.PushRequest{}
	bReq.Todos.Upserted = []syncwire.PushTodo{upsert(serverID, "", "B's title", rfc3339(t0.Add(120*time.Second)))}
	if err := store.WithTx(func(tx *sql.Tx) error {
		_, _, err := ApplyPush(tx, "user-B", bReq, t0.Add(120*time.Second))
		return err
	}); err != nil {
		t.Fatalf("apply B: %v", err)
	}

	aReq := syncwire.PushRequest{}
	aReq.Todos.Upserted = []syncwire.PushTodo{upsert(serverID, "", "A's title", rfc3339(t0.Add(60*time.Second)))}
	var conflicts []syncwire.Conflict
	if err := store.WithTx(func(tx *sql.Tx) error {
		var err error
		conflicts, _, err = ApplyPush(tx, "user-A", aReq, t0.Add(60*time.Second))
		return err
	}); err != nil {
		t.Fatalf("apply A: %v", err)
	}

	if len(conflicts) != 1 || conflicts[0].Reason != syncwire.ReasonRemoteEditNewer {
		t.Fatalf("expected one remote-edit-newer conflict, got %+v", conflicts)
	}
	if conflicts[0].ServerTodo == nil || conflicts[0].ServerTodo.Title != "B's title" {
		t.Fatalf("expected conflict to report B's title, got %+v", conflicts[0].ServerTodo)
	}

	todos, _ := store.ListAllTodos()
	if len(todos) != 1 || todos[0].Title != "B's title" {
		t.Fatalf("expected state to show B's title, got %+v", todos)
	}
}

func TestTiebreakLargerUserIDWins(t *testing.T) {
	store := newTestStore(t)
	t0 := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	serverID := "S"

	aReq := syncwire.PushRequest{}
	aReq.Todos.Upserted = []syncwire.PushTodo{upsert(serverID, "", "A's title", rfc3339(t0))}
	if err := store.WithTx(func(tx *sql.Tx) error {
		_, _, err := ApplyPush(tx, "user-A", aReq, t0)
		return err
	}); err != nil {
		t.Fatalf("apply A: %v", err)
	}

	bReq := syncwire.PushRequest{}
	bReq.Todos.Upserted = []syncwire.PushTodo{upsert(serverID, "", "B's title", rfc3339(t0))}
	var conflicts []syncwire.Conflict
	if err := store.WithTx(func(tx *sql.Tx) error {
		var err error
		conflicts, _, err = ApplyPush(tx, "user-B", bReq, t0)
		return err
	}); err != nil {
		t.Fatalf("apply B: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected B (larger userId) to win with no conflicts, got %+v", conflicts)
	}

	todos, _ := store.ListAllTodos()
	if len(todos) != 1 || todos[0].Title != "B's title" {
		t.Fatalf("expected B's title to win tiebreak, got %+v", todos)
	}

	// A repeats the identical-timestamp push; still loses.
	if err := store.WithTx(func(tx *sql.Tx) error {
		conflicts, _, err := ApplyPush(tx, "user-A", aReq, t0)
		if err != nil {
			return err
		}
		if len(conflicts) != 1 {
			t.Fatalf("expected A's repeat push to still lose, got %+v", conflicts)
		}
		return nil
	}); err != nil {
		t.Fatalf("apply A repeat: %v", err)
	}
}

func TestTombstoneOverTombstoneKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	t0 := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	serverID := "S"

	first := syncwire.PushRequest{}
	first.Todos.Deleted = []syncwire.PushDeletion{{ServerID: serverID, DeletedAt: rfc3339(t0)}}
	if err := store.WithTx(func(tx *sql.Tx) error {
		_, _, err := ApplyPush(tx, "user-A", first, t0)
		return err
	}); err != nil {
		t.Fatalf("apply first delete: %v", err)
	}

	older := syncwire.PushRequest{}
	older.Todos.Deleted = []syncwire.PushDeletion{{ServerID: serverID, DeletedAt: rfc3339(t0.Add(-time.Minute))}}
	if err := store.WithTx(func(tx *sql.Tx) error {
		_, _, err := ApplyPush(tx, "user-B", older, t0.Add(time.Minute))
		return err
	}); err != nil {
		t.Fatalf("apply older delete: %v", err)
	}

	tombstones, err := store.ListTombstonesRecordedSince(time.Time{})
	if err != nil {
		t.Fatalf("list tombstones: %v", err)
	}
	if len(tombstones) != 1 {
		t.Fatalf("expected exactly one tombstone, got %d", len(tombstones))
	}
	if !tombstones[0].DeletedAt.Equal(t0) {
		t.Fatalf("expected newest deletedAt %v to be kept, got %v", t0, tombstones[0].DeletedAt)
	}
}

func TestEmptyTagsRoundTripAsEmptySlice(t *testing.T) {
	store := newTestStore(t)
	t0 := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	req := syncwire.PushRequest{}
	req.Todos.Upserted = []syncwire.PushTodo{upsert("S", "", "x", rfc3339(t0))}
	if err := store.WithTx(func(tx *sql.Tx) error {
		_, _, err := ApplyPush(tx, "user-A", req, t0)
		return err
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	todos, _ := store.ListAllTodos()
	if todos[0].Tags == nil || len(todos[0].Tags) != 0 {
		t.Fatalf("expected empty, non-nil tag slice, got %#v", todos[0].Tags)
	}
}
