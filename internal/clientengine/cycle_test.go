package clientengine

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcus/todosync/internal/applier"
	"github.com/marcus/todosync/internal/clienttransport"
	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
	"github.com/marcus/todosync/internal/hostapp"
	"github.com/marcus/todosync/internal/httpserver"
	"github.com/marcus/todosync/internal/serverstore"
	"github.com/marcus/todosync/internal/synclock"
	"github.com/marcus/todosync/internal/todomodel"
)

// newTestServerWithToken spins up an in-process sync server and returns
// its httptest URL plus a valid bearer token for it.
func newTestServerWithToken(t *testing.T) (string, string) {
	t.Helper()
	store, err := serverstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	_, token, err := store.CreateUser("device-user")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	s := httpserver.NewServer(httpserver.Config{ListenAddr: ":0"}, store)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv.URL, token
}

func newTestEngineParts(t *testing.T, mem *hostapp.Mem) (*Engine, *clientstate.Store) {
	t.Helper()
	url, token := newTestServerWithToken(t)
	dir := t.TempDir()

	lock := synclock.New(filepath.Join(dir, "sync.lock"))
	store := clientstate.NewStore(filepath.Join(dir, "snapshot.json"))
	log := conflictlog.New(filepath.Join(dir, "conflicts.jsonl"))
	app := applier.New(mem, log, "inbox")
	app.Sleep = func(time.Duration) {}
	transport := clienttransport.New(url, token)

	e := New(lock, store, mem, transport, app, log, "inbox")
	e.Now = func() time.Time { return time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC) }
	return e, store
}

func TestBootstrapCycleWithEmptyHostApp(t *testing.T) {
	mem := hostapp.NewMem()
	e, _ := newTestEngineParts(t, mem)

	result, err := e.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Bootstrapped {
		t.Fatalf("expected bootstrap on first cycle with nothing on either side")
	}
}

func TestCycleDetectsAndPushesNewLocalItem(t *testing.T) {
	mem := hostapp.NewMem()
	mem.Seed("local-1", todomodel.Fields{Title: "write report", Status: todomodel.StatusOpen, Tags: []string{}})
	e, store := newTestEngineParts(t, mem)

	if _, err := e.Run(); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.ServerIDToLocalID) != 1 {
		t.Fatalf("expected the new local item to be bound to a server id, got %+v", snap.ServerIDToLocalID)
	}

	// Second cycle with nothing changed should be a no-op push.
	if _, err := e.Run(); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
}

func TestCycleSkipsWhenLockHeld(t *testing.T) {
	mem := hostapp.NewMem()
	e, _ := newTestEngineParts(t, mem)

	release, err := e.Lock.Acquire()
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	result, err := e.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Skipped {
		t.Fatalf("expected cycle to be skipped while lock is held")
	}
}
