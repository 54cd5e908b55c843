package monitor

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
)

func TestFetchDataEmptyState(t *testing.T) {
	dir := t.TempDir()
	store := clientstate.NewStore(filepath.Join(dir, "snapshot.json"))
	log := conflictlog.New(filepath.Join(dir, "conflicts.json"))

	msg := FetchData(store, log)
	if msg.Err != nil {
		t.Fatalf("unexpected error: %v", msg.Err)
	}
	if msg.Snapshot == nil {
		t.Fatalf("expected a snapshot even when nothing persisted yet")
	}
	if len(msg.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(msg.Conflicts))
	}
}

func TestFetchDataOrdersConflictsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store := clientstate.NewStore(filepath.Join(dir, "snapshot.json"))
	log := conflictlog.New(filepath.Join(dir, "conflicts.json"))

	base := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	if err := log.AppendAt(conflictlog.Entry{Kind: conflictlog.KindOrphanCreate, ServerID: "s1"}, base); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.AppendAt(conflictlog.Entry{Kind: conflictlog.KindRemoteEditNewer, ServerID: "s2"}, base.Add(time.Minute)); err != nil {
		t.Fatalf("append: %v", err)
	}

	msg := FetchData(store, log)
	if len(msg.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(msg.Conflicts))
	}
	if msg.Conflicts[0].ServerID != "s2" {
		t.Fatalf("expected newest entry first, got %+v", msg.Conflicts[0])
	}
}

func TestUpdateHandlesRefreshAndQuit(t *testing.T) {
	m := NewModel(nil, nil, time.Second)

	snap := clientstate.NewSnapshot()
	updated, _ := m.Update(RefreshDataMsg{Snapshot: snap, Timestamp: time.Now()})
	um := updated.(Model)
	if um.Snapshot != snap {
		t.Fatalf("expected snapshot to be stored on the model")
	}

	_, cmd := um.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected a quit command from 'q'")
	}
}

func TestUpdateScrollBounds(t *testing.T) {
	m := NewModel(nil, nil, time.Second)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	um := updated.(Model)
	if um.ScrollOffset != 0 {
		t.Fatalf("expected scroll offset to stay at 0, got %d", um.ScrollOffset)
	}

	updated, _ = um.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	um = updated.(Model)
	if um.ScrollOffset != 1 {
		t.Fatalf("expected scroll offset 1, got %d", um.ScrollOffset)
	}
}
