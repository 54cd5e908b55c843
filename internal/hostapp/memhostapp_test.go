package hostapp

import (
	"testing"

	"github.com/marcus/todosync/internal/todomodel"
)

func TestMemCreateIsEventuallyConsistent(t *testing.T) {
	m := NewMem()
	m.CreateDelay = 2
	if err := m.Create("proj", todomodel.Fields{Title: "new item"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	items, _ := m.List("proj")
	if len(items) != 0 {
		t.Fatalf("expected item not yet visible, got %d", len(items))
	}
	items, _ = m.List("proj")
	if len(items) != 1 {
		t.Fatalf("expected item visible after delay, got %d", len(items))
	}
	if items[0].Title != "new item" {
		t.Fatalf("unexpected title %q", items[0].Title)
	}
}

func TestMemUpdateUnknownItemErrors(t *testing.T) {
	m := NewMem()
	if err := m.Update("missing", todomodel.Fields{}); err == nil {
		t.Fatalf("expected error updating unknown item")
	}
}

func TestMemDeleteRemovesFromListing(t *testing.T) {
	m := NewMem()
	m.CreateDelay = 1
	_ = m.Create("proj", todomodel.Fields{Title: "x"})
	items, _ := m.List("proj")
	if len(items) != 1 {
		t.Fatalf("expected 1 item")
	}
	m.Delete(items[0].LocalID)
	items, _ = m.List("proj")
	if len(items) != 0 {
		t.Fatalf("expected item removed after delete")
	}
}
