package detect

import (
	"testing"
	"time"

	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/hostapp"
	"github.com/marcus/todosync/internal/todomodel"
)

var fixedNow = time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)

func emptySnapshot() *clientstate.Snapshot {
	return &clientstate.Snapshot{
		Todos:             map[string]clientstate.Record{},
		ServerIDToLocalID: map[string]string{},
		Dirty:             clientstate.NewDirty(),
	}
}

func TestDetectAddedItemIsUpserted(t *testing.T) {
	snap := emptySnapshot()
	h := []hostapp.Item{
		{LocalID: "local-1", Fields: todomodel.Fields{Title: "write report", Status: todomodel.StatusOpen}},
	}

	diff := Detect(h, snap, fixedNow)

	if len(diff.Upserted) != 1 || diff.Upserted[0] != "local-1" {
		t.Fatalf("expected local-1 upserted, got %+v", diff.Upserted)
	}
	rec, ok := diff.Touched["local-1"]
	if !ok {
		t.Fatalf("expected local-1 touched")
	}
	if rec.Title != "write report" || !rec.EditedAt.Equal(fixedNow) {
		t.Fatalf("unexpected touched record %+v", rec)
	}
	if len(diff.Deleted) != 0 || len(diff.Withdrawn) != 0 {
		t.Fatalf("expected no deletions or withdrawals for a pure add")
	}
}

func TestDetectModifyPerField(t *testing.T) {
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	newDue := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	base := todomodel.Fields{
		Title:    "draft",
		Notes:    "first pass",
		Status:   todomodel.StatusOpen,
		Tags:     []string{"work"},
		Position: 0,
		DueDate:  &due,
	}

	cases := []struct {
		name   string
		mutate func(f todomodel.Fields) todomodel.Fields
	}{
		{"title", func(f todomodel.Fields) todomodel.Fields { f.Title = "final draft"; return f }},
		{"notes", func(f todomodel.Fields) todomodel.Fields { f.Notes = "second pass"; return f }},
		{"status", func(f todomodel.Fields) todomodel.Fields { f.Status = todomodel.StatusCompleted; return f }},
		{"tags", func(f todomodel.Fields) todomodel.Fields { f.Tags = []string{"urgent"}; return f }},
		{"position", func(f todomodel.Fields) todomodel.Fields { f.Position = 3; return f }},
		{"dueDate", func(f todomodel.Fields) todomodel.Fields { f.DueDate = &newDue; return f }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snap := emptySnapshot()
			snap.Todos["local-1"] = clientstate.Record{Fields: base, EditedAt: fixedNow.Add(-time.Hour)}

			changed := c.mutate(base)
			h := []hostapp.Item{{LocalID: "local-1", Fields: changed}}

			diff := Detect(h, snap, fixedNow)

			if len(diff.Upserted) != 1 || diff.Upserted[0] != "local-1" {
				t.Fatalf("expected local-1 upserted on %s change, got %+v", c.name, diff.Upserted)
			}
			rec, ok := diff.Touched["local-1"]
			if !ok {
				t.Fatalf("expected local-1 touched on %s change", c.name)
			}
			if !rec.EditedAt.Equal(fixedNow) {
				t.Fatalf("expected EditedAt stamped to now, got %v", rec.EditedAt)
			}
		})
	}
}

func TestDetectUnchangedItemIsNotTouched(t *testing.T) {
	snap := emptySnapshot()
	fields := todomodel.Fields{Title: "draft", Status: todomodel.StatusOpen, Tags: []string{"work"}}
	snap.Todos["local-1"] = clientstate.Record{Fields: fields, EditedAt: fixedNow.Add(-time.Hour)}

	h := []hostapp.Item{{LocalID: "local-1", Fields: fields}}
	diff := Detect(h, snap, fixedNow)

	if len(diff.Upserted) != 0 {
		t.Fatalf("expected no upserts for an unchanged item, got %+v", diff.Upserted)
	}
	if _, touched := diff.Touched["local-1"]; touched {
		t.Fatalf("expected local-1 not touched when unchanged")
	}
}

func TestDetectDeleteWithServerMappingIsRecorded(t *testing.T) {
	snap := emptySnapshot()
	snap.Todos["local-1"] = clientstate.Record{Fields: todomodel.Fields{Title: "gone"}, EditedAt: fixedNow.Add(-time.Hour)}
	snap.ServerIDToLocalID["server-1"] = "local-1"

	diff := Detect(nil, snap, fixedNow)

	deletedAt, ok := diff.Deleted["server-1"]
	if !ok {
		t.Fatalf("expected server-1 recorded as deleted, got %+v", diff.Deleted)
	}
	if !deletedAt.Equal(fixedNow) {
		t.Fatalf("expected deletion timestamp %v, got %v", fixedNow, deletedAt)
	}
}

func TestDetectDeleteWithoutServerMappingIsIgnored(t *testing.T) {
	snap := emptySnapshot()
	snap.Todos["local-1"] = clientstate.Record{Fields: todomodel.Fields{Title: "never pushed"}, EditedAt: fixedNow.Add(-time.Hour)}
	// No entry in ServerIDToLocalID for local-1: it never reached the server.

	diff := Detect(nil, snap, fixedNow)

	if len(diff.Deleted) != 0 {
		t.Fatalf("expected no deletion recorded for an item with no server mapping, got %+v", diff.Deleted)
	}
}

func TestDetectAlreadyPendingDeleteIsNotReRecorded(t *testing.T) {
	snap := emptySnapshot()
	snap.Todos["local-1"] = clientstate.Record{Fields: todomodel.Fields{Title: "gone"}, EditedAt: fixedNow.Add(-time.Hour)}
	snap.ServerIDToLocalID["server-1"] = "local-1"
	earlier := fixedNow.Add(-time.Minute)
	snap.Dirty.Deleted["server-1"] = earlier

	diff := Detect(nil, snap, fixedNow)

	if len(diff.Deleted) != 0 {
		t.Fatalf("expected no new deletion entry for an already-pending delete, got %+v", diff.Deleted)
	}
}

func TestDetectWithdrawnResurrection(t *testing.T) {
	snap := emptySnapshot()
	fields := todomodel.Fields{Title: "back again", Status: todomodel.StatusOpen}
	snap.Todos["local-1"] = clientstate.Record{Fields: fields, EditedAt: fixedNow.Add(-time.Hour)}
	snap.ServerIDToLocalID["server-1"] = "local-1"
	snap.Dirty.Deleted["server-1"] = fixedNow.Add(-time.Minute)

	h := []hostapp.Item{{LocalID: "local-1", Fields: fields}}
	diff := Detect(h, snap, fixedNow)

	if len(diff.Withdrawn) != 1 || diff.Withdrawn[0] != "server-1" {
		t.Fatalf("expected server-1 withdrawn, got %+v", diff.Withdrawn)
	}
	if len(diff.Deleted) != 0 {
		t.Fatalf("expected no new deletion recorded for a resurrected item, got %+v", diff.Deleted)
	}
}
