// Package applier implements the remote applier (C6): applying a
// server delta to the host app, binding newly created items back into
// the identifier registry, and recording delete-vs-edit conflicts.
package applier

import (
	"fmt"
	"time"

	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
	"github.com/marcus/todosync/internal/hostapp"
	"github.com/marcus/todosync/internal/syncwire"
	"github.com/marcus/todosync/internal/todomodel"
)

const (
	maxCreateRetries  = 3
	createRetryDelay  = 500 * time.Millisecond
)

// Applier applies a server delta against one host app project.
type Applier struct {
	Adapter     hostapp.Adapter
	Log         *conflictlog.Log
	ProjectName string

	// Sleep is the retry backoff function, overridable in tests.
	Sleep func(time.Duration)
}

// New returns an Applier targeting projectName through adapter, logging
// conflicts to log.
func New(adapter hostapp.Adapter, log *conflictlog.Log, projectName string) *Applier {
	return &Applier{
		Adapter:     adapter,
		Log:         log,
		ProjectName: projectName,
		Sleep:       time.Sleep,
	}
}

// Apply applies delta to the host app, mutating registry and snap in
// place (§4.6). now is used to stamp conflict log entries.
func (a *Applier) Apply(registry *clientstate.Registry, snap *clientstate.Snapshot, delta syncwire.DeltaTodos, now time.Time) error {
	for _, remote := range delta.Upserted {
		if err := a.applyUpsert(registry, snap, remote, now); err != nil {
			return fmt.Errorf("apply upsert %s: %w", remote.ID, err)
		}
	}
	for _, tomb := range delta.Deleted {
		if err := a.applyTombstone(registry, snap, tomb, now); err != nil {
			return fmt.Errorf("apply tombstone %s: %w", tomb.ServerID, err)
		}
	}
	return nil
}

func fieldsFromWire(t syncwire.WireTodo) (todomodel.Fields, error) {
	f := todomodel.Fields{
		Title:    t.Title,
		Notes:    t.Notes,
		Tags:     todomodel.NormalizeTags(t.Tags),
		Status:   t.Status,
		Position: t.Position,
	}
	if t.DueDate != nil {
		d, err := time.Parse(time.RFC3339, *t.DueDate)
		if err != nil {
			return todomodel.Fields{}, fmt.Errorf("parse dueDate: %w", err)
		}
		f.DueDate = &d
	}
	return f, nil
}

func (a *Applier) applyUpsert(registry *clientstate.Registry, snap *clientstate.Snapshot, remote syncwire.WireTodo, now time.Time) error {
	fields, err := fieldsFromWire(remote)
	if err != nil {
		return err
	}
	editedAt, err := time.Parse(time.RFC3339, remote.EditedAt)
	if err != nil {
		return fmt.Errorf("parse editedAt: %w", err)
	}

	localID, known := registry.Get(remote.ID)
	if known {
		if err := a.Adapter.Update(localID, fields); err != nil {
			return fmt.Errorf("update host app item: %w", err)
		}
		snap.Todos[localID] = clientstate.Record{Fields: fields, EditedAt: editedAt}
		return nil
	}

	return a.createAndBind(registry, snap, remote, fields, editedAt, now)
}

func (a *Applier) createAndBind(registry *clientstate.Registry, snap *clientstate.Snapshot, remote syncwire.WireTodo, fields todomodel.Fields, editedAt, now time.Time) error {
	before, err := a.Adapter.List(a.ProjectName)
	if err != nil {
		return fmt.Errorf("list before create: %w", err)
	}
	beforeSet := make(map[string]bool, len(before))
	for _, item := range before {
		beforeSet[item.LocalID] = true
	}

	if err := a.Adapter.Create(a.ProjectName, fields); err != nil {
		return fmt.Errorf("create host app item: %w", err)
	}

	var candidates []hostapp.Item
	for attempt := 0; attempt < maxCreateRetries; attempt++ {
		a.Sleep(createRetryDelay)

		after, err := a.Adapter.List(a.ProjectName)
		if err != nil {
			return fmt.Errorf("list after create: %w", err)
		}
		candidates = candidates[:0]
		for _, item := range after {
			if beforeSet[item.LocalID] {
				continue
			}
			if item.Fields.Title == remote.Title {
				candidates = append(candidates, item)
			}
		}
		if len(candidates) > 0 {
			break
		}
	}

	switch len(candidates) {
	case 0:
		return a.Log.AppendAt(conflictlog.Entry{
			Kind:     conflictlog.KindOrphanCreate,
			ServerID: remote.ID,
			Detail:   fmt.Sprintf("created item %q not located after %d retries", remote.Title, maxCreateRetries),
		}, now)
	case 1:
		newLocalID := candidates[0].LocalID
		if err := registry.Bind(remote.ID, newLocalID); err != nil {
			return err
		}
		if fields.Status != todomodel.StatusOpen {
			if err := a.Adapter.Update(newLocalID, fields); err != nil {
				return fmt.Errorf("update new item status: %w", err)
			}
		}
		snap.Todos[newLocalID] = clientstate.Record{Fields: fields, EditedAt: editedAt}
		return nil
	default:
		return a.Log.AppendAt(conflictlog.Entry{
			Kind:     conflictlog.KindAmbiguousCreate,
			ServerID: remote.ID,
			Detail:   fmt.Sprintf("%d candidates matched title %q", len(candidates), remote.Title),
		}, now)
	}
}

func (a *Applier) applyTombstone(registry *clientstate.Registry, snap *clientstate.Snapshot, tomb syncwire.WireTombstone, now time.Time) error {
	localID, ok := registry.Get(tomb.ServerID)
	if !ok {
		return nil
	}

	items, err := a.Adapter.List(a.ProjectName)
	if err != nil {
		return fmt.Errorf("list for tombstone check: %w", err)
	}
	stillPresent := false
	for _, item := range items {
		if item.LocalID == localID {
			stillPresent = true
			break
		}
	}
	if !stillPresent {
		registry.Unbind(tomb.ServerID)
		delete(snap.Todos, localID)
		return nil
	}

	deletedAt, err := time.Parse(time.RFC3339, tomb.DeletedAt)
	if err != nil {
		return fmt.Errorf("parse deletedAt: %w", err)
	}

	record, ok := snap.Todos[localID]
	if ok && record.EditedAt.After(deletedAt) {
		return a.Log.AppendAt(conflictlog.Entry{
			Kind:     conflictlog.KindDeleteVsLocalEdit,
			ServerID: tomb.ServerID,
			LocalID:  localID,
			Detail:   "local edit is newer than the remote delete; host app item retained",
		}, now)
	}

	if err := a.Log.AppendAt(conflictlog.Entry{
		Kind:     conflictlog.KindDeleteAcknowledged,
		ServerID: tomb.ServerID,
		LocalID:  localID,
		Detail:   "device-side removal deferred to the user",
	}, now); err != nil {
		return err
	}
	registry.Unbind(tomb.ServerID)
	delete(snap.Todos, localID)
	return nil
}
