// Package clientengine wires the client-side components (C1-C7) into
// the single sync cycle algorithm (§4.9): acquire lock, load snapshot,
// detect changes, push, pull, apply, persist, release.
package clientengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/marcus/todosync/internal/applier"
	"github.com/marcus/todosync/internal/clienttransport"
	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
	"github.com/marcus/todosync/internal/detect"
	"github.com/marcus/todosync/internal/hostapp"
	"github.com/marcus/todosync/internal/synclock"
	"github.com/marcus/todosync/internal/syncwire"
	"github.com/marcus/todosync/internal/todomodel"
)

// Engine holds every component a sync cycle needs.
type Engine struct {
	Lock        *synclock.Lock
	Store       *clientstate.Store
	Adapter     hostapp.Adapter
	Transport   *clienttransport.Client
	Applier     *applier.Applier
	Log         *conflictlog.Log
	ProjectName string

	// Now returns the current time, overridable in tests.
	Now func() time.Time
}

// New wires a ready-to-run Engine from its components.
func New(lock *synclock.Lock, store *clientstate.Store, adapter hostapp.Adapter, transport *clienttransport.Client, app *applier.Applier, log *conflictlog.Log, projectName string) *Engine {
	return &Engine{
		Lock: lock, Store: store, Adapter: adapter, Transport: transport,
		Applier: app, Log: log, ProjectName: projectName, Now: time.Now,
	}
}

// Result summarizes the outcome of one cycle.
type Result struct {
	Skipped      bool
	Bootstrapped bool
	Conflicts    []syncwire.Conflict
}

// Run executes exactly one sync cycle (§4.9, steps 1-10).
func (e *Engine) Run() (Result, error) {
	release, err := e.Lock.Acquire()
	if err != nil {
		if errors.Is(err, synclock.ErrSkipped) {
			return Result{Skipped: true}, nil
		}
		return Result{}, fmt.Errorf("acquire sync lock: %w", err)
	}
	defer release()

	snap, err := e.Store.Load()
	if err != nil {
		return Result{}, fmt.Errorf("load snapshot: %w", err)
	}
	if err := e.Store.Backup(); err != nil {
		return Result{}, fmt.Errorf("backup snapshot: %w", err)
	}

	items, err := e.Adapter.List(e.ProjectName)
	if err != nil {
		return Result{}, fmt.Errorf("read host app: %w", err)
	}
	stampPositions(items)

	now := e.Now()
	diff := detect.Detect(items, snap, now)
	for localID, rec := range diff.Touched {
		snap.Todos[localID] = rec
	}
	for serverID, deletedAt := range diff.Deleted {
		if _, already := snap.Dirty.Deleted[serverID]; !already {
			snap.Dirty.Deleted[serverID] = deletedAt
		}
	}
	for _, serverID := range diff.Withdrawn {
		delete(snap.Dirty.Deleted, serverID)
	}
	snap.Dirty.Upserted = dedupe(append(snap.Dirty.Upserted, diff.Upserted...))

	registry, err := clientstate.FromMap(snap.ServerIDToLocalID)
	if err != nil {
		return Result{}, fmt.Errorf("rebuild registry: %w", err)
	}

	req := buildPushRequest(snap, registry)
	var conflicts []syncwire.Conflict
	if len(req.Todos.Upserted) > 0 || len(req.Todos.Deleted) > 0 {
		resp, err := e.Transport.Push(req)
		if err != nil {
			return Result{}, fmt.Errorf("push: %w", err)
		}
		for _, m := range resp.Mappings {
			if err := registry.Bind(m.ServerID, m.ClientID); err != nil {
				return Result{}, fmt.Errorf("bind pushed mapping: %w", err)
			}
		}
		for _, c := range resp.Conflicts {
			if err := e.Log.AppendAt(conflictEntry(c), now); err != nil {
				return Result{}, fmt.Errorf("log conflict: %w", err)
			}
		}
		conflicts = resp.Conflicts
		snap.Dirty = clientstate.NewDirty()
	}

	bootstrap := len(snap.Todos) == 0 && registry.Len() == 0 && len(items) == 0
	var delta syncwire.DeltaTodos
	var syncedAt string
	if bootstrap {
		state, err := e.Transport.State()
		if err != nil {
			return Result{}, fmt.Errorf("bootstrap state: %w", err)
		}
		delta = syncwire.DeltaTodos{Upserted: state.Todos}
		syncedAt = state.SyncedAt
	} else {
		dr, err := e.Transport.Delta(snap.LastSyncedAt)
		if err != nil {
			return Result{}, fmt.Errorf("delta: %w", err)
		}
		delta = dr.Todos
		syncedAt = dr.SyncedAt
	}

	if err := e.Applier.Apply(registry, snap, delta, now); err != nil {
		return Result{}, fmt.Errorf("apply delta: %w", err)
	}

	syncedAtTime, err := time.Parse(time.RFC3339, syncedAt)
	if err != nil {
		return Result{}, fmt.Errorf("parse syncedAt: %w", err)
	}
	snap.LastSyncedAt = syncedAtTime
	snap.ServerIDToLocalID = registry.ToMap()

	if err := e.Store.Save(snap); err != nil {
		return Result{}, fmt.Errorf("persist snapshot: %w", err)
	}

	return Result{Bootstrapped: bootstrap, Conflicts: conflicts}, nil
}

// stampPositions sets each item's Position from its index in the host
// app's readout order, per the Adapter.List contract: the adapter
// returns items in readout order, and the caller derives Position from
// that order rather than the adapter setting it itself.
func stampPositions(items []hostapp.Item) {
	for i := range items {
		items[i].Position = i
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func buildPushRequest(snap *clientstate.Snapshot, registry *clientstate.Registry) syncwire.PushRequest {
	var req syncwire.PushRequest
	req.LastSyncedAt = snap.LastSyncedAt.UTC().Format(time.RFC3339Nano)

	for _, localID := range snap.Dirty.Upserted {
		rec, ok := snap.Todos[localID]
		if !ok {
			continue
		}
		req.Todos.Upserted = append(req.Todos.Upserted, toPushTodo(localID, rec, registry))
	}
	for serverID, deletedAt := range snap.Dirty.Deleted {
		req.Todos.Deleted = append(req.Todos.Deleted, syncwire.PushDeletion{
			ServerID:  serverID,
			DeletedAt: deletedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return req
}

func toPushTodo(localID string, rec clientstate.Record, registry *clientstate.Registry) syncwire.PushTodo {
	pt := syncwire.PushTodo{
		Title:    rec.Title,
		Notes:    rec.Notes,
		Tags:     todomodel.NormalizeTags(rec.Tags),
		Status:   rec.Status,
		Position: rec.Position,
		EditedAt: rec.EditedAt.UTC().Format(time.RFC3339Nano),
	}
	if rec.DueDate != nil {
		s := rec.DueDate.UTC().Format(time.RFC3339Nano)
		pt.DueDate = &s
	}
	if serverID, ok := registry.Reverse(localID); ok {
		pt.ServerID = serverID
	} else {
		pt.ClientID = localID
	}
	return pt
}

func conflictEntry(c syncwire.Conflict) conflictlog.Entry {
	kind := conflictlog.KindRemoteEditNewer
	if c.Reason == syncwire.ReasonRemoteDeleteNewer {
		kind = conflictlog.KindRemoteDeleteNewer
	}
	return conflictlog.Entry{
		Kind:     kind,
		ServerID: c.ServerID,
		Reason:   c.Reason,
	}
}
