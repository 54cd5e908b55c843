// Package detect implements the change detector (C3): it diffs a host
// application readout against the prior local snapshot and classifies
// each local id as added, modified, or deleted.
package detect

import (
	"time"

	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/hostapp"
)

// Diff is the outcome of one detection pass: the snapshot records that
// changed and need editedAt stamped, plus the dirty-set deltas to apply.
type Diff struct {
	// Touched maps local id to the record it should now hold in the
	// snapshot (with EditedAt already stamped at `now` for add/modify).
	Touched map[string]clientstate.Record
	// Upserted lists local ids that belong in dirty.upserted.
	Upserted []string
	// Deleted maps server id to the deletion timestamp for local ids that
	// vanished from the host app and had a known server mapping.
	Deleted map[string]time.Time
	// Withdrawn lists server ids that should be removed from
	// dirty.deleted because their local item reappeared in the host app.
	Withdrawn []string
}

// Detect compares the host app readout H against the snapshot's todos and
// registry, per §4.3. snap.ServerIDToLocalID is keyed by server id.
func Detect(h []hostapp.Item, snap *clientstate.Snapshot, now time.Time) Diff {
	diff := Diff{
		Touched: map[string]clientstate.Record{},
		Deleted: map[string]time.Time{},
	}

	localToServer := make(map[string]string, len(snap.ServerIDToLocalID))
	for serverID, localID := range snap.ServerIDToLocalID {
		localToServer[localID] = serverID
	}

	live := make(map[string]hostapp.Item, len(h))
	for _, item := range h {
		live[item.LocalID] = item
	}

	for localID, item := range live {
		existing, known := snap.Todos[localID]
		switch {
		case !known:
			diff.Touched[localID] = clientstate.Record{Fields: item.Fields, EditedAt: now}
			diff.Upserted = append(diff.Upserted, localID)
		case !item.Fields.Equal(existing.Fields):
			diff.Touched[localID] = clientstate.Record{Fields: item.Fields, EditedAt: now}
			diff.Upserted = append(diff.Upserted, localID)
		}

		if serverID, ok := localToServer[localID]; ok {
			if _, pending := snap.Dirty.Deleted[serverID]; pending {
				diff.Withdrawn = append(diff.Withdrawn, serverID)
			}
		}
	}

	for localID := range snap.Todos {
		if _, stillPresent := live[localID]; stillPresent {
			continue
		}
		serverID, ok := localToServer[localID]
		if !ok {
			continue
		}
		if _, already := snap.Dirty.Deleted[serverID]; !already {
			diff.Deleted[serverID] = now
		}
	}

	return diff
}
