// Package hostapp defines the capability contract the sync core requires
// of the host task application: list, create, update. The core treats
// the host application as an opaque provider with possibly
// eventually-consistent creates; it cannot programmatically delete.
package hostapp

import "github.com/marcus/todosync/internal/todomodel"

// Item is one row of the host app's current readout, tagged with the
// device-local id the core uses to correlate it across cycles.
type Item struct {
	LocalID string
	todomodel.Fields
}

// Adapter is the capability set the sync core depends on. A real
// implementation binds to a specific host task application; tests use
// the in-memory fake in this package.
type Adapter interface {
	// List returns the current readout for the named project, in the
	// host app's current ordering (Position is derived from that order
	// by the caller, not by the adapter).
	List(projectName string) ([]Item, error)
	// Create adds a new item and returns nothing: the host app may take
	// effect asynchronously, so the caller must re-List and match by
	// title to discover the assigned local id.
	Create(projectName string, fields todomodel.Fields) error
	// Update overwrites the fields of an existing item addressed by
	// local id.
	Update(localID string, fields todomodel.Fields) error
}
