package hostapp

import (
	"fmt"
	"sync"

	"github.com/marcus/todosync/internal/todomodel"
)

// Mem is an in-memory Adapter used by tests to stand in for the
// out-of-scope host task application. Create is eventually consistent by
// design: it queues the item and only surfaces it on the CreateDelay'th
// subsequent List call, so tests can exercise the applier's retry path.
type Mem struct {
	mu          sync.Mutex
	seq         int
	items       map[string]todomodel.Fields
	order       []string
	pending     []pendingCreate
	CreateDelay int // number of List calls before a pending create becomes visible
}

type pendingCreate struct {
	fields    todomodel.Fields
	callsLeft int
}

// NewMem returns an empty in-memory host app.
func NewMem() *Mem {
	return &Mem{items: map[string]todomodel.Fields{}}
}

// Seed inserts an item directly under localID, bypassing the
// eventually-consistent create path. Used by tests to set up
// pre-existing host app state.
func (m *Mem) Seed(localID string, fields todomodel.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string]todomodel.Fields{}
	}
	if _, exists := m.items[localID]; !exists {
		m.order = append(m.order, localID)
	}
	m.items[localID] = fields
}

func (m *Mem) nextID() string {
	m.seq++
	return fmt.Sprintf("host-%d", m.seq)
}

func (m *Mem) List(projectName string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string]todomodel.Fields{}
	}

	var stillPending []pendingCreate
	for _, p := range m.pending {
		p.callsLeft--
		if p.callsLeft <= 0 {
			id := m.nextID()
			m.items[id] = p.fields
			m.order = append(m.order, id)
		} else {
			stillPending = append(stillPending, p)
		}
	}
	m.pending = stillPending

	out := make([]Item, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, Item{LocalID: id, Fields: m.items[id]})
	}
	return out, nil
}

func (m *Mem) Create(projectName string, fields todomodel.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delay := m.CreateDelay
	if delay < 1 {
		delay = 1
	}
	m.pending = append(m.pending, pendingCreate{fields: fields, callsLeft: delay})
	return nil
}

func (m *Mem) Update(localID string, fields todomodel.Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[localID]; !ok {
		return fmt.Errorf("update: no such item %s", localID)
	}
	m.items[localID] = fields
	return nil
}

// Delete removes an item directly, simulating a local deletion performed
// by the user through the host app's own UI (the core itself never calls
// this — it cannot programmatically delete).
func (m *Mem) Delete(localID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, localID)
	for i, id := range m.order {
		if id == localID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}
