package clientstate

import "fmt"

// ErrDuplicateMapping is returned when a bind would break the bijection
// between server ids and device-local ids.
type ErrDuplicateMapping struct {
	ServerID string
	LocalID  string
}

func (e *ErrDuplicateMapping) Error() string {
	return fmt.Sprintf("duplicate mapping: serverId=%s localId=%s already bound to a different counterpart", e.ServerID, e.LocalID)
}

// Registry is the bijective mapping between server ids and device-local
// ids (C1). The zero value is not usable; use NewRegistry or the map
// loaded from a persisted snapshot via FromMap.
type Registry struct {
	serverToLocal map[string]string
	localToServer map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		serverToLocal: make(map[string]string),
		localToServer: make(map[string]string),
	}
}

// FromMap rebuilds a registry from a persisted serverId->localId map,
// verifying the bijection invariant (I1) as it goes.
func FromMap(m map[string]string) (*Registry, error) {
	r := NewRegistry()
	for serverID, localID := range m {
		if err := r.Bind(serverID, localID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ToMap returns the serverId->localId map for persistence.
func (r *Registry) ToMap() map[string]string {
	out := make(map[string]string, len(r.serverToLocal))
	for k, v := range r.serverToLocal {
		out[k] = v
	}
	return out
}

// Get returns the local id bound to serverID, if any.
func (r *Registry) Get(serverID string) (string, bool) {
	localID, ok := r.serverToLocal[serverID]
	return localID, ok
}

// Reverse returns the server id bound to localID, if any.
func (r *Registry) Reverse(localID string) (string, bool) {
	serverID, ok := r.localToServer[localID]
	return serverID, ok
}

// Bind establishes serverID <-> localID. It fails with ErrDuplicateMapping
// if either side is already bound to a different counterpart.
func (r *Registry) Bind(serverID, localID string) error {
	if existing, ok := r.serverToLocal[serverID]; ok && existing != localID {
		return &ErrDuplicateMapping{ServerID: serverID, LocalID: localID}
	}
	if existing, ok := r.localToServer[localID]; ok && existing != serverID {
		return &ErrDuplicateMapping{ServerID: serverID, LocalID: localID}
	}
	r.serverToLocal[serverID] = localID
	r.localToServer[localID] = serverID
	return nil
}

// Unbind removes the mapping for serverID, used when a remote deletion has
// no surviving local counterpart.
func (r *Registry) Unbind(serverID string) {
	localID, ok := r.serverToLocal[serverID]
	if !ok {
		return
	}
	delete(r.serverToLocal, serverID)
	delete(r.localToServer, localID)
}

// Len returns the number of bound pairs.
func (r *Registry) Len() int {
	return len(r.serverToLocal)
}
