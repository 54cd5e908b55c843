// Package syncwire defines the JSON wire shapes shared by the client
// transport and the HTTP server, matching §6 of the sync protocol
// exactly. Both sides import this package so the shapes cannot drift.
package syncwire

import "github.com/marcus/todosync/internal/todomodel"

// PushTodo is one upserted todo in a push request.
type PushTodo struct {
	ServerID string            `json:"serverId,omitempty"`
	ClientID string            `json:"clientId,omitempty"`
	Title    string            `json:"title"`
	Notes    string            `json:"notes"`
	DueDate  *string           `json:"dueDate"`
	Tags     []string          `json:"tags"`
	Status   todomodel.Status  `json:"status"`
	Position int               `json:"position"`
	EditedAt string            `json:"editedAt"`
}

// PushDeletion is one tombstone entry in a push request.
type PushDeletion struct {
	ServerID  string `json:"serverId"`
	DeletedAt string `json:"deletedAt"`
}

// PushRequest is the body of POST /push.
type PushRequest struct {
	Todos struct {
		Upserted []PushTodo     `json:"upserted"`
		Deleted  []PushDeletion `json:"deleted"`
	} `json:"todos"`
	LastSyncedAt string `json:"lastSyncedAt"`
}

// WireTodo is a server todo as it appears on the wire.
type WireTodo struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Notes     string           `json:"notes"`
	DueDate   *string          `json:"dueDate"`
	Tags      []string         `json:"tags"`
	Status    todomodel.Status `json:"status"`
	Position  int              `json:"position"`
	EditedAt  string           `json:"editedAt"`
	UpdatedAt string           `json:"updatedAt"`
	CreatedBy string           `json:"createdBy"`
	UpdatedBy string           `json:"updatedBy"`
}

// WireTombstone is a tombstone as it appears in a delta response.
type WireTombstone struct {
	ServerID  string `json:"serverId"`
	DeletedAt string `json:"deletedAt"`
}

// Conflict is one rejection reported back to the pushing client.
type Conflict struct {
	ServerID        string    `json:"serverId"`
	Reason          string    `json:"reason"`
	ServerTodo      *WireTodo `json:"serverTodo"`
	ClientTodo      *PushTodo `json:"clientTodo,omitempty"`
	ClientDeletedAt string    `json:"clientDeletedAt,omitempty"`
}

// Mapping binds a client-supplied clientId to the server-assigned id.
type Mapping struct {
	ServerID string `json:"serverId"`
	ClientID string `json:"clientId"`
}

// State is the body of GET /state and the "state" field of a push
// response.
type State struct {
	Todos    []WireTodo `json:"todos"`
	SyncedAt string     `json:"syncedAt"`
}

// PushResponse is the body of POST /push.
type PushResponse struct {
	State     State      `json:"state"`
	Conflicts []Conflict `json:"conflicts"`
	Mappings  []Mapping  `json:"mappings,omitempty"`
}

// DeltaTodos is the "todos" field of a delta response.
type DeltaTodos struct {
	Upserted []WireTodo      `json:"upserted"`
	Deleted  []WireTombstone `json:"deleted"`
}

// DeltaResponse is the body of GET /delta.
type DeltaResponse struct {
	Todos    DeltaTodos `json:"todos"`
	SyncedAt string     `json:"syncedAt"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ResetResponse is the body of DELETE /reset.
type ResetResponse struct {
	Success bool `json:"success"`
	Deleted struct {
		Todos int `json:"todos"`
	} `json:"deleted"`
}

const (
	ReasonRemoteEditNewer   = "Remote edit was newer"
	ReasonRemoteDeleteNewer = "Remote delete was newer"
)

const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeSyncConflict  = "SYNC_CONFLICT"
	CodeInternalError = "INTERNAL_ERROR"
)
