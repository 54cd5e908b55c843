// Package todomodel defines the shared todo record shape used by both
// halves of the sync engine: the server's authoritative store and the
// client's local snapshot.
package todomodel

import (
	"sort"
	"time"
)

// Status is the lifecycle state of a todo.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusCompleted, StatusCanceled:
		return true
	default:
		return false
	}
}

// Fields holds the mutable, mergeable content of a todo. It is shared by
// the server record, the client snapshot record, and the wire payloads so
// that the "which fields does an edit touch" question has one definition.
type Fields struct {
	Title    string     `json:"title"`
	Notes    string     `json:"notes"`
	DueDate  *time.Time `json:"dueDate"`
	Tags     []string   `json:"tags"`
	Status   Status     `json:"status"`
	Position int        `json:"position"`
}

// Equal reports whether two Fields describe the same content. Tag sets
// compare order-insensitively; everything else compares by value.
func (f Fields) Equal(o Fields) bool {
	if f.Title != o.Title || f.Notes != o.Notes || f.Status != o.Status || f.Position != o.Position {
		return false
	}
	if !dueDateEqual(f.DueDate, o.DueDate) {
		return false
	}
	return tagsEqual(f.Tags, o.Tags)
}

func dueDateEqual(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Equal(*b)
}

// tagsEqual compares two tag sets ignoring order. Duplicate tags are
// treated as the same element, matching the data model's "set" wording.
func tagsEqual(a, b []string) bool {
	if len(a) != len(b) {
		// A duplicate-free comparison still needs equal cardinality once
		// deduplicated; fall through to the full set comparison below.
	}
	sa := dedupeSorted(a)
	sb := dedupeSorted(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func dedupeSorted(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeTags returns a non-nil copy of tags, so that an empty tag list
// round-trips as [] rather than null in JSON.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// Todo is the server-visible record described in the data model.
type Todo struct {
	ID        string `json:"id"`
	Fields
	EditedAt  time.Time `json:"editedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy"`
}

// Tombstone records that a server id was deleted.
type Tombstone struct {
	ServerID   string    `json:"serverId"`
	DeletedAt  time.Time `json:"deletedAt"`
	RecordedAt time.Time `json:"recordedAt"`
	DeletedBy  string    `json:"deletedBy"`
}
