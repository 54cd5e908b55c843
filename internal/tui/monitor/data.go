package monitor

import (
	"time"

	"github.com/marcus/todosync/internal/clientstate"
	"github.com/marcus/todosync/internal/conflictlog"
)

// FetchData loads the current snapshot and conflict log for display.
func FetchData(store *clientstate.Store, log *conflictlog.Log) RefreshDataMsg {
	msg := RefreshDataMsg{Timestamp: time.Now()}

	snap, err := store.Load()
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Snapshot = snap

	entries, err := log.ReadAll()
	if err != nil {
		msg.Err = err
		return msg
	}
	// Most recent first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	msg.Conflicts = entries

	return msg
}
