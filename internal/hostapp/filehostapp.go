package hostapp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marcus/todosync/internal/todomodel"
)

// File is a JSON-file-backed Adapter: a minimal stand-in host task
// application for users who don't have a richer one wired up, storing
// one project's items as an ordered JSON array at path. Writes are
// atomic (temp file + fsync + rename), matching clientstate.Store's
// crash-safe discipline.
type File struct {
	path string
	mu   sync.Mutex
}

type fileItem struct {
	LocalID string `json:"localId"`
	todomodel.Fields
}

// NewFile returns a File adapter backed by the JSON document at path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) load() ([]fileItem, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read host app file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []fileItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse host app file: %w", err)
	}
	return items, nil
}

func (f *File) save(items []fileItem) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create host app dir: %w", err)
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal host app file: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp-%d", f.path, os.Getpid())
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create host app temp file: %w", err)
	}
	_, werr := out.Write(data)
	if werr == nil {
		werr = out.Sync()
	}
	if cerr := out.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmp)
		return fmt.Errorf("write host app temp file: %w", werr)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename host app file into place: %w", err)
	}
	return nil
}

func (f *File) nextID(items []fileItem) string {
	max := 0
	for _, it := range items {
		var n int
		if _, err := fmt.Sscanf(it.LocalID, "item-%d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("item-%d", max+1)
}

// List returns every item in the file, ignoring projectName (a File
// adapter holds exactly one project's worth of items).
func (f *File) List(projectName string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return nil, err
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = Item{LocalID: it.LocalID, Fields: it.Fields}
	}
	return out, nil
}

// Create appends a new item with a freshly allocated local id.
func (f *File) Create(projectName string, fields todomodel.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	items = append(items, fileItem{LocalID: f.nextID(items), Fields: fields})
	return f.save(items)
}

// Update overwrites the fields of the item addressed by localID.
func (f *File) Update(localID string, fields todomodel.Fields) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, err := f.load()
	if err != nil {
		return err
	}
	for i, it := range items {
		if it.LocalID == localID {
			items[i].Fields = fields
			return f.save(items)
		}
	}
	return fmt.Errorf("update host app item: no item with local id %q", localID)
}
