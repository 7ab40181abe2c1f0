// Package registry abstracts the opt-in list: only members present here may
// have their messages sampled.
package registry

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry answers opt-in membership questions for one community.
type Registry interface {
	IsOptedIn(memberID string) bool
	List() []string
}

// Static is a fixed in-memory registry, used by tests and as the snapshot
// type handed to a pipeline run.
type Static struct {
	ids map[string]struct{}
}

func NewStatic(ids ...string) *Static {
	s := &Static{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

func (s *Static) IsOptedIn(memberID string) bool {
	_, ok := s.ids[memberID]
	return ok
}

func (s *Static) List() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// File is a registry backed by a JSON file mapping member ID to an opt-in
// flag. Reads are served from an in-memory copy; Reload swaps it atomically.
type File struct {
	path string

	mu  sync.RWMutex
	ids map[string]struct{}
}

// fileShape accepts either {"id": true, ...} or ["id", ...].
type fileShape struct {
	flags map[string]bool
	list  []string
}

func OpenFile(path string) (*File, error) {
	f := &File{path: path, ids: make(map[string]struct{})}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the backing file. A missing file is treated as an empty
// registry, not an error, so a fresh deployment starts clean.
func (f *File) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.mu.Lock()
			f.ids = make(map[string]struct{})
			f.mu.Unlock()
			return nil
		}
		return errors.Wrap(err, "read opt-in file")
	}

	shape, err := parseFile(data)
	if err != nil {
		return err
	}

	ids := make(map[string]struct{})
	for id, on := range shape.flags {
		if on {
			ids[id] = struct{}{}
		}
	}
	for _, id := range shape.list {
		if id != "" {
			ids[id] = struct{}{}
		}
	}

	f.mu.Lock()
	f.ids = ids
	f.mu.Unlock()
	return nil
}

func parseFile(data []byte) (fileShape, error) {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err == nil {
		return fileShape{flags: flags}, nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return fileShape{list: list}, nil
	}
	return fileShape{}, errors.New("opt-in file: expected object of booleans or array of ids")
}

func (f *File) IsOptedIn(memberID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ids[memberID]
	return ok
}

func (f *File) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Snapshot freezes the current membership into a Static registry so a
// pipeline run sees one consistent view even if the file changes mid-run.
func (f *File) Snapshot() *Static {
	return NewStatic(f.List()...)
}
