// Package registry keeps the durable set of broadcast destinations
// (Telegram chat ids).
//
// Semantics:
//   - Load never fails the caller: missing or corrupt storage yields an
//     empty set, and the registry self-heals via later membership events.
//   - Register/Unregister persist synchronously before returning, so a
//     crash right after a mutation loses at most that one mutation.
//   - The persisted form is a sorted JSON array for reproducible diffs.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	logx "remindbot/pkg/logx"
)

// Registry is the only shared mutable resource in the bot. One mutex
// serializes the in-memory set and its persistence, so a registration
// racing a broadcast observes a consistent snapshot.
type Registry struct {
	mu   sync.Mutex
	path string
	ids  map[int64]struct{}
	log  logx.Logger
}

// Load reads the registry file at path. Read or parse errors are logged and
// swallowed: the result is an empty, usable registry.
func Load(path string, log logx.Logger) *Registry {
	r := &Registry{path: path, ids: map[int64]struct{}{}, log: log}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("registry read failed; starting empty", logx.String("path", path), logx.Err(err))
		}
		return r
	}
	var ids []int64
	if err := json.Unmarshal(b, &ids); err != nil {
		log.Warn("registry corrupt; starting empty", logx.String("path", path), logx.Err(err))
		return r
	}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	log.Info("registry loaded", logx.Int("destinations", len(r.ids)))
	return r
}

// Register adds id and persists. Idempotent: an already-present id is a
// no-op with no re-persist.
func (r *Registry) Register(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return
	}
	r.ids[id] = struct{}{}
	r.persistLocked()
	r.log.Info("destination registered", logx.Int64("chat_id", id))
}

// Unregister removes id and persists. No-op if absent.
func (r *Registry) Unregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; !ok {
		return
	}
	delete(r.ids, id)
	r.persistLocked()
	r.log.Info("destination unregistered", logx.Int64("chat_id", id))
}

// Snapshot returns the current destinations, sorted.
func (r *Registry) Snapshot() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *Registry) sortedLocked() []int64 {
	out := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// persistLocked writes the sorted id list via tmp+rename. Failure is
// non-fatal: the in-memory set stays authoritative and the next successful
// mutation persists again.
func (r *Registry) persistLocked() {
	b, err := json.Marshal(r.sortedLocked())
	if err != nil {
		r.log.Error("registry encode failed", logx.Err(err))
		return
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			r.log.Warn("registry persist failed", logx.String("path", r.path), logx.Err(err))
			return
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		r.log.Warn("registry persist failed", logx.String("path", r.path), logx.Err(err))
		return
	}
	if err := os.Rename(tmp, r.path); err != nil {
		r.log.Warn("registry persist failed", logx.String("path", r.path), logx.Err(err))
	}
}
