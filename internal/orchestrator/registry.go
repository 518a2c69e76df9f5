package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/vburojevic/fcdbg/internal/domain"
)

// Registry tracks the multiplexer-session names this process owns. It is
// constructor-injected rather than a package singleton so orchestrators in
// tests never share state. Bulk cleanup iterates a snapshot, never the live
// view, because kill operations remove entries while cleanup runs.
type Registry interface {
	Add(session domain.ActiveSession)
	Remove(name string)
	Contains(name string) bool
	Snapshot() []domain.ActiveSession
	// Reserve derives a session name for target that is unique among the
	// currently registered names.
	Reserve(targetID string, now time.Time) string
}

// MemoryRegistry is the in-process Registry implementation.
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]domain.ActiveSession
}

// NewRegistry returns an empty MemoryRegistry.
func NewRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]domain.ActiveSession)}
}

func (r *MemoryRegistry) Add(session domain.ActiveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Name] = session
}

func (r *MemoryRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

func (r *MemoryRegistry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[name]
	return ok
}

func (r *MemoryRegistry) Snapshot() []domain.ActiveSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Values(r.sessions)
}

func (r *MemoryRegistry) Reserve(targetID string, now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := domain.SessionName(targetID, now)
	candidate := name
	for i := 2; ; i++ {
		if _, taken := r.sessions[candidate]; !taken {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", name, i)
	}
}
