// Package scope provides the per-request disposable scope the adapter runs
// server functions inside.
//
// A Scope is a value container with a cleanup stack. The adapter creates one
// Scope per incoming request, provides the pending response handle and the
// request into it, and disposes it once the response has been produced. Server
// functions reach the scope through their context.Context.
//
// Scopes deliberately stop there: signals, effects, and re-rendering belong to
// the framework runtime, not to this integration layer.
package scope

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scope is a request-scoped container for context values and cleanup
// functions. Disposing a Scope disposes its children first, then runs its
// cleanups in reverse registration order.
//
// All methods are safe for concurrent use.
type Scope struct {
	// parent is nil for a root Scope.
	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	values   map[any]any
	valuesMu sync.RWMutex

	cleanups   []func()
	cleanupsMu sync.Mutex

	disposed atomic.Bool
}

// New creates a Scope. A non-nil parent registers the new Scope as a child so
// that disposing the parent disposes it too.
func New(parent *Scope) *Scope {
	s := &Scope{parent: parent}
	if parent != nil {
		parent.addChild(s)
	}
	return s
}

// Parent returns the parent Scope, or nil for a root Scope.
func (s *Scope) Parent() *Scope { return s.parent }

// IsDisposed reports whether Dispose has been called.
func (s *Scope) IsDisposed() bool { return s.disposed.Load() }

func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// Provide stores a value under key in this Scope. Later Provide calls with the
// same key overwrite the earlier value. Providing on a disposed Scope is a
// no-op.
func (s *Scope) Provide(key, value any) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()
	// Checked under valuesMu: Dispose clears values under the same lock, so
	// a Provide racing Dispose either lands before the clear or sees the
	// flag and backs off.
	if s.disposed.Load() {
		return
	}
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// Value returns the value stored under key, searching this Scope first and
// then its ancestors. Returns nil if no Scope in the chain holds the key.
func (s *Scope) Value(key any) any {
	for cur := s; cur != nil; cur = cur.parent {
		cur.valuesMu.RLock()
		v, ok := cur.values[key]
		cur.valuesMu.RUnlock()
		if ok {
			return v
		}
	}
	return nil
}

// OnCleanup registers fn to run when the Scope is disposed. Cleanups run in
// reverse registration order. If the Scope is already disposed, fn runs
// immediately.
func (s *Scope) OnCleanup(fn func()) {
	s.cleanupsMu.Lock()
	// Checked under cleanupsMu: Dispose snapshots the cleanup list under
	// the same lock after setting the flag, so fn either makes the snapshot
	// or runs immediately. It can never be appended and then dropped.
	if s.disposed.Load() {
		s.cleanupsMu.Unlock()
		fn()
		return
	}
	s.cleanups = append(s.cleanups, fn)
	s.cleanupsMu.Unlock()
}

// Dispose disposes the Scope: children first (last created first), then this
// Scope's cleanups in reverse order. Dispose is idempotent.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	s.valuesMu.Lock()
	s.values = nil
	s.valuesMu.Unlock()
}

// ctxKey is the context key tying a Scope to a context.Context.
type ctxKey struct{}

// NewContext returns a context carrying s.
func NewContext(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the Scope carried by ctx, or nil.
func FromContext(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(ctxKey{}).(*Scope)
	return s
}
