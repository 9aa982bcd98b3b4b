package app

import (
	"sort"
	"sync"
)

// Registry holds the open views of one host process. The host owns it;
// nothing in the engine is global.
type Registry struct {
	mu    sync.RWMutex
	views map[string]*View
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*View)}
}

// Open creates a view over host and registers it. The view leaves the
// registry when it is disposed.
func (r *Registry) Open(host Host, opts ViewOptions) (*View, error) {
	v, err := NewView(host, opts)
	if err != nil {
		return nil, err
	}
	v.onDispose = r.remove

	r.mu.Lock()
	r.views[v.id] = v
	r.order = append(r.order, v.id)
	r.mu.Unlock()
	return v, nil
}

// Get returns the view with id.
func (r *Registry) Get(id string) (*View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	return v, ok
}

// Views returns the open views in opening order.
func (r *Registry) Views() []*View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*View, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.views[id])
	}
	return out
}

// IDs returns the ids of the open views, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.views))
	for id := range r.views {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// Close disposes the view with id. It must be called on that view's owner
// goroutine.
func (r *Registry) Close(id string) error {
	v, ok := r.Get(id)
	if !ok {
		return ErrViewNotFound
	}
	v.Dispose()
	return nil
}

// CloseAll disposes every view.
func (r *Registry) CloseAll() {
	for _, v := range r.Views() {
		v.Dispose()
	}
}

func (r *Registry) remove(v *View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[v.id]; !ok {
		return
	}
	delete(r.views, v.id)
	for i, id := range r.order {
		if id == v.id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
