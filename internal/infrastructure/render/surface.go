package render

import "sync"

// Surface is the mount target a viewer binds to: the headless counterpart of
// a DOM container element.  It carries the viewport size, delivers resize
// events to registered listeners, and can be detached, after which a pending
// initialization must not construct a viewer against it.
//
// Surface is safe for concurrent use; resize listeners are invoked without
// the internal lock held.
type Surface struct {
	mu        sync.Mutex
	width     int
	height    int
	attached  bool
	nextID    int
	listeners map[int]func(width, height int)
}

// NewSurface returns an attached surface of the given size.
func NewSurface(width, height int) *Surface {
	return &Surface{
		width:     width,
		height:    height,
		attached:  true,
		listeners: map[int]func(int, int){},
	}
}

// Size returns the current viewport size.
func (s *Surface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Attached reports whether the surface still exists as a mount target.
func (s *Surface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Resize updates the size and notifies every registered listener.  Resizing
// a detached surface is a no-op.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return
	}
	s.width, s.height = width, height
	fns := make([]func(int, int), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(width, height)
	}
}

// OnResize registers a listener and returns its unregister function.  The
// unregister function is idempotent.
func (s *Surface) OnResize(fn func(width, height int)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Detach marks the surface gone and drops all listeners.  A viewer must
// never be constructed against a detached surface.
func (s *Surface) Detach() {
	s.mu.Lock()
	s.attached = false
	s.listeners = map[int]func(int, int){}
	s.mu.Unlock()
}
