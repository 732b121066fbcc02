package apns

import "sync"

// Handler observes rejected notifications.
type Handler func(*Rejection)

// Events fans rejections out to external observers: handlers keyed by
// gateway reason, plus catch-all handlers that see every rejection.
// Emission happens whether or not the caller of Send looks at the
// returned error.
type Events struct {
	mu       sync.RWMutex
	nextID   int
	byReason map[string]map[int]Handler
	all      map[int]Handler
}

func newEvents() *Events {
	return &Events{
		byReason: map[string]map[int]Handler{},
		all:      map[int]Handler{},
	}
}

// On registers a handler for one gateway reason. The returned function
// removes the subscription.
func (e *Events) On(reason string, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.byReason[reason] == nil {
		e.byReason[reason] = map[int]Handler{}
	}
	e.byReason[reason][id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.byReason[reason], id)
	}
}

// OnError registers a catch-all handler invoked for every rejection,
// after any reason-specific handlers.
func (e *Events) OnError(h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.all[id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.all, id)
	}
}

func (e *Events) emit(rej *Rejection) {
	e.mu.RLock()
	handlers := make([]Handler, 0, len(e.byReason[rej.Reason])+len(e.all))
	for _, h := range e.byReason[rej.Reason] {
		handlers = append(handlers, h)
	}
	for _, h := range e.all {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, h := range handlers {
		h(rej)
	}
}
