package toast

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Kind names one actionable-request family. Each family gets its own
// registry instance.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindDebt        Kind = "debt"
)

// Request is one pending human decision surfaced as a persistent prompt.
type Request struct {
	ID            int64
	Kind          Kind
	Summary       string
	Amount        float64
	TaskID        int64
	TaskTitle     string
	RequesterID   int64
	RequesterName string
}

// Resolver executes the approve/reject decision against the backend.
type Resolver interface {
	Approve(ctx context.Context, req Request) error
	Reject(ctx context.Context, req Request) error
}

// Change notifies UI subscribers that a prompt appeared or was retracted.
type Change struct {
	Request Request
	Removed bool
}

type prompt struct {
	req      Request
	inFlight bool
}

// Registry enforces at-most-one-visible-prompt per request id within this
// session, executes decisions through its Resolver, and retracts prompts
// when any viewer anywhere resolves the request.
//
// Show and Dismiss are idempotent map mutations, so duplicated or late
// envelopes and local-action/remote-resolve races all converge on the same
// end state without coordination.
type Registry struct {
	kind       Kind
	resolver   Resolver
	toasts     *Center
	log        *slog.Logger
	onResolved func(Request)

	mu               sync.Mutex
	prompts          map[int64]*prompt
	order            []int64
	subscribers      map[uint64]chan Change
	nextSubscriberID uint64
}

// NewRegistry builds an empty registry for one request kind. onResolved runs
// after a locally executed decision succeeds, for targeted invalidation; it
// may be nil.
func NewRegistry(kind Kind, resolver Resolver, toasts *Center, onResolved func(Request), log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		kind:        kind,
		resolver:    resolver,
		toasts:      toasts,
		log:         log.With("component", "toast.registry", "kind", string(kind)),
		onResolved:  onResolved,
		prompts:     make(map[int64]*prompt),
		subscribers: make(map[uint64]chan Change),
	}
}

// Show registers a persistent prompt for req. It reports whether a new
// prompt appeared; a duplicate id is a no-op.
func (r *Registry) Show(req Request) bool {
	r.mu.Lock()
	if _, exists := r.prompts[req.ID]; exists {
		r.mu.Unlock()
		r.log.Debug("Ignoring duplicate request prompt", "request_id", req.ID)
		return false
	}

	req.Kind = r.kind
	r.prompts[req.ID] = &prompt{req: req}
	r.order = append(r.order, req.ID)
	r.mu.Unlock()

	r.log.Info("Action prompt shown", "request_id", req.ID, "requester", req.RequesterName)
	r.notify(Change{Request: req})
	return true
}

// Dismiss retracts the prompt for id if one is registered. It reports
// whether a prompt was removed; an unknown id is a no-op. This is the single
// convergence point for local decisions and remote "resolved" envelopes.
func (r *Registry) Dismiss(id int64) bool {
	r.mu.Lock()
	p, ok := r.prompts[id]
	if !ok {
		r.mu.Unlock()
		return false
	}

	delete(r.prompts, id)
	r.order = slices.DeleteFunc(r.order, func(v int64) bool { return v == id })
	req := p.req
	r.mu.Unlock()

	r.log.Info("Action prompt retracted", "request_id", id)
	r.notify(Change{Request: req, Removed: true})
	return true
}

// Approve executes the approve decision for id. With no registered prompt,
// or one whose decision is already in flight, it is a no-op; this is what
// keeps a remote resolve racing a local click down to at most one backend
// call.
func (r *Registry) Approve(ctx context.Context, id int64) error {
	return r.decide(ctx, id, true)
}

// Reject executes the reject decision for id, symmetric to Approve.
func (r *Registry) Reject(ctx context.Context, id int64) error {
	return r.decide(ctx, id, false)
}

func (r *Registry) decide(ctx context.Context, id int64, approve bool) error {
	r.mu.Lock()
	p, ok := r.prompts[id]
	if !ok || p.inFlight {
		r.mu.Unlock()
		return nil
	}
	p.inFlight = true
	req := p.req
	r.mu.Unlock()

	verb := "approve"
	var err error
	if approve {
		err = r.resolver.Approve(ctx, req)
	} else {
		verb = "reject"
		err = r.resolver.Reject(ctx, req)
	}

	if err != nil {
		// Keep the prompt visible so the viewer can retry.
		r.mu.Lock()
		if current, ok := r.prompts[id]; ok {
			current.inFlight = false
		}
		r.mu.Unlock()

		r.log.Warn("Decision call failed", "request_id", id, "action", verb, "error", err)
		r.toasts.Push(LevelError, fmt.Sprintf("Could not %s request", verb), err.Error())
		return err
	}

	r.Dismiss(id)
	r.toasts.Push(LevelSuccess, fmt.Sprintf("Request %sd", verb), req.Summary)
	if r.onResolved != nil {
		r.onResolved(req)
	}

	return nil
}

// Prompts returns the currently visible requests in arrival order.
func (r *Registry) Prompts() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Request, 0, len(r.order))
	for _, id := range r.order {
		if p, ok := r.prompts[id]; ok {
			out = append(out, p.req)
		}
	}

	return out
}

// Clear retracts every prompt, used when the owning session disconnects.
func (r *Registry) Clear() {
	r.mu.Lock()
	ids := slices.Clone(r.order)
	r.mu.Unlock()

	for _, id := range ids {
		r.Dismiss(id)
	}
}

// Subscribe returns a stream of prompt changes and its unsubscribe func.
func (r *Registry) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Change, buffer)

	r.mu.Lock()
	id := r.nextSubscriberID
	r.nextSubscriberID++
	r.subscribers[id] = ch
	r.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			r.mu.Lock()
			if sub, ok := r.subscribers[id]; ok {
				delete(r.subscribers, id)
				close(sub)
			}
			r.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

func (r *Registry) notify(change Change) {
	r.mu.Lock()
	subs := make([]chan Change, 0, len(r.subscribers))
	for _, ch := range r.subscribers {
		subs = append(subs, ch)
	}
	r.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- change:
		default:
		}
	}
}
