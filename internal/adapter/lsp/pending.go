package lsp

import (
	"strings"
	"sync"
)

// PendingRegistry correlates outbound JSON-RPC requests with their
// eventual responses, and lets callers wait for a server-initiated
// notification whose body contains a literal substring (e.g. Java's
// `language/status`="ServiceReady").
//
// Delivery channels are single-shot and buffered by one: a reader that
// never shows up simply leaves the message undelivered and the entry is
// dropped on completion.
type PendingRegistry struct {
	mu      sync.Mutex
	byID    map[int]chan *JSONRPCMessage
	waiters map[string][]notificationWaiter
}

type notificationWaiter struct {
	substring string
	ch        chan *JSONRPCMessage
}

// NewPendingRegistry creates an empty registry.
func NewPendingRegistry() *PendingRegistry {
	return &PendingRegistry{
		byID:    make(map[int]chan *JSONRPCMessage),
		waiters: make(map[string][]notificationWaiter),
	}
}

// RegisterRequest creates a single-shot delivery channel for id.
func (r *PendingRegistry) RegisterRequest(id int) <-chan *JSONRPCMessage {
	ch := make(chan *JSONRPCMessage, 1)
	r.mu.Lock()
	r.byID[id] = ch
	r.mu.Unlock()
	return ch
}

// CompleteRequest removes the entry for id and delivers msg. A request with
// no matching entry (already completed, cancelled, or unknown) is a no-op.
func (r *PendingRegistry) CompleteRequest(id int, msg *JSONRPCMessage) {
	r.mu.Lock()
	ch, ok := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()
	if ok {
		ch <- msg
	}
}

// CancelRequest removes the entry for id without delivering anything,
// detaching a waiter that is no longer listening (e.g. a context timeout).
func (r *PendingRegistry) CancelRequest(id int) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// RegisterNotification installs a wait-set entry for method that fires the
// first time an incoming notification's params contain expectedSubstring.
// Registrations must be installed before the triggering request is sent.
func (r *PendingRegistry) RegisterNotification(method, expectedSubstring string) <-chan *JSONRPCMessage {
	ch := make(chan *JSONRPCMessage, 1)
	r.mu.Lock()
	r.waiters[method] = append(r.waiters[method], notificationWaiter{substring: expectedSubstring, ch: ch})
	r.mu.Unlock()
	return ch
}

// MatchNotification checks incoming notification params against every
// waiter registered for method; the first match fires its channel and is
// removed. body is the literal bytes of the notification's params, used for
// substring matching against a conventional field (e.g. "message").
func (r *PendingRegistry) MatchNotification(method string, body []byte) {
	r.mu.Lock()
	waiters := r.waiters[method]
	var remaining []notificationWaiter
	var fired []notificationWaiter
	for _, w := range waiters {
		if !firedAlready(fired, w) && strings.Contains(string(body), w.substring) {
			fired = append(fired, w)
			continue
		}
		remaining = append(remaining, w)
	}
	if len(fired) > 0 {
		r.waiters[method] = remaining
	}
	r.mu.Unlock()

	for _, w := range fired {
		w.ch <- &JSONRPCMessage{Method: method, Params: body}
	}
}

func firedAlready(fired []notificationWaiter, w notificationWaiter) bool {
	for _, f := range fired {
		if f.ch == w.ch {
			return true
		}
	}
	return false
}

// FailAll delivers a synthetic error response to every pending request and
// notification waiter, used when the transport closes (EOF, subprocess
// exit) so no caller blocks forever.
func (r *PendingRegistry) FailAll(err error) {
	r.mu.Lock()
	ids := r.byID
	r.byID = make(map[int]chan *JSONRPCMessage)
	waiters := r.waiters
	r.waiters = make(map[string][]notificationWaiter)
	r.mu.Unlock()

	msg := &JSONRPCMessage{Error: &JSONRPCError{Code: -32000, Message: err.Error()}}
	for _, ch := range ids {
		ch <- msg
	}
	for _, ws := range waiters {
		for _, w := range ws {
			w.ch <- msg
		}
	}
}
