// Package coordinator tags overlapping load requests with a generation number
// so that only the most recently issued request may change shared state.
//
// Issuing a new request makes it current immediately, even while older
// requests are still in flight. A result is applied only if its request is
// still current when it completes; anything else is dropped. Superseding is
// the only cancellation: in-flight work is never aborted, its effect is
// simply suppressed.
package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/model"
)

// Coordinator issues generations and decides which completions may apply.
// The zero value is ready to use.
type Coordinator struct {
	mu      sync.Mutex
	current uint64
}

// New returns an empty Coordinator. No generation is current until Begin.
func New() *Coordinator {
	return &Coordinator{}
}

// Handle identifies one issued load request.
type Handle struct {
	c         *Coordinator
	gen       uint64
	purpose   model.LoadPurpose
	requestID uuid.UUID
}

// Begin issues a new generation for purpose and makes it current.
func (c *Coordinator) Begin(purpose model.LoadPurpose) *Handle {
	c.mu.Lock()
	c.current++
	gen := c.current
	c.mu.Unlock()
	return &Handle{
		c:         c,
		gen:       gen,
		purpose:   purpose,
		requestID: uuid.New(),
	}
}

// Current returns the most recently issued generation (0 before any Begin).
func (c *Coordinator) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Complete runs apply if and only if h is still current, and reports whether
// it did. The check and apply run under the coordinator's lock, so no Begin
// can interleave between them. apply must not call back into the coordinator.
func (c *Coordinator) Complete(h *Handle, apply func()) bool {
	return c.IfCurrent(h, apply)
}

// IfCurrent runs fn under the same guarantee as Complete without marking
// anything finished. Callers use it for intermediate updates, such as
// flagging that a load is in progress.
func (c *Coordinator) IfCurrent(h *Handle, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h == nil || h.c != c || h.gen != c.current {
		return false
	}
	if fn != nil {
		fn()
	}
	return true
}

// Generation returns the generation number assigned at issuance.
func (h *Handle) Generation() uint64 { return h.gen }

// Purpose returns why the request was issued.
func (h *Handle) Purpose() model.LoadPurpose { return h.purpose }

// RequestID returns a random identifier used to correlate log lines.
func (h *Handle) RequestID() uuid.UUID { return h.requestID }

// IsCurrent reports whether no newer generation has been issued.
func (h *Handle) IsCurrent() bool {
	_, superseded := h.SupersededBy()
	return !superseded
}

// SupersededBy returns the generation that replaced h, if any.
// When several newer generations exist it returns the latest one.
func (h *Handle) SupersededBy() (uint64, bool) {
	cur := h.c.Current()
	if cur == h.gen {
		return 0, false
	}
	return cur, true
}
