package undo

import (
	"sync"
)

// Host owns one Stack per open document and routes groups to the stack of
// the document they belong to.
type Host struct {
	mu     sync.Mutex
	stacks map[Document]*Stack
	opts   []StackOption
}

// NewHost creates a host; opts apply to every stack it creates.
func NewHost(opts ...StackOption) *Host {
	return &Host{
		stacks: make(map[Document]*Stack),
		opts:   opts,
	}
}

// StackFor returns doc's stack, creating it on first use.
func (h *Host) StackFor(doc Document) *Stack {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.stacks[doc]
	if !ok {
		s = NewStack(doc, h.opts...)
		h.stacks[doc] = s
	}
	return s
}

// Close forgets doc's stack.
func (h *Host) Close(doc Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.stacks, doc)
}

// Push applies g and records it on its document's stack.
func (h *Host) Push(g *Group) error {
	doc, err := g.Project()
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return h.StackFor(doc).Push(g)
}

// PushApplied records an already applied g on its document's stack.
func (h *Host) PushApplied(g *Group) error {
	doc, err := g.Project()
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	return h.StackFor(doc).PushApplied(g)
}
