package graph

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Project is the top-level document. Undo stacks are bound to one project,
// and every command reports the project it belongs to.
type Project struct {
	id     string
	name   string
	ids    IDGenerator
	logger *slog.Logger

	mu      sync.RWMutex
	nodes   []*Node
	byID    map[NodeID]*Node
	subs    []subscription
	nextSub int
}

// ProjectOption configures a Project.
type ProjectOption func(*Project)

// WithIDGenerator sets the generator used for the project and node ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) ProjectOption {
	return func(p *Project) {
		p.ids = g
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) ProjectOption {
	return func(p *Project) {
		p.logger = l
	}
}

// NewProject creates an empty project.
func NewProject(name string, opts ...ProjectOption) *Project {
	p := &Project{
		name:   name,
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		byID:   make(map[NodeID]*Node),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.id = p.ids.Generate()
	return p
}

// ID returns the project's identifier.
func (p *Project) ID() string { return p.id }

// Name returns the project's display name.
func (p *Project) Name() string { return p.name }

// Logger returns the project's logger.
func (p *Project) Logger() *slog.Logger { return p.logger }

// AddNode instantiates a node of type nt with default input values.
func (p *Project) AddNode(nt NodeType) (*Node, error) {
	id := NodeID(p.ids.Generate())
	n, err := newNode(p, id, nt)
	if err != nil {
		return nil, err
	}

	if err := p.register(n); err != nil {
		return nil, err
	}

	p.logger.Debug("node added", "project", p.id, "node", id, "type", nt.Name)
	return n, nil
}

func (p *Project) register(n *Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dup := p.byID[n.id]; dup {
		return fmt.Errorf("duplicate node id %s", n.id)
	}
	p.nodes = append(p.nodes, n)
	p.byID[n.id] = n
	return nil
}

// Node returns the node with the given id.
func (p *Project) Node(id NodeID) (*Node, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return n, nil
}

// Nodes returns the nodes in creation order.
func (p *Project) Nodes() []*Node {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Input resolves the node and input named by key. The key's element is not
// checked here; element errors surface from the Input's own methods.
func (p *Project) Input(key Key) (*Input, error) {
	n, err := p.Node(key.Node)
	if err != nil {
		return nil, err
	}
	return n.Input(key.Input)
}

// Subscribe registers fn for every committed mutation in the project.
// Subscribers run in registration order. The returned function removes the
// subscription.
func (p *Project) Subscribe(fn Subscriber) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSub
	p.nextSub++
	p.subs = append(p.subs, subscription{id: id, fn: fn})

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, s := range p.subs {
			if s.id == id {
				p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
				return
			}
		}
	}
}

func (p *Project) publish(ev Event) {
	p.logger.Debug("input changed",
		"kind", string(ev.Kind),
		"key", ev.Key.String(),
		"range", ev.Range.String(),
	)

	p.mu.RLock()
	subs := make([]subscription, len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}
