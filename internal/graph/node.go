package graph

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cutline/internal/cache"
)

// Node is one node of a project's graph. It exclusively owns its inputs and
// the validity cache of its output.
type Node struct {
	id      NodeID
	typ     string
	project *Project

	inputs []*Input
	byName map[string]*Input
	cache  *cache.Cache
}

func newNode(p *Project, id NodeID, nt NodeType) (*Node, error) {
	n := &Node{
		id:      id,
		typ:     nt.Name,
		project: p,
		byName:  make(map[string]*Input, len(nt.Inputs)),
		cache:   cache.New(),
	}
	for _, def := range nt.Inputs {
		def.Name = norm.NFC.String(def.Name)
		if def.Name == "" {
			return nil, fmt.Errorf("node type %s: input with empty name", nt.Name)
		}
		if _, dup := n.byName[def.Name]; dup {
			return nil, fmt.Errorf("node type %s: duplicate input %q", nt.Name, def.Name)
		}
		if _, ok := dataTypeNames[def.Type]; !ok {
			return nil, fmt.Errorf("node type %s: input %s: unknown data type %s", nt.Name, def.Name, def.Type)
		}
		if err := def.defaultValue().Check(def.Type); err != nil {
			return nil, fmt.Errorf("node type %s: input %s default: %w", nt.Name, def.Name, err)
		}
		if def.Size < 0 || (def.Size > 0 && !def.Array) {
			return nil, fmt.Errorf("node type %s: input %s: size %d on a non-array input", nt.Name, def.Name, def.Size)
		}
		in := newInput(n, def)
		n.inputs = append(n.inputs, in)
		n.byName[def.Name] = in
	}
	return n, nil
}

// ID returns the node's identifier.
func (n *Node) ID() NodeID { return n.id }

// Type returns the node type name.
func (n *Node) Type() string { return n.typ }

// Project returns the owning project.
func (n *Node) Project() *Project { return n.project }

// Cache returns the node's output validity cache. It is invalidated
// automatically whenever an input changes.
func (n *Node) Cache() *cache.Cache { return n.cache }

// Input returns the input with the given name. Names are compared after
// NFC normalization.
func (n *Node) Input(name string) (*Input, error) {
	in, ok := n.byName[norm.NFC.String(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownInput, n.id, name)
	}
	return in, nil
}

// Inputs returns the inputs in definition order.
func (n *Node) Inputs() []*Input {
	out := make([]*Input, len(n.inputs))
	copy(out, n.inputs)
	return out
}

func (n *Node) notify(ev Event) {
	n.cache.Invalidate(ev.Range)
	n.project.publish(ev)
}
