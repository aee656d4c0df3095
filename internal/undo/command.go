package undo

import (
	"errors"
	"fmt"
)

// Document is the top-level object a command edits. *graph.Project
// implements it. Documents are compared by identity.
type Document interface {
	ID() string
}

// Op is one atomic, exactly reversible edit.
//
// Redo applies the edit and Undo reverts it. Each must be a single step
// that either fully succeeds or leaves the document untouched.
type Op interface {
	Redo() error
	Undo() error

	// Project reports the document the edit belongs to.
	Project() Document

	// Description is a short human-readable summary for menus and journals.
	Description() string
}

// State is the position of a command or group in its state machine.
type State int

const (
	Unapplied State = iota
	Applied
)

func (s State) String() string {
	if s == Applied {
		return "applied"
	}
	return "unapplied"
}

// Command wraps an Op with the Unapplied/Applied state machine.
type Command struct {
	op    Op
	state State
}

// NewCommand returns an Unapplied command.
func NewCommand(op Op) *Command {
	return &Command{op: op}
}

// Op returns the wrapped operation.
func (c *Command) Op() Op { return c.op }

// State returns the current state.
func (c *Command) State() State { return c.state }

// Description returns the op's description.
func (c *Command) Description() string { return c.op.Description() }

// Project returns the op's document.
func (c *Command) Project() Document { return c.op.Project() }

// Redo applies the command. It must be Unapplied.
func (c *Command) Redo() error {
	if c.state != Unapplied {
		return newTransitionError(c.op.Description(), c.state, "redo")
	}
	if err := c.op.Redo(); err != nil {
		return fmt.Errorf("redo %s: %w", c.op.Description(), err)
	}
	c.state = Applied
	return nil
}

// Undo reverts the command. It must be Applied.
func (c *Command) Undo() error {
	if c.state != Applied {
		return newTransitionError(c.op.Description(), c.state, "undo")
	}
	if err := c.op.Undo(); err != nil {
		return fmt.Errorf("undo %s: %w", c.op.Description(), err)
	}
	c.state = Unapplied
	return nil
}

// Group is an ordered list of commands forming one user-visible action.
type Group struct {
	id    string
	name  string
	cmds  []*Command
	state State
}

// NewGroup returns an Unapplied group of ops.
func NewGroup(name string, ops ...Op) *Group {
	g := &Group{name: name}
	for _, op := range ops {
		g.cmds = append(g.cmds, NewCommand(op))
	}
	return g
}

// Add appends an op. Only an Unapplied group can grow.
func (g *Group) Add(op Op) error {
	if g.state != Unapplied {
		return newTransitionError(op.Description(), g.state, "add to group")
	}
	g.cmds = append(g.cmds, NewCommand(op))
	return nil
}

// ID is assigned when the group is first recorded on a stack.
func (g *Group) ID() string { return g.id }

// Name returns the group's user-visible name.
func (g *Group) Name() string { return g.name }

// Len returns the number of commands.
func (g *Group) Len() int { return len(g.cmds) }

// State returns the group's state.
func (g *Group) State() State { return g.state }

// Descriptions returns each command's description in order.
func (g *Group) Descriptions() []string {
	out := make([]string, len(g.cmds))
	for i, c := range g.cmds {
		out[i] = c.Description()
	}
	return out
}

// Project returns the single document every command belongs to. An empty
// group has no document.
func (g *Group) Project() (Document, error) {
	var doc Document
	for _, c := range g.cmds {
		d := c.Project()
		if doc == nil {
			doc = d
			continue
		}
		if d != doc {
			return nil, newCrossDocumentError(
				fmt.Sprintf("group %q mixes documents", g.name), doc.ID(), d.ID())
		}
	}
	return doc, nil
}

// Redo applies every command in insertion order. On failure the commands
// already applied are undone again and the error is returned.
func (g *Group) Redo() error {
	if g.state != Unapplied {
		return newTransitionError(g.name, g.state, "redo")
	}
	for i, c := range g.cmds {
		if err := c.Redo(); err != nil {
			return rollback(err, func() error {
				for j := i - 1; j >= 0; j-- {
					if err := g.cmds[j].Undo(); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	g.state = Applied
	return nil
}

// Undo reverts every command in reverse order. On failure the commands
// already reverted are applied again and the error is returned.
func (g *Group) Undo() error {
	if g.state != Applied {
		return newTransitionError(g.name, g.state, "undo")
	}
	for i := len(g.cmds) - 1; i >= 0; i-- {
		if err := g.cmds[i].Undo(); err != nil {
			return rollback(err, func() error {
				for j := i + 1; j < len(g.cmds); j++ {
					if err := g.cmds[j].Redo(); err != nil {
						return err
					}
				}
				return nil
			})
		}
	}
	g.state = Unapplied
	return nil
}

func rollback(cause error, restore func() error) error {
	if err := restore(); err != nil {
		return errors.Join(cause, fmt.Errorf("rollback failed: %w", err))
	}
	return cause
}
