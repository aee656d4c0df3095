package undo

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Action names a stack transition.
type Action string

const (
	ActionPush Action = "push"
	ActionUndo Action = "undo"
	ActionRedo Action = "redo"
)

// Entry is one recorded stack transition.
type Entry struct {
	Action   Action
	Project  string
	GroupID  string
	Group    string
	Commands []string
}

// Journal records every transition of a stack. It is an audit log and is
// never read back to rebuild state.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Change is delivered to stack subscribers after each transition.
type Change struct {
	Action  Action
	Group   string
	CanUndo bool
	CanRedo bool
}

// Listener receives stack changes.
type Listener func(Change)

// DefaultLimit is the default maximum number of undoable groups.
// Zero means unlimited.
const DefaultLimit = 0

// IDGenerator assigns group ids.
type IDGenerator interface {
	Generate() string
}

type uuidV7 struct{}

func (uuidV7) Generate() string { return uuid.Must(uuid.NewV7()).String() }

// Stack is the undo/redo history of one document.
type Stack struct {
	doc    Document
	done   []*Group // applied, oldest first
	undone []*Group // reverted, most recently undone last

	limit   int
	clean   int // len(done) at the clean point, -1 when unreachable
	journal Journal
	logger  *slog.Logger
	ids     IDGenerator

	listeners []Listener
}

// StackOption configures a Stack.
type StackOption func(*Stack)

// WithLimit caps the number of undoable groups; the oldest are dropped.
//
// Default: 0 (unlimited).
func WithLimit(n int) StackOption {
	return func(s *Stack) {
		s.limit = n
	}
}

// WithJournal records every push, undo and redo.
func WithJournal(j Journal) StackOption {
	return func(s *Stack) {
		s.journal = j
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) StackOption {
	return func(s *Stack) {
		s.logger = l
	}
}

// WithIDGenerator sets the group id generator. Default: UUIDv7.
func WithIDGenerator(g IDGenerator) StackOption {
	return func(s *Stack) {
		s.ids = g
	}
}

// NewStack creates an empty stack bound to doc. A new stack is clean.
func NewStack(doc Document, opts ...StackOption) *Stack {
	s := &Stack{
		doc:    doc,
		limit:  DefaultLimit,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    uuidV7{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Document returns the document the stack belongs to.
func (s *Stack) Document() Document { return s.doc }

// Push applies an Unapplied group and records it. The redo side is
// discarded. Empty groups are ignored.
func (s *Stack) Push(g *Group) error {
	if g.State() != Unapplied {
		return newTransitionError(g.Name(), g.State(), "push")
	}
	if g.Len() == 0 {
		return nil
	}
	if err := s.checkDocument(g); err != nil {
		return err
	}
	if err := g.Redo(); err != nil {
		s.logger.Warn("push failed", "project", s.doc.ID(), "group", g.Name(), "error", err)
		return err
	}
	s.record(g)
	return nil
}

// PushApplied records a group that the caller has already applied
// (apply-on-create). The redo side is discarded. Empty groups are ignored.
func (s *Stack) PushApplied(g *Group) error {
	if g.State() != Applied {
		return newTransitionError(g.Name(), g.State(), "push applied")
	}
	if g.Len() == 0 {
		return nil
	}
	if err := s.checkDocument(g); err != nil {
		return err
	}
	s.record(g)
	return nil
}

func (s *Stack) checkDocument(g *Group) error {
	doc, err := g.Project()
	if err != nil {
		return err
	}
	if doc != s.doc {
		return newCrossDocumentError(
			"group pushed onto another document's stack", s.doc.ID(), doc.ID())
	}
	return nil
}

func (s *Stack) record(g *Group) {
	if g.id == "" {
		g.id = s.ids.Generate()
	}

	if s.clean > len(s.done) {
		s.clean = -1
	}
	s.undone = nil
	s.done = append(s.done, g)

	if s.limit > 0 && len(s.done) > s.limit {
		drop := len(s.done) - s.limit
		s.done = append([]*Group(nil), s.done[drop:]...)
		if s.clean >= 0 {
			s.clean -= drop
			if s.clean < 0 {
				s.clean = -1
			}
		}
	}

	s.logger.Debug("group pushed", "project", s.doc.ID(), "group", g.Name(), "commands", g.Len())
	s.transitioned(ActionPush, g)
}

// Undo reverts the most recent applied group. On failure both sides of the
// stack are left exactly as they were.
func (s *Stack) Undo() error {
	if len(s.done) == 0 {
		return ErrNothingToUndo
	}
	g := s.done[len(s.done)-1]
	if err := g.Undo(); err != nil {
		s.logger.Warn("undo failed", "project", s.doc.ID(), "group", g.Name(), "error", err)
		return err
	}
	s.done = s.done[:len(s.done)-1]
	s.undone = append(s.undone, g)

	s.logger.Debug("group undone", "project", s.doc.ID(), "group", g.Name())
	s.transitioned(ActionUndo, g)
	return nil
}

// Redo re-applies the most recently undone group. On failure both sides of
// the stack are left exactly as they were.
func (s *Stack) Redo() error {
	if len(s.undone) == 0 {
		return ErrNothingToRedo
	}
	g := s.undone[len(s.undone)-1]
	if err := g.Redo(); err != nil {
		s.logger.Warn("redo failed", "project", s.doc.ID(), "group", g.Name(), "error", err)
		return err
	}
	s.undone = s.undone[:len(s.undone)-1]
	s.done = append(s.done, g)

	s.logger.Debug("group redone", "project", s.doc.ID(), "group", g.Name())
	s.transitioned(ActionRedo, g)
	return nil
}

// CanUndo reports whether Undo has a group to revert.
func (s *Stack) CanUndo() bool { return len(s.done) > 0 }

// CanRedo reports whether Redo has a group to re-apply.
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 }

// UndoText is the name of the group Undo would revert, or "".
func (s *Stack) UndoText() string {
	if len(s.done) == 0 {
		return ""
	}
	return s.done[len(s.done)-1].Name()
}

// RedoText is the name of the group Redo would re-apply, or "".
func (s *Stack) RedoText() string {
	if len(s.undone) == 0 {
		return ""
	}
	return s.undone[len(s.undone)-1].Name()
}

// Len is the total number of groups on both sides.
func (s *Stack) Len() int { return len(s.done) + len(s.undone) }

// Index is the number of applied groups.
func (s *Stack) Index() int { return len(s.done) }

// Clear forgets the whole history without reverting anything. The current
// state becomes the clean state.
func (s *Stack) Clear() {
	s.done = nil
	s.undone = nil
	s.clean = 0
}

// SetClean marks the current position as clean (for example, just saved).
func (s *Stack) SetClean() { s.clean = len(s.done) }

// IsClean reports whether the stack is at the clean position.
func (s *Stack) IsClean() bool { return s.clean == len(s.done) }

// Subscribe registers fn for every transition.
func (s *Stack) Subscribe(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

func (s *Stack) transitioned(action Action, g *Group) {
	if s.journal != nil {
		entry := Entry{
			Action:   action,
			Project:  s.doc.ID(),
			GroupID:  g.ID(),
			Group:    g.Name(),
			Commands: g.Descriptions(),
		}
		// The edit is already committed; a journal failure must not
		// desynchronize the stack from the document.
		if err := s.journal.Record(context.Background(), entry); err != nil {
			s.logger.Error("journal record failed", "project", s.doc.ID(), "action", string(action), "error", err)
		}
	}

	c := Change{Action: action, Group: g.Name(), CanUndo: s.CanUndo(), CanRedo: s.CanRedo()}
	for _, fn := range s.listeners {
		fn(c)
	}
}
