package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/cutline/internal/catalog"
	"github.com/roach88/cutline/internal/edit"
	"github.com/roach88/cutline/internal/graph"
	"github.com/roach88/cutline/internal/journal"
	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/testutil"
	"github.com/roach88/cutline/internal/undo"
)

// Harness holds the live state of one scenario run.
type Harness struct {
	project  *graph.Project
	nodes    map[string]*graph.Node
	stack    *undo.Stack
	recorder *recorder
	clock    *journal.Clock
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	journal   undo.Journal
	logger    *slog.Logger
	projectID string
}

// WithJournal also records every stack transition in j.
func WithJournal(j undo.Journal) Option {
	return func(c *runConfig) {
		c.journal = j
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithProjectID names the project id instead of "id-1". Node ids are
// unchanged, so only the trace's project_id differs.
func WithProjectID(id string) Option {
	return func(c *runConfig) {
		c.projectID = id
	}
}

// recorder is the stack's journal during a run. It keeps every entry for
// the trace and forwards to an optional outer journal.
type recorder struct {
	entries []undo.Entry
	next    undo.Journal
}

func (r *recorder) Record(ctx context.Context, e undo.Entry) error {
	r.entries = append(r.entries, e)
	if r.next != nil {
		return r.next.Record(ctx, e)
	}
	return nil
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the catalog files into node types
//  2. Create a project with deterministic ids and the declared nodes
//  3. Apply each step through the undo stack, tracing the transition
//  4. Evaluate the expectations against the final state
//
// Run returns an error only when the scenario cannot be set up; step and
// expectation failures are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	projectOpts := []graph.ProjectOption{graph.WithLogger(cfg.logger)}
	if cfg.projectID != "" {
		projectOpts = append(projectOpts, graph.WithIDGenerator(graph.NewFixedGenerator(cfg.projectID)))
	}
	project := testutil.NewProject(scenario.Name, projectOpts...)
	h := &Harness{
		project:  project,
		nodes:    make(map[string]*graph.Node, len(scenario.Nodes)),
		recorder: &recorder{next: cfg.journal},
		clock:    journal.NewClock(),
		logger:   cfg.logger,
	}
	h.stack = undo.NewStack(project,
		undo.WithJournal(h.recorder),
		undo.WithLogger(cfg.logger),
		undo.WithIDGenerator(testutil.NewGroupIDs()),
	)

	for _, decl := range scenario.Nodes {
		nt, ok := cat.Lookup(decl.Type)
		if !ok {
			return nil, fmt.Errorf("node %q: unknown node type %q", decl.ID, decl.Type)
		}
		n, err := project.AddNode(nt)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", decl.ID, err)
		}
		h.nodes[decl.ID] = n
	}

	result := NewResult()
	result.ProjectID = project.ID()

	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}

	for _, msg := range EvaluateExpectations(h, scenario.Expect, result.Trace) {
		result.AddError(msg)
	}
	return result, nil
}

// loadCatalog compiles and merges the catalog files.
func loadCatalog(paths []string) (*catalog.Catalog, error) {
	var types []graph.NodeType
	for _, p := range paths {
		c, err := catalog.CompileFile(p)
		if err != nil {
			return nil, err
		}
		types = append(types, c.Types()...)
	}
	return catalog.New(types...)
}

// executeStep applies one step and records its trace event.
func (h *Harness) executeStep(i int, step Step, result *Result) {
	seq := h.clock.Next()
	mark := len(h.recorder.entries)

	target, err := h.apply(step)

	ev := TraceEvent{Seq: seq, Op: step.Op, Target: target}
	if len(h.recorder.entries) > mark {
		entry := h.recorder.entries[len(h.recorder.entries)-1]
		ev.Action = string(entry.Action)
		ev.Group = entry.Group
		ev.Commands = entry.Commands
	}
	if err != nil {
		ev.Error = err.Error()
	}
	result.AddTrace(ev)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got none", i, step.Op, step.ExpectError))
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got %q", i, step.Op, step.ExpectError, err))
	}

	h.logger.Debug("step executed", "seq", seq, "op", step.Op, "target", target, "error", err)
}

// resolve finds the input and element a target names.
func (h *Harness) resolve(t Target) (*graph.Input, graph.Element, error) {
	n, ok := h.nodes[t.Node]
	if !ok {
		return nil, graph.Element{}, fmt.Errorf("unknown node %q", t.Node)
	}
	in, err := n.Input(t.Input)
	if err != nil {
		return nil, graph.Element{}, err
	}
	e := graph.Whole()
	if t.Element != nil {
		e = graph.At(*t.Element)
	}
	return in, e, nil
}

// apply performs one step and returns the printed key it targeted.
func (h *Harness) apply(step Step) (string, error) {
	switch step.Op {
	case OpUndo:
		return "", h.stack.Undo()
	case OpRedo:
		return "", h.stack.Redo()
	}

	in, e, err := h.resolve(step.Target)
	if err != nil {
		return "", err
	}
	key := in.Key(e).String()

	g, err := h.buildGroup(step, in, e)
	if err != nil {
		return key, err
	}
	return key, h.stack.Push(g)
}

// buildGroup turns a step into the undo group the editor would push for
// the same gesture.
func (h *Harness) buildGroup(step Step, in *graph.Input, e graph.Element) (*undo.Group, error) {
	kind := in.Def().Type.TrackKind()

	switch step.Op {
	case OpSetValue:
		v, err := graph.ParseTypedValue(in.Def().Type, step.Value)
		if err != nil {
			return nil, err
		}
		return edit.SetValueAt(in, e, step.Time.Rational, v)

	case OpSetKeyframing:
		name := "Disable Keyframing"
		if *step.Enabled {
			name = "Enable Keyframing"
		}
		return undo.NewGroup(name, edit.NewSetKeyframing(in, e, *step.Enabled)), nil

	case OpInsertKeyframe:
		if len(step.Value) != 1 {
			return nil, fmt.Errorf("%w: a keyframe holds one component, got %d", graph.ErrTypeMismatch, len(step.Value))
		}
		v, err := keyframe.ParseValue(kind, step.Value[0])
		if err != nil {
			return nil, err
		}
		interp, err := keyframe.ParseInterpolation(step.Interpolation)
		if err != nil {
			return nil, err
		}
		k := keyframe.New(step.Time.Rational, v, interp)
		return undo.NewGroup("Add Keyframe", edit.NewInsertKeyframe(in, e, step.Track, k)), nil

	case OpRemoveKeyframe:
		return edit.RemoveKeyframesAt(in, e, step.Time.Rational, step.AutoDisable)

	case OpMoveKeyframe:
		return undo.NewGroup("Move Keyframe",
			edit.NewSetKeyframeTime(in, e, step.Track, step.Time.Rational, step.To.Rational)), nil

	case OpSetInterpolation:
		interp, err := keyframe.ParseInterpolation(step.Interpolation)
		if err != nil {
			return nil, err
		}
		return undo.NewGroup("Set Interpolation",
			edit.NewSetKeyframeInterpolation(in, e, step.Track, step.Time.Rational, interp)), nil

	case OpResize:
		return undo.NewGroup("Resize Array", edit.NewResizeArray(in, *step.Size)), nil

	case OpConnect:
		src, ok := h.nodes[step.Source]
		if !ok {
			return nil, fmt.Errorf("unknown source node %q", step.Source)
		}
		return undo.NewGroup("Connect", edit.NewConnect(in, e, src.ID())), nil

	case OpDisconnect:
		return undo.NewGroup("Disconnect", edit.NewDisconnect(in, e)), nil
	}
	return nil, errors.New("unknown op " + step.Op)
}
