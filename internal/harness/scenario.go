package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cutline/internal/rational"
)

// Scenario is one edit scenario: node types to load, nodes to create,
// edits to apply, and the state expected at the end.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog lists CUE node type files, relative to the scenario file.
	Catalog []string `yaml:"catalog"`

	// Nodes are created in order before the first step.
	Nodes []NodeDecl `yaml:"nodes"`

	// Steps are applied in order, each through the undo stack.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the last step.
	Expect []Expectation `yaml:"expect"`
}

// NodeDecl creates one node. ID is the alias steps use to refer to it.
type NodeDecl struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// Target addresses an input element by node alias.
type Target struct {
	Node  string `yaml:"node,omitempty"`
	Input string `yaml:"input,omitempty"`

	// Element is the array slot. Absent means the whole input.
	Element *int `yaml:"element,omitempty"`
}

// Step is one edit.
type Step struct {
	Op     string `yaml:"op"`
	Target `yaml:",inline"`

	Track         int        `yaml:"track,omitempty"`
	Time          Rat        `yaml:"time,omitempty"`
	To            Rat        `yaml:"to,omitempty"`
	Value         Components `yaml:"value,omitempty"`
	Interpolation string     `yaml:"interpolation,omitempty"`
	Enabled       *bool      `yaml:"enabled,omitempty"`
	AutoDisable   bool       `yaml:"auto_disable,omitempty"`
	Size          *int       `yaml:"size,omitempty"`
	Source        string     `yaml:"source,omitempty"`

	// ExpectError makes the step pass only when it fails with an error
	// containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Expectation checks the final state.
type Expectation struct {
	Type   string `yaml:"type"`
	Target `yaml:",inline"`

	Track int        `yaml:"track,omitempty"`
	Time  Rat        `yaml:"time,omitempty"`
	Value Components `yaml:"value,omitempty"`
	Is    *bool      `yaml:"is,omitempty"`
	Count *int       `yaml:"count,omitempty"`
	Text  *string    `yaml:"text,omitempty"`
}

// Step ops.
const (
	OpSetValue         = "set_value"
	OpSetKeyframing    = "set_keyframing"
	OpInsertKeyframe   = "insert_keyframe"
	OpRemoveKeyframe   = "remove_keyframe"
	OpMoveKeyframe     = "move_keyframe"
	OpSetInterpolation = "set_interpolation"
	OpResize           = "resize"
	OpConnect          = "connect"
	OpDisconnect       = "disconnect"
	OpUndo             = "undo"
	OpRedo             = "redo"
)

// Expectation types.
const (
	ExpectValueAt       = "value_at"
	ExpectKeyframed     = "keyframed"
	ExpectKeyframeCount = "keyframe_count"
	ExpectArraySize     = "array_size"
	ExpectCanUndo       = "can_undo"
	ExpectCanRedo       = "can_redo"
	ExpectUndoText      = "undo_text"
	ExpectRedoText      = "redo_text"
)

// Rat is an exact rational written in YAML as an int, a decimal or "n/d".
type Rat struct {
	rational.Rational

	// Set reports whether the field was present.
	Set bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Rat) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", n.Line)
	}
	v, err := rational.Parse(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	r.Rational, r.Set = v, true
	return nil
}

// Components is a value in textual form, one string per component track.
// A single-component value may be written as a plain scalar.
type Components []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Components) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*c = Components{n.Value}
	case yaml.SequenceNode:
		out := make(Components, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: value components must be scalars", item.Line)
			}
			out = append(out, item.Value)
		}
		*c = out
	default:
		return fmt.Errorf("line %d: value must be a scalar or a list", n.Line)
	}
	return nil
}

// LoadScenario reads and parses a scenario YAML file. Catalog paths are
// resolved relative to the file's directory. Returns an error if the file
// doesn't exist, is malformed, contains unknown fields (typos), or is
// missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving relative catalog paths
// against baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Catalog {
		if !filepath.IsAbs(p) && baseDir != "" {
			scenario.Catalog[i] = filepath.Join(baseDir, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Catalog) == 0 {
		return fmt.Errorf("catalog list is required and must be non-empty")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	for _, p := range s.Catalog {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", p)
		}
	}

	aliases := make(map[string]bool, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if n.Type == "" {
			return fmt.Errorf("nodes[%d]: type is required", i)
		}
		if aliases[n.ID] {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		aliases[n.ID] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(step, aliases); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, e := range s.Expect {
		if err := validateExpectation(e, aliases); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}
	return nil
}

func validateTarget(t Target, aliases map[string]bool) error {
	if t.Node == "" {
		return fmt.Errorf("node is required")
	}
	if !aliases[t.Node] {
		return fmt.Errorf("unknown node %q", t.Node)
	}
	if t.Input == "" {
		return fmt.Errorf("input is required")
	}
	return nil
}

func validateStep(s Step, aliases map[string]bool) error {
	switch s.Op {
	case OpUndo, OpRedo:
		return nil
	case "":
		return fmt.Errorf("op is required")
	case OpSetValue, OpSetKeyframing, OpInsertKeyframe, OpRemoveKeyframe,
		OpMoveKeyframe, OpSetInterpolation, OpResize, OpConnect, OpDisconnect:
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}

	if err := validateTarget(s.Target, aliases); err != nil {
		return fmt.Errorf("%s: %w", s.Op, err)
	}

	switch s.Op {
	case OpSetValue, OpInsertKeyframe:
		if !s.Time.Set {
			return fmt.Errorf("%s: time is required", s.Op)
		}
		if len(s.Value) == 0 {
			return fmt.Errorf("%s: value is required", s.Op)
		}
	case OpSetKeyframing:
		if s.Enabled == nil {
			return fmt.Errorf("%s: enabled is required", s.Op)
		}
	case OpRemoveKeyframe:
		if !s.Time.Set {
			return fmt.Errorf("%s: time is required", s.Op)
		}
	case OpMoveKeyframe:
		if !s.Time.Set || !s.To.Set {
			return fmt.Errorf("%s: time and to are required", s.Op)
		}
	case OpSetInterpolation:
		if !s.Time.Set || s.Interpolation == "" {
			return fmt.Errorf("%s: time and interpolation are required", s.Op)
		}
	case OpResize:
		if s.Size == nil || *s.Size < 0 {
			return fmt.Errorf("%s: a non-negative size is required", s.Op)
		}
	case OpConnect:
		if !aliases[s.Source] {
			return fmt.Errorf("%s: unknown source node %q", s.Op, s.Source)
		}
	}
	return nil
}

func validateExpectation(e Expectation, aliases map[string]bool) error {
	switch e.Type {
	case ExpectCanUndo, ExpectCanRedo:
		if e.Is == nil {
			return fmt.Errorf("%s: is is required", e.Type)
		}
		return nil
	case ExpectUndoText, ExpectRedoText:
		if e.Text == nil {
			return fmt.Errorf("%s: text is required", e.Type)
		}
		return nil
	case "":
		return fmt.Errorf("type is required")
	case ExpectValueAt, ExpectKeyframed, ExpectKeyframeCount, ExpectArraySize:
	default:
		return fmt.Errorf("unknown expectation type %q", e.Type)
	}

	if err := validateTarget(e.Target, aliases); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}

	switch e.Type {
	case ExpectValueAt:
		if !e.Time.Set || len(e.Value) == 0 {
			return fmt.Errorf("%s: time and value are required", e.Type)
		}
	case ExpectKeyframed:
		if e.Is == nil {
			return fmt.Errorf("%s: is is required", e.Type)
		}
	case ExpectKeyframeCount, ExpectArraySize:
		if e.Count == nil || *e.Count < 0 {
			return fmt.Errorf("%s: a non-negative count is required", e.Type)
		}
	}
	return nil
}
