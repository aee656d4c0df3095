// Package catalog compiles node type definitions written in CUE into
// graph.NodeType values.
//
// A catalog file declares node types under the top-level "node" field:
//
//	node: transform: {
//		inputs: {
//			position: {type: "vec2", keyframable: true, default: [0, 0]}
//			opacity:  {type: "number", keyframable: true, default: 1}
//			points:   {type: "vec2", array: true, size: 3}
//		}
//	}
//
// Inputs keep their declaration order. Numbers are ints or rational strings
// such as "1/2"; CUE floats are rejected so that every value stays exact.
package catalog

import (
	"fmt"
	"slices"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cutline/internal/graph"
	"github.com/roach88/cutline/internal/keyframe"
	"github.com/roach88/cutline/internal/rational"
)

// Catalog is a set of node types addressable by name.
type Catalog struct {
	types  []graph.NodeType
	byName map[string]int
}

// New builds a catalog from already compiled types. Later duplicates of a
// name are rejected.
func New(types ...graph.NodeType) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]int, len(types))}
	for _, nt := range types {
		if err := c.add(nt); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(nt graph.NodeType) error {
	if _, dup := c.byName[nt.Name]; dup {
		return &CompileError{Field: "node", Message: fmt.Sprintf("duplicate node type %q", nt.Name)}
	}
	c.byName[nt.Name] = len(c.types)
	c.types = append(c.types, nt)
	return nil
}

// Lookup returns the node type called name.
func (c *Catalog) Lookup(name string) (graph.NodeType, bool) {
	i, ok := c.byName[name]
	if !ok {
		return graph.NodeType{}, false
	}
	return c.types[i], true
}

// Names returns the node type names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.types))
	for _, nt := range c.types {
		names = append(names, nt.Name)
	}
	sort.Strings(names)
	return names
}

// Types returns the node types in declaration order.
func (c *Catalog) Types() []graph.NodeType {
	return slices.Clone(c.types)
}

// Len is the number of node types.
func (c *Catalog) Len() int { return len(c.types) }

// compileValue compiles every entry under the top-level "node" field of v.
// In LoadModeFailFast it stops at the first failing node type.
func compileValue(v cue.Value, mode LoadMode) (*Catalog, []error) {
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	nodes := v.LookupPath(cue.ParsePath("node"))
	if !nodes.Exists() {
		return nil, []error{&CompileError{Field: "node", Message: "no node types declared", Pos: v.Pos()}}
	}

	iter, err := nodes.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}
	c := &Catalog{byName: make(map[string]int)}
	var errs []error
	for iter.Next() {
		nt, err := CompileNodeType(iter.Value())
		if err == nil {
			err = c.add(*nt)
		}
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return c, errs
			}
		}
	}
	return c, errs
}

// CompileNodeType parses one node type. The type name is the last label of
// v's path, e.g. for v at "node.transform" the name is "transform".
func CompileNodeType(v cue.Value) (*graph.NodeType, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nt := &graph.NodeType{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		nt.Name = labels[len(labels)-1].Unquoted()
	}
	if nt.Name == "" {
		return nil, &CompileError{Field: "node", Message: "node type needs a name", Pos: v.Pos()}
	}

	inputsVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inputsVal.Exists() {
		return nil, &CompileError{Field: "inputs", Message: "inputs are required", Pos: v.Pos()}
	}
	iter, err := inputsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		def, err := parseInput(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		nt.Inputs = append(nt.Inputs, def)
	}
	if len(nt.Inputs) == 0 {
		return nil, &CompileError{Field: "inputs", Message: "at least one input is required", Pos: inputsVal.Pos()}
	}
	return nt, nil
}

func parseInput(name string, v cue.Value) (graph.InputDef, error) {
	def := graph.InputDef{Name: name}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return def, &CompileError{Field: "type", Message: fmt.Sprintf("input %q: type is required", name), Pos: v.Pos()}
	}
	s, err := typeVal.String()
	if err != nil {
		return def, formatCUEError(err)
	}
	if def.Type, err = graph.ParseDataType(s); err != nil {
		return def, &CompileError{Field: "type", Message: fmt.Sprintf("input %q: %v", name, err), Pos: typeVal.Pos()}
	}

	for _, flag := range []struct {
		label string
		dst   *bool
	}{
		{"array", &def.Array},
		{"keyframable", &def.Keyframable},
		{"connectable", &def.Connectable},
	} {
		fv := v.LookupPath(cue.ParsePath(flag.label))
		if !fv.Exists() {
			continue
		}
		if *flag.dst, err = fv.Bool(); err != nil {
			return def, formatCUEError(err)
		}
	}

	if sv := v.LookupPath(cue.ParsePath("size")); sv.Exists() {
		if !def.Array {
			return def, &CompileError{Field: "size", Message: fmt.Sprintf("input %q: size needs array: true", name), Pos: sv.Pos()}
		}
		if sv.IncompleteKind() != cue.IntKind {
			return def, &CompileError{Field: "size", Message: fmt.Sprintf("input %q: size must be an int", name), Pos: sv.Pos()}
		}
		n, err := sv.Int64()
		if err != nil {
			return def, formatCUEError(err)
		}
		if n < 0 {
			return def, &CompileError{Field: "size", Message: fmt.Sprintf("input %q: size must not be negative", name), Pos: sv.Pos()}
		}
		def.Size = int(n)
	}

	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		if def.Default, err = parseDefault(name, def.Type, dv); err != nil {
			return def, err
		}
	}
	return def, nil
}

// parseDefault reads a default value: a scalar for single-track types, a
// list with one entry per component otherwise.
func parseDefault(name string, t graph.DataType, v cue.Value) (graph.TypedValue, error) {
	var parts []cue.Value
	if t.TrackCount() == 1 {
		parts = []cue.Value{v}
	} else {
		if v.IncompleteKind() != cue.ListKind {
			return graph.TypedValue{}, &CompileError{
				Field:   "default",
				Message: fmt.Sprintf("input %q: %s default must be a list of %d components", name, t, t.TrackCount()),
				Pos:     v.Pos(),
			}
		}
		list, err := v.List()
		if err != nil {
			return graph.TypedValue{}, formatCUEError(err)
		}
		for list.Next() {
			parts = append(parts, list.Value())
		}
		if len(parts) != t.TrackCount() {
			return graph.TypedValue{}, &CompileError{
				Field:   "default",
				Message: fmt.Sprintf("input %q: %s default needs %d components, got %d", name, t, t.TrackCount(), len(parts)),
				Pos:     v.Pos(),
			}
		}
	}

	comps := make([]keyframe.Value, len(parts))
	for i, p := range parts {
		c, err := parseScalar(name, t.TrackKind(), p)
		if err != nil {
			return graph.TypedValue{}, err
		}
		comps[i] = c
	}
	return graph.TypedValue{Type: t, Components: comps}, nil
}

func parseScalar(name string, kind keyframe.Kind, v cue.Value) (keyframe.Value, error) {
	k := v.IncompleteKind()
	if k == cue.FloatKind || k == cue.NumberKind {
		return nil, &CompileError{
			Field:   "default",
			Message: fmt.Sprintf("input %q: float values are forbidden, use an int or a rational string like \"1/2\"", name),
			Pos:     v.Pos(),
		}
	}

	switch kind {
	case keyframe.KindNumber:
		switch k {
		case cue.IntKind:
			n, err := v.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			return keyframe.Int(n), nil
		case cue.StringKind:
			s, err := v.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			r, err := rational.Parse(s)
			if err != nil {
				return nil, &CompileError{Field: "default", Message: fmt.Sprintf("input %q: %v", name, err), Pos: v.Pos()}
			}
			return keyframe.Num(r), nil
		}
	case keyframe.KindBool:
		if k == cue.BoolKind {
			b, err := v.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			return keyframe.Bool(b), nil
		}
	case keyframe.KindText:
		if k == cue.StringKind {
			s, err := v.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			return keyframe.Text(s), nil
		}
	}
	return nil, &CompileError{
		Field:   "default",
		Message: fmt.Sprintf("input %q: %s is not a valid %s default", name, k, kind),
		Pos:     v.Pos(),
	}
}

// CompileError is a catalog error with the CUE source position that caused
// it.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
