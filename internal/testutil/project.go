package testutil

import "github.com/roach88/cutline/internal/graph"

// IDPrefix prefixes every id handed out by NewProject: the project is
// "id-1", its first node "id-2", and so on.
const IDPrefix = "id"

// GroupPrefix prefixes the undo group ids of NewGroupIDs.
const GroupPrefix = "group"

// NewProject creates a project whose project and node ids come from a
// sequence, so repeated runs of the same edits produce byte-identical
// traces and journals.
func NewProject(name string, opts ...graph.ProjectOption) *graph.Project {
	opts = append([]graph.ProjectOption{graph.WithIDGenerator(graph.NewSequenceGenerator(IDPrefix))}, opts...)
	return graph.NewProject(name, opts...)
}

// NewGroupIDs returns a deterministic undo group id generator: "group-1",
// "group-2", ...
func NewGroupIDs() *graph.FixedGenerator {
	return graph.NewSequenceGenerator(GroupPrefix)
}
