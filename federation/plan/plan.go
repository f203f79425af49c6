package plan

import (
	"encoding/json"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-query-planner/federation"
	"github.com/n9te9/federation-query-planner/federation/fieldset"
)

// PlanNode is one node of the executable plan tree: a Fetch, Flatten,
// Sequence, or Parallel.
type PlanNode interface {
	isPlanNode()
}

// Fetch is one planned network call against a single service.
type Fetch struct {
	ServiceName    string
	SelectionSet   []ast.Selection
	Requires       []ast.Selection
	VariableUsages []federation.VariableUsage
}

// Flatten marks that Node's result must be spliced into the parent result at Path.
type Flatten struct {
	Path federation.ResponsePath
	Node PlanNode
}

// Sequence runs its nodes in order; later nodes may depend on earlier ones'
// results having already been merged.
type Sequence struct {
	Nodes []PlanNode
}

// Parallel runs its nodes with no ordering constraint between them.
type Parallel struct {
	Nodes []PlanNode
}

// QueryPlan is the root wrapper around the plan tree. Node is nil only for an
// operation with no fields to fetch.
type QueryPlan struct {
	Node PlanNode
}

func (*Fetch) isPlanNode()    {}
func (*Flatten) isPlanNode()  {}
func (*Sequence) isPlanNode() {}
func (*Parallel) isPlanNode() {}

// Build turns a resolved operation into an executable query plan: it
// collects the root field set, partitions it into fetch groups with the
// strategy matching the operation kind, and assembles each group into a
// PlanNode tree.
func Build(opCtx *federation.OperationContext) (*QueryPlan, error) {
	ctx := federation.NewPlanningContext(opCtx)
	rootType := opCtx.Schema.RootTypeName(opCtx.Operation.Operation)

	var rootFields fieldset.FieldSet
	if err := ctx.CollectFields(rootType, opCtx.Operation.SelectionSet, &rootFields, make(map[string]bool)); err != nil {
		return nil, err
	}

	isMutation := opCtx.Operation.Operation == ast.Mutation

	var groups []*FetchGroup
	var err error
	if isMutation {
		groups, err = splitRootFieldsSerially(ctx, rootFields)
	} else {
		groups, err = splitRootFields(ctx, rootFields)
	}
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 {
		return &QueryPlan{}, nil
	}

	nodes := make([]PlanNode, 0, len(groups))
	for _, g := range groups {
		n, err := executionNodeForGroup(ctx, g)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	if len(nodes) == 1 {
		return &QueryPlan{Node: nodes[0]}, nil
	}
	if isMutation {
		return &QueryPlan{Node: &Sequence{Nodes: nodes}}, nil
	}
	return &QueryPlan{Node: &Parallel{Nodes: nodes}}, nil
}

// executionNodeForGroup materializes group's fields into a selection set,
// wraps it in Fetch (and Flatten, if non-root), then sequences in its
// dependents, parallelizing more than one.
func executionNodeForGroup(ctx *federation.PlanningContext, group *FetchGroup) (PlanNode, error) {
	selectionSet := fieldset.ToSelectionSet(group.Fields)

	var requires []ast.Selection
	if len(group.RequiredFields) > 0 {
		requires = fieldset.ToSelectionSet(group.RequiredFields)
	}

	usages, err := groupVariableUsages(ctx, group)
	if err != nil {
		return nil, err
	}

	var node PlanNode = &Fetch{
		ServiceName:    group.ServiceName,
		SelectionSet:   selectionSet,
		Requires:       requires,
		VariableUsages: usages,
	}

	if len(group.MergeAt) > 0 {
		node = &Flatten{Path: group.MergeAt, Node: node}
	}

	deps := group.DependentGroups()
	if len(deps) == 0 {
		return node, nil
	}

	depNodes := make([]PlanNode, 0, len(deps))
	for _, dg := range deps {
		dn, err := executionNodeForGroup(ctx, dg)
		if err != nil {
			return nil, err
		}
		depNodes = append(depNodes, dn)
	}

	var depsNode PlanNode
	if len(depNodes) == 1 {
		depsNode = depNodes[0]
	} else {
		depsNode = &Parallel{Nodes: depNodes}
	}

	return &Sequence{Nodes: []PlanNode{node, depsNode}}, nil
}

func groupVariableUsages(ctx *federation.PlanningContext, group *FetchGroup) ([]federation.VariableUsage, error) {
	var usages []federation.VariableUsage
	for _, f := range group.Fields {
		u, err := ctx.GetVariableUsages(f.ParentType, []ast.Selection{f.Node})
		if err != nil {
			return nil, err
		}
		usages = append(usages, u...)
	}
	return usages, nil
}

// jsonSelection is the JSON-serializable rendering of an ast.Selection,
// grounded in the teacher's selection-writing conventions
// (federation/executor/query_builder_v2.go's writeSelection) but producing a
// structured tree instead of query text, since the planner never serializes
// to a query string itself.
type jsonSelection struct {
	Kind          string            `json:"kind"`
	Name          string            `json:"name,omitempty"`
	Alias         string            `json:"alias,omitempty"`
	TypeCondition string            `json:"typeCondition,omitempty"`
	Arguments     map[string]string `json:"arguments,omitempty"`
	SelectionSet  []jsonSelection   `json:"selectionSet,omitempty"`
}

func toJSONSelectionSet(sels []ast.Selection) []jsonSelection {
	if len(sels) == 0 {
		return nil
	}
	out := make([]jsonSelection, 0, len(sels))
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			js := jsonSelection{Kind: "Field", Name: s.Name.String()}
			if s.Alias != nil && s.Alias.String() != "" {
				js.Alias = s.Alias.String()
			}
			if len(s.Arguments) > 0 {
				js.Arguments = make(map[string]string, len(s.Arguments))
				for _, arg := range s.Arguments {
					js.Arguments[arg.Name.String()] = fieldset.ValueString(arg.Value)
				}
			}
			js.SelectionSet = toJSONSelectionSet(s.SelectionSet)
			out = append(out, js)
		case *ast.InlineFragment:
			js := jsonSelection{Kind: "InlineFragment"}
			if s.TypeCondition != nil {
				js.TypeCondition = s.TypeCondition.Name.String()
			}
			js.SelectionSet = toJSONSelectionSet(s.SelectionSet)
			out = append(out, js)
		case *ast.FragmentSpread:
			out = append(out, jsonSelection{Kind: "FragmentSpread", Name: s.Name.String()})
		}
	}
	return out
}

type fetchJSON struct {
	Kind           string          `json:"kind"`
	ServiceName    string          `json:"serviceName"`
	SelectionSet   []jsonSelection `json:"selectionSet"`
	Requires       []jsonSelection `json:"requires,omitempty"`
	VariableUsages []string        `json:"variableUsages"`
}

// MarshalJSON renders the Fetch as { kind: "Fetch", serviceName, selectionSet, requires?, variableUsages }.
func (f *Fetch) MarshalJSON() ([]byte, error) {
	varNames := []string{}
	for _, u := range f.VariableUsages {
		if u.Node != nil {
			varNames = append(varNames, u.Node.Name)
		}
	}
	return json.Marshal(fetchJSON{
		Kind:           "Fetch",
		ServiceName:    f.ServiceName,
		SelectionSet:   toJSONSelectionSet(f.SelectionSet),
		Requires:       toJSONSelectionSet(f.Requires),
		VariableUsages: varNames,
	})
}

type flattenJSON struct {
	Kind string   `json:"kind"`
	Path []string `json:"path"`
	Node PlanNode `json:"node"`
}

// MarshalJSON renders the Flatten as { kind: "Flatten", path, node }.
func (f *Flatten) MarshalJSON() ([]byte, error) {
	path := []string(f.Path)
	if path == nil {
		path = []string{}
	}
	return json.Marshal(flattenJSON{Kind: "Flatten", Path: path, Node: f.Node})
}

type sequenceJSON struct {
	Kind  string     `json:"kind"`
	Nodes []PlanNode `json:"nodes"`
}

// MarshalJSON renders the Sequence as { kind: "Sequence", nodes }.
func (s *Sequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(sequenceJSON{Kind: "Sequence", Nodes: s.Nodes})
}

type parallelJSON struct {
	Kind  string     `json:"kind"`
	Nodes []PlanNode `json:"nodes"`
}

// MarshalJSON renders the Parallel as { kind: "Parallel", nodes }.
func (p *Parallel) MarshalJSON() ([]byte, error) {
	return json.Marshal(parallelJSON{Kind: "Parallel", Nodes: p.Nodes})
}

type queryPlanJSON struct {
	Kind string   `json:"kind"`
	Node PlanNode `json:"node,omitempty"`
}

// MarshalJSON renders the QueryPlan as { kind: "QueryPlan", node? }.
func (qp *QueryPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(queryPlanJSON{Kind: "QueryPlan", Node: qp.Node})
}
