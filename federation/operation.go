package federation

import "github.com/n9te9/graphql-parser/ast"

// OperationContext is the result of resolving a single operation out of a
// parsed document: the target operation definition plus every named
// fragment available to it.
type OperationContext struct {
	Schema    *Schema
	Operation *ast.OperationDefinition
	Fragments map[string]*ast.FragmentDefinition
}

// BuildOperationContext walks the document's top-level definitions once,
// collecting fragments and selecting the target operation. It does not
// validate the operation against the schema beyond what planning itself
// requires; that is upstream's job.
func BuildOperationContext(schema *Schema, doc *ast.Document, operationName string) (*OperationContext, error) {
	fragments := make(map[string]*ast.FragmentDefinition)
	var operations []*ast.OperationDefinition

	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.FragmentDefinition:
			fragments[d.Name.String()] = d
		case *ast.OperationDefinition:
			operations = append(operations, d)
		}
	}

	op, err := selectOperation(operations, operationName)
	if err != nil {
		return nil, err
	}

	if op.Operation == ast.Subscription {
		return nil, newError(ErrSubscriptionsUnsupported, []ast.Node{op}, "subscriptions are not supported by this planner")
	}

	return &OperationContext{Schema: schema, Operation: op, Fragments: fragments}, nil
}

func selectOperation(operations []*ast.OperationDefinition, operationName string) (*ast.OperationDefinition, error) {
	if operationName != "" {
		for _, op := range operations {
			if op.Name != nil && op.Name.String() == operationName {
				return op, nil
			}
		}
		return nil, newError(ErrUnknownOperation, nil, "no operation named %q in document", operationName)
	}

	switch len(operations) {
	case 0:
		return nil, newError(ErrMissingOperation, nil, "document contains no operation definitions")
	case 1:
		return operations[0], nil
	default:
		nodes := make([]ast.Node, len(operations))
		for i, op := range operations {
			nodes[i] = op
		}
		return nil, newError(ErrAmbiguousOperation, nodes, "document contains %d operations; an operation name is required", len(operations))
	}
}
