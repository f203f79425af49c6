package federation

import (
	"errors"
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func opDef(name string, opType ast.OperationType) *ast.OperationDefinition {
	var n *ast.Name
	if name != "" {
		n = &ast.Name{Value: name}
	}
	return &ast.OperationDefinition{Name: n, Operation: opType}
}

func TestBuildOperationContextSingleOperation(t *testing.T) {
	doc := &ast.Document{Definitions: []ast.Definition{opDef("", ast.Query)}}

	opCtx, err := BuildOperationContext(&Schema{}, doc, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opCtx.Operation.Operation != ast.Query {
		t.Fatalf("expected query operation")
	}
}

func TestBuildOperationContextMissingOperation(t *testing.T) {
	doc := &ast.Document{}
	_, err := BuildOperationContext(&Schema{}, doc, "")
	assertKind(t, err, ErrMissingOperation)
}

func TestBuildOperationContextAmbiguousOperation(t *testing.T) {
	doc := &ast.Document{Definitions: []ast.Definition{
		opDef("A", ast.Query),
		opDef("B", ast.Query),
	}}
	_, err := BuildOperationContext(&Schema{}, doc, "")
	assertKind(t, err, ErrAmbiguousOperation)
}

func TestBuildOperationContextUnknownOperation(t *testing.T) {
	doc := &ast.Document{Definitions: []ast.Definition{opDef("A", ast.Query)}}
	_, err := BuildOperationContext(&Schema{}, doc, "B")
	assertKind(t, err, ErrUnknownOperation)
}

func TestBuildOperationContextRejectsSubscriptions(t *testing.T) {
	doc := &ast.Document{Definitions: []ast.Definition{opDef("", ast.Subscription)}}
	_, err := BuildOperationContext(&Schema{}, doc, "")
	assertKind(t, err, ErrSubscriptionsUnsupported)
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an error of kind %s, got nil", kind)
	}
	var fedErr *Error
	if !errors.As(err, &fedErr) {
		t.Fatalf("expected *federation.Error, got %T", err)
	}
	if !errors.Is(fedErr, &Error{Kind: kind}) {
		t.Fatalf("expected kind %s, got %s", kind, fedErr.Kind)
	}
}
