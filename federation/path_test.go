package federation

import (
	"reflect"
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func namedType(name string) ast.Type {
	return &ast.NamedType{Name: &ast.Name{Value: name}}
}

func TestAddPathScalar(t *testing.T) {
	path := AddPath(nil, "me", namedType("User"))
	want := ResponsePath{"me"}
	if !reflect.DeepEqual(path, want) {
		t.Fatalf("got %v, want %v", path, want)
	}
}

func TestAddPathList(t *testing.T) {
	listType := &ast.ListType{Type: namedType("Review")}
	path := AddPath(ResponsePath{"me"}, "reviews", listType)
	want := ResponsePath{"me", "reviews", "@"}
	if !reflect.DeepEqual(path, want) {
		t.Fatalf("got %v, want %v", path, want)
	}
}

func TestAddPathNonNullListOfNonNull(t *testing.T) {
	// [Review!]!
	inner := &ast.NonNullType{Type: namedType("Review")}
	list := &ast.ListType{Type: inner}
	outer := &ast.NonNullType{Type: list}

	path := AddPath(nil, "reviews", outer)
	want := ResponsePath{"reviews", "@"}
	if !reflect.DeepEqual(path, want) {
		t.Fatalf("got %v, want %v", path, want)
	}
}
