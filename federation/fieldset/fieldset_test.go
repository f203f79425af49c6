package fieldset

import (
	"reflect"
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func field(name string) *ast.Field {
	return &ast.Field{Name: &ast.Name{Value: name}}
}

func TestGroupByResponseNamePreservesOrder(t *testing.T) {
	fs := FieldSet{
		{ParentType: "User", Node: field("id")},
		{ParentType: "User", Node: field("name")},
		{ParentType: "User", Node: field("id")},
	}

	groups := fs.GroupByResponseName()
	if len(groups) != 2 {
		t.Fatalf("expected 2 response-name groups, got %d", len(groups))
	}
	if groups[0].ResponseName != "id" || groups[1].ResponseName != "name" {
		t.Fatalf("unexpected group order: %+v", groups)
	}
	if len(groups[0].Fields) != 2 {
		t.Fatalf("expected id group to have 2 fields, got %d", len(groups[0].Fields))
	}
}

func TestGroupByParentTypePreservesOrder(t *testing.T) {
	fs := FieldSet{
		{ParentType: "Book", Node: field("title")},
		{ParentType: "Movie", Node: field("title")},
		{ParentType: "Book", Node: field("title")},
	}

	groups := fs.GroupByParentType()
	if len(groups) != 2 {
		t.Fatalf("expected 2 parent-type groups, got %d", len(groups))
	}
	if groups[0].ParentType != "Book" || groups[1].ParentType != "Movie" {
		t.Fatalf("unexpected group order: %+v", groups)
	}
}

func TestMatchesFieldComparesNameAliasAndArguments(t *testing.T) {
	a := &ast.Field{
		Name:      &ast.Name{Value: "product"},
		Arguments: []*ast.Argument{{Name: &ast.Name{Value: "id"}, Value: &ast.StringValue{Value: "1"}}},
	}
	b := &ast.Field{
		Name:      &ast.Name{Value: "product"},
		Arguments: []*ast.Argument{{Name: &ast.Name{Value: "id"}, Value: &ast.StringValue{Value: "1"}}},
	}
	c := &ast.Field{
		Name:      &ast.Name{Value: "product"},
		Arguments: []*ast.Argument{{Name: &ast.Name{Value: "id"}, Value: &ast.StringValue{Value: "2"}}},
	}

	if !MatchesField(a, b) {
		t.Fatalf("expected a and b to match")
	}
	if MatchesField(a, c) {
		t.Fatalf("expected a and c not to match: differing argument value")
	}
}

func TestToSelectionSetMergesSameResponseNameAndParentType(t *testing.T) {
	nameField := field("name")
	nameField2 := field("name")
	fs := FieldSet{
		{ParentType: "User", Node: nameField},
		{ParentType: "User", Node: nameField2},
	}

	sels := ToSelectionSet(fs)
	if len(sels) != 1 {
		t.Fatalf("expected a single merged selection, got %d", len(sels))
	}
}

func TestToSelectionSetWrapsDivergentParentTypesInInlineFragments(t *testing.T) {
	fs := FieldSet{
		{ParentType: "Book", Node: field("title")},
		{ParentType: "Movie", Node: field("title")},
	}

	sels := ToSelectionSet(fs)
	if len(sels) != 2 {
		t.Fatalf("expected 2 selections (one per parent type), got %d", len(sels))
	}
	for _, sel := range sels {
		if _, ok := sel.(*ast.InlineFragment); !ok {
			t.Fatalf("expected inline fragments for divergent parent types, got %T", sel)
		}
	}
}

func TestToSelectionSetIsDeterministic(t *testing.T) {
	fs := FieldSet{
		{ParentType: "User", Node: field("id")},
		{ParentType: "User", Node: field("name")},
	}

	first := ToSelectionSet(fs)
	second := ToSelectionSet(fs)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output across runs, got %+v and %+v", first, second)
	}
}
