package federation

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

// A field declared directly on an interface type, and selected without an
// inline fragment, must resolve — this is ordinary valid GraphQL and the
// shape the splitter's abstract-type branch depends on ever seeing a
// FieldDef at all.
func TestGetFieldDefResolvesInterfaceOwnFields(t *testing.T) {
	media := &ast.InterfaceTypeDefinition{
		Name: &ast.Name{Value: "Media"},
		Fields: []*ast.FieldDefinition{
			{Name: &ast.Name{Value: "id"}, Type: &ast.NamedType{Name: &ast.Name{Value: "ID"}}},
			{Name: &ast.Name{Value: "title"}, Type: &ast.NamedType{Name: &ast.Name{Value: "String"}}},
		},
	}
	doc := &ast.Document{Definitions: []ast.Definition{media}}
	schema, err := NewSchema(doc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	opCtx := &OperationContext{Schema: schema, Fragments: map[string]*ast.FragmentDefinition{}}
	ctx := NewPlanningContext(opCtx)

	titleField := &ast.Field{Name: &ast.Name{Value: "title"}}
	fd, err := ctx.GetFieldDef("Media", titleField)
	if err != nil {
		t.Fatalf("GetFieldDef(Media, title): %v", err)
	}
	if fd.Name != "title" {
		t.Fatalf("expected field def for title, got %+v", fd)
	}

	idField := &ast.Field{Name: &ast.Name{Value: "id"}}
	if _, err := ctx.GetFieldDef("Media", idField); err != nil {
		t.Fatalf("GetFieldDef(Media, id): %v", err)
	}
}

// A field that exists on neither the interface nor any object type must
// still be rejected as unknown.
func TestGetFieldDefRejectsUnknownInterfaceField(t *testing.T) {
	media := &ast.InterfaceTypeDefinition{
		Name: &ast.Name{Value: "Media"},
		Fields: []*ast.FieldDefinition{
			{Name: &ast.Name{Value: "id"}, Type: &ast.NamedType{Name: &ast.Name{Value: "ID"}}},
		},
	}
	doc := &ast.Document{Definitions: []ast.Definition{media}}
	schema, err := NewSchema(doc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	opCtx := &OperationContext{Schema: schema, Fragments: map[string]*ast.FragmentDefinition{}}
	ctx := NewPlanningContext(opCtx)

	unknown := &ast.Field{Name: &ast.Name{Value: "runtime"}}
	_, err = ctx.GetFieldDef("Media", unknown)
	assertKind(t, err, ErrUnknownField)
}
