package federation

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func stringArgNode(name, value string) *ast.Argument {
	return &ast.Argument{Name: &ast.Name{Value: name}, Value: &ast.StringValue{Value: value}}
}

func directive(name string, args ...*ast.Argument) *ast.Directive {
	return &ast.Directive{Name: name, Arguments: args}
}

func TestNewSchemaParsesBaseServiceAndKeys(t *testing.T) {
	product := &ast.ObjectTypeDefinition{
		Name: &ast.Name{Value: "Product"},
		Directives: []*ast.Directive{
			directive("service", stringArgNode("name", "catalog")),
			directive("key", stringArgNode("service", "catalog"), stringArgNode("fields", "id")),
		},
		Fields: []*ast.FieldDefinition{
			{Name: &ast.Name{Value: "id"}, Type: namedType("ID")},
			{Name: &ast.Name{Value: "name"}, Type: namedType("String")},
		},
	}

	doc := &ast.Document{Definitions: []ast.Definition{product}}

	schema, err := NewSchema(doc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	obj := schema.ObjectTypeByName("Product")
	if obj == nil {
		t.Fatal("expected Product to be registered")
	}
	if obj.ServiceName != "catalog" {
		t.Fatalf("expected base service catalog, got %q", obj.ServiceName)
	}
	key, ok := obj.Keys["catalog"]
	if !ok || len(key) != 1 {
		t.Fatalf("expected a single-field key for catalog, got %v", key)
	}
}

func TestNewSchemaOnlyFirstKeyPerServiceWins(t *testing.T) {
	product := &ast.ObjectTypeDefinition{
		Name: &ast.Name{Value: "Product"},
		Directives: []*ast.Directive{
			directive("key", stringArgNode("service", "catalog"), stringArgNode("fields", "id")),
			directive("key", stringArgNode("service", "catalog"), stringArgNode("fields", "upc")),
		},
		Fields: []*ast.FieldDefinition{
			{Name: &ast.Name{Value: "id"}, Type: namedType("ID")},
			{Name: &ast.Name{Value: "upc"}, Type: namedType("String")},
		},
	}
	doc := &ast.Document{Definitions: []ast.Definition{product}}

	schema, err := NewSchema(doc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	key := schema.ObjectTypeByName("Product").Keys["catalog"]
	if len(key) != 1 || key[0].(*ast.Field).Name.String() != "id" {
		t.Fatalf("expected first declared key (id) to win, got %v", key)
	}
}

func TestNewSchemaExtensionMergesExternalFields(t *testing.T) {
	product := &ast.ObjectTypeDefinition{
		Name: &ast.Name{Value: "Product"},
		Directives: []*ast.Directive{
			directive("service", stringArgNode("name", "catalog")),
			directive("key", stringArgNode("service", "catalog"), stringArgNode("fields", "id")),
		},
		Fields: []*ast.FieldDefinition{
			{Name: &ast.Name{Value: "id"}, Type: namedType("ID")},
		},
	}
	extension := &ast.ObjectTypeExtension{
		Name: &ast.Name{Value: "Product"},
		Directives: []*ast.Directive{
			directive("key", stringArgNode("service", "reviews"), stringArgNode("fields", "id")),
		},
		Fields: []*ast.FieldDefinition{
			{
				Name: &ast.Name{Value: "id"},
				Type: namedType("ID"),
				Directives: []*ast.Directive{
					directive("external", stringArgNode("service", "reviews")),
				},
			},
			{
				Name:       &ast.Name{Value: "reviews"},
				Type:       &ast.ListType{Type: namedType("Review")},
				Directives: []*ast.Directive{directive("owner", stringArgNode("service", "reviews"))},
			},
		},
	}

	doc := &ast.Document{Definitions: []ast.Definition{product, extension}}

	schema, err := NewSchema(doc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	obj := schema.ObjectTypeByName("Product")
	if !obj.Externals["reviews"]["id"] {
		t.Fatalf("expected id to be external in reviews, got %v", obj.Externals)
	}
	reviewsField, ok := obj.Fields["reviews"]
	if !ok {
		t.Fatal("expected reviews field to be merged in")
	}
	if reviewsField.ServiceName != "reviews" {
		t.Fatalf("expected reviews field owner to be reviews, got %q", reviewsField.ServiceName)
	}
}

func TestPossibleTypesForInterface(t *testing.T) {
	media := &ast.InterfaceTypeDefinition{Name: &ast.Name{Value: "Media"}}
	book := &ast.ObjectTypeDefinition{
		Name:       &ast.Name{Value: "Book"},
		Interfaces: []*ast.NamedType{{Name: &ast.Name{Value: "Media"}}},
	}
	movie := &ast.ObjectTypeDefinition{
		Name:       &ast.Name{Value: "Movie"},
		Interfaces: []*ast.NamedType{{Name: &ast.Name{Value: "Media"}}},
	}

	doc := &ast.Document{Definitions: []ast.Definition{media, book, movie}}
	schema, err := NewSchema(doc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	possible := schema.PossibleTypes("Media")
	if len(possible) != 2 {
		t.Fatalf("expected 2 possible types, got %v", possible)
	}
}

func TestNewSchemaParsesInterfaceFields(t *testing.T) {
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

	iface := schema.InterfaceTypeByName("Media")
	if iface == nil {
		t.Fatalf("expected Media interface to be registered")
	}
	if len(iface.Fields) != 2 {
		t.Fatalf("expected 2 parsed fields, got %d: %+v", len(iface.Fields), iface.Fields)
	}
	if _, ok := iface.Fields["title"]; !ok {
		t.Fatalf("expected Media.title to be parsed, got %+v", iface.Fields)
	}
}
