// Package federation models a composed, federation-annotated GraphQL schema
// and the operation and planning contexts that package federation/plan builds
// executable query plans from. Schema composition itself is
// out of scope here: NewSchema assumes its input document already carries
// every type and field from every service, tagged with the directive
// convention documented in SPEC_FULL.md.
package federation

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/token"
)

// Schema is the read-only, per-request-immutable federation annotation model
// described in spec.md §3. It is built once from a composed document and
// reused across any number of planning invocations.
type Schema struct {
	Doc *ast.Document

	queryType        string
	mutationType     string
	subscriptionType string

	objects    map[string]*ObjectType
	interfaces map[string]*InterfaceType
	unions     map[string]*UnionType

	// possibleTypes caches abstract-type expansion: interface/union name -> concrete object type names.
	possibleTypes map[string][]string
}

// ObjectType is a GraphQL object type plus the federation metadata attached
// to it: the service that owns its identity, the key selections usable to
// enter it from each service, and which fields each service declares
// external.
type ObjectType struct {
	Name       string
	Def        *ast.ObjectTypeDefinition
	Interfaces []string

	// ServiceName is the base service: the service that owns this type's identity and keys.
	ServiceName string

	// Keys maps service name to the selection sets usable to enter this type from that service.
	// Only the first declared key per service is ever consulted by the planner (spec §9).
	Keys map[string][]ast.Selection

	// Externals maps service name to the set of field names declared @external in that service.
	Externals map[string]map[string]bool

	Fields map[string]*FieldDef
}

// FieldDef is a field definition plus the federation metadata attached to it:
// its owning service (if it differs from the parent type's base service),
// and any @requires/@provides selections.
type FieldDef struct {
	Name string
	Def  *ast.FieldDefinition

	// ServiceName is the owning service override. Empty means "inherits the parent type's base service".
	ServiceName string

	Requires []ast.Selection
	Provides []ast.Selection
}

// InterfaceType is a GraphQL interface type definition, carrying its own
// field definitions so fields selected directly on the interface (no inline
// fragment) resolve without the splitter ever consulting a concrete type.
type InterfaceType struct {
	Name   string
	Def    *ast.InterfaceTypeDefinition
	Fields map[string]*FieldDef
}

// UnionType is a GraphQL union type definition.
type UnionType struct {
	Name string
	Def  *ast.UnionTypeDefinition
}

// NewSchema builds a Schema from a composed document, extracting federation
// metadata from the directive convention described in SPEC_FULL.md §3.
func NewSchema(doc *ast.Document) (*Schema, error) {
	s := &Schema{
		Doc:           doc,
		objects:       make(map[string]*ObjectType),
		interfaces:    make(map[string]*InterfaceType),
		unions:        make(map[string]*UnionType),
		possibleTypes: make(map[string][]string),

		queryType:        "Query",
		mutationType:     "Mutation",
		subscriptionType: "Subscription",
	}

	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.SchemaDefinition:
			s.applySchemaDefinition(d)
		case *ast.ObjectTypeDefinition:
			s.objects[d.Name.String()] = newObjectType(d)
		case *ast.ObjectTypeExtension:
			s.mergeObjectTypeExtension(d)
		case *ast.InterfaceTypeDefinition:
			s.interfaces[d.Name.String()] = newInterfaceType(d)
		case *ast.UnionTypeDefinition:
			name := d.Name.String()
			s.unions[name] = &UnionType{Name: name, Def: d}
			for _, t := range d.Types {
				s.possibleTypes[name] = append(s.possibleTypes[name], t.Name.String())
			}
		}
	}

	for name, iface := range s.interfaces {
		for _, obj := range s.objects {
			if containsString(obj.Interfaces, name) {
				s.possibleTypes[name] = append(s.possibleTypes[name], obj.Name)
			}
		}
		_ = iface
	}

	return s, nil
}

func (s *Schema) applySchemaDefinition(d *ast.SchemaDefinition) {
	for _, ot := range d.OperationTypes {
		switch ot.Operation {
		case token.QUERY:
			s.queryType = ot.Type.Name.String()
		case token.MUTATION:
			s.mutationType = ot.Type.Name.String()
		case token.SUBSCRIPTION:
			s.subscriptionType = ot.Type.Name.String()
		}
	}
}

// RootTypeName returns the object type name backing the given root operation kind.
func (s *Schema) RootTypeName(op ast.OperationType) string {
	switch op {
	case ast.Mutation:
		return s.mutationType
	case ast.Subscription:
		return s.subscriptionType
	default:
		return s.queryType
	}
}

// ObjectTypeByName returns the object type definition, or nil if unknown.
func (s *Schema) ObjectTypeByName(name string) *ObjectType {
	return s.objects[name]
}

// InterfaceTypeByName returns the interface type definition, or nil if unknown.
func (s *Schema) InterfaceTypeByName(name string) *InterfaceType {
	return s.interfaces[name]
}

// UnionTypeByName returns the union type definition, or nil if unknown.
func (s *Schema) UnionTypeByName(name string) *UnionType {
	return s.unions[name]
}

// IsAbstractType reports whether name names an interface or union.
func (s *Schema) IsAbstractType(name string) bool {
	if _, ok := s.interfaces[name]; ok {
		return true
	}
	_, ok := s.unions[name]
	return ok
}

// IsCompositeType reports whether name names an object, interface, or union.
func (s *Schema) IsCompositeType(name string) bool {
	if _, ok := s.objects[name]; ok {
		return true
	}
	return s.IsAbstractType(name)
}

// PossibleTypes backs PlanningContext.GetPossibleTypes: for an abstract
// type, its concrete implementations/members; for an object type, itself.
func (s *Schema) PossibleTypes(typeName string) []string {
	if _, ok := s.objects[typeName]; ok {
		return []string{typeName}
	}
	return s.possibleTypes[typeName]
}

// newInterfaceType parses field definitions off an interface type so a field
// selected directly on the interface (no inline fragment) resolves without
// requiring the splitter to already know a concrete runtime type.
func newInterfaceType(d *ast.InterfaceTypeDefinition) *InterfaceType {
	iface := &InterfaceType{
		Name:   d.Name.String(),
		Def:    d,
		Fields: make(map[string]*FieldDef),
	}
	for _, f := range d.Fields {
		iface.Fields[f.Name.String()] = newFieldDef(f)
	}
	return iface
}

func newObjectType(d *ast.ObjectTypeDefinition) *ObjectType {
	obj := &ObjectType{
		Name:      d.Name.String(),
		Def:       d,
		Keys:      make(map[string][]ast.Selection),
		Externals: make(map[string]map[string]bool),
		Fields:    make(map[string]*FieldDef),
	}
	for _, i := range d.Interfaces {
		obj.Interfaces = append(obj.Interfaces, i.Name.String())
	}

	for _, dir := range d.Directives {
		switch dir.Name {
		case "service":
			if name := stringArg(dir, "name"); name != "" {
				obj.ServiceName = name
			}
		case "key":
			service := stringArg(dir, "service")
			if service == "" {
				continue
			}
			if _, exists := obj.Keys[service]; exists {
				// only the first declared key per (type, service) is used.
				continue
			}
			fields := stringArg(dir, "fields")
			obj.Keys[service] = parseFieldSet(fields)
		}
	}

	for _, f := range d.Fields {
		obj.Fields[f.Name.String()] = newFieldDef(f)
	}

	return obj
}

func newFieldDef(f *ast.FieldDefinition) *FieldDef {
	fd := &FieldDef{Name: f.Name.String(), Def: f}
	for _, dir := range f.Directives {
		switch dir.Name {
		case "owner":
			if svc := stringArg(dir, "service"); svc != "" {
				fd.ServiceName = svc
			}
		case "requires":
			fd.Requires = append(fd.Requires, parseFieldSet(stringArg(dir, "fields"))...)
		case "provides":
			fd.Provides = append(fd.Provides, parseFieldSet(stringArg(dir, "fields"))...)
		}
	}
	return fd
}

// mergeObjectTypeExtension folds an ObjectTypeExtension's fields and
// directives into the base ObjectTypeDefinition, creating the base entry if
// the extension arrived first (the document may list extensions before the
// type they extend).
func (s *Schema) mergeObjectTypeExtension(ext *ast.ObjectTypeExtension) {
	name := ext.Name.String()
	obj, ok := s.objects[name]
	if !ok {
		obj = &ObjectType{
			Name:      name,
			Keys:      make(map[string][]ast.Selection),
			Externals: make(map[string]map[string]bool),
			Fields:    make(map[string]*FieldDef),
		}
		s.objects[name] = obj
	}

	for _, dir := range ext.Directives {
		switch dir.Name {
		case "key":
			service := stringArg(dir, "service")
			if service == "" {
				continue
			}
			if _, exists := obj.Keys[service]; exists {
				continue
			}
			obj.Keys[service] = parseFieldSet(stringArg(dir, "fields"))
		}
	}

	for _, f := range ext.Fields {
		fd := newFieldDef(f)
		obj.Fields[fd.Name] = fd
		for _, dir := range f.Directives {
			if dir.Name == "external" {
				svc := stringArg(dir, "service")
				if svc == "" {
					continue
				}
				if obj.Externals[svc] == nil {
					obj.Externals[svc] = make(map[string]bool)
				}
				obj.Externals[svc][fd.Name] = true
			}
		}
	}
}

func stringArg(dir *ast.Directive, name string) string {
	for _, arg := range dir.Arguments {
		if arg.Name.String() != name {
			continue
		}
		if sv, ok := arg.Value.(*ast.StringValue); ok {
			return sv.Value
		}
		return fmt.Sprint(arg.Value)
	}
	return ""
}

// parseFieldSet parses a minimal federation field-set string ("id" or
// "id weight") into leaf Field selections. Nested field sets ("price { amount
// currency }") are not needed by anything in this repo's test schemas, but
// the planner only ever re-expands these under a concrete parent type via
// expandFieldSet, so a richer grammar can be layered in without touching
// callers.
func parseFieldSet(raw string) []ast.Selection {
	names := splitFields(raw)
	sels := make([]ast.Selection, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		sels = append(sels, &ast.Field{Name: &ast.Name{Value: n}})
	}
	return sels
}

func splitFields(raw string) []string {
	var out []string
	cur := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == ' ' || c == '\t' || c == '\n' {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
