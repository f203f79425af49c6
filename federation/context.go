package federation

import (
	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-query-planner/federation/fieldset"
)

// VariableUsage is one reference to a variable found while walking a
// selection set, together with the input type it was used as and the
// effective default value for that usage.
type VariableUsage struct {
	Node         *ast.Variable
	InputType    ast.Type
	DefaultValue ast.Value
}

// PlanningContext wraps an OperationContext with the cached accessors the
// splitter needs: field-definition lookup, possible-types expansion,
// variable-usage extraction, and federation metadata resolution.
type PlanningContext struct {
	Op     *OperationContext
	Schema *Schema

	fieldDefCache map[string]map[string]*FieldDef
}

// NewPlanningContext builds a PlanningContext for a single planning invocation.
// It is not shared across requests.
func NewPlanningContext(op *OperationContext) *PlanningContext {
	return &PlanningContext{
		Op:            op,
		Schema:        op.Schema,
		fieldDefCache: make(map[string]map[string]*FieldDef),
	}
}

// GetFieldDef resolves node's field definition against parentType, caching
// the per-type field map on first use.
func (c *PlanningContext) GetFieldDef(parentType string, node *ast.Field) (*FieldDef, error) {
	fields, ok := c.fieldDefCache[parentType]
	if !ok {
		fields = make(map[string]*FieldDef)
		if obj := c.Schema.ObjectTypeByName(parentType); obj != nil {
			fields = obj.Fields
		} else if iface := c.Schema.InterfaceTypeByName(parentType); iface != nil {
			fields = iface.Fields
		}
		c.fieldDefCache[parentType] = fields
	}

	name := node.Name.String()
	if name == "__typename" {
		return typenameFieldDef, nil
	}

	fd, ok := fields[name]
	if !ok {
		return nil, newError(ErrUnknownField, []ast.Node{node}, "unknown field %q on type %q", name, parentType)
	}
	return fd, nil
}

// typenameFieldDef is a synthetic definition for the introspection
// meta-field, which has no entry in any ObjectType.Fields map.
var typenameFieldDef = &FieldDef{Name: "__typename"}

// GetPossibleTypes returns typeName itself for an object type, or its
// implementations/members for an interface or union.
func (c *PlanningContext) GetPossibleTypes(typeName string) []string {
	return c.Schema.PossibleTypes(typeName)
}

// GetBaseService returns the base (identity-owning) service for a composite type.
func (c *PlanningContext) GetBaseService(typeName string) (string, error) {
	obj := c.Schema.ObjectTypeByName(typeName)
	if obj == nil || obj.ServiceName == "" {
		return "", newError(ErrMissingBaseService, nil, "type %q has no base service", typeName)
	}
	return obj.ServiceName, nil
}

// GetOwningService returns the service that resolves parentType.field,
// falling back to the type's base service when the field has no override.
func (c *PlanningContext) GetOwningService(parentType string, field *FieldDef) (string, error) {
	if field.ServiceName != "" {
		return field.ServiceName, nil
	}
	obj := c.Schema.ObjectTypeByName(parentType)
	if obj == nil || obj.ServiceName == "" {
		return "", newError(ErrMissingOwningService, nil, "field %q on type %q has no owning or base service", field.Name, parentType)
	}
	return obj.ServiceName, nil
}

// GetKeyFields returns __typename plus, for every possible concrete type of
// parentType, the first declared key selection for service, expanded under
// that concrete type. If a concrete type declares no key for service, it
// contributes nothing beyond __typename.
func (c *PlanningContext) GetKeyFields(parentType, service string) fieldset.FieldSet {
	out := fieldset.FieldSet{typenameField(parentType)}
	for _, concrete := range c.GetPossibleTypes(parentType) {
		obj := c.Schema.ObjectTypeByName(concrete)
		if obj == nil {
			continue
		}
		key, ok := obj.Keys[service]
		if !ok || len(key) == 0 {
			continue
		}
		out = append(out, c.expandFieldSet(concrete, key)...)
	}
	return out
}

// GetRequiredFields is GetKeyFields plus any @requires selection for field,
// declared on parentType, expanded under parentType.
func (c *PlanningContext) GetRequiredFields(parentType string, field *FieldDef, service string) fieldset.FieldSet {
	out := c.GetKeyFields(parentType, service)
	if len(field.Requires) > 0 {
		out = append(out, c.expandFieldSet(parentType, field.Requires)...)
	}
	return out
}

// GetProvidedFields returns the fields a resolver for field returns inline:
// when the field's named return type is composite, the key fields of that
// type plus any @provides selection, expanded under the return type.
// Otherwise empty.
func (c *PlanningContext) GetProvidedFields(field *FieldDef, service string) fieldset.FieldSet {
	returnType := getNamedType(field.Def.Type)
	if !c.Schema.IsCompositeType(returnType) {
		return nil
	}
	out := c.GetKeyFields(returnType, service)
	if len(field.Provides) > 0 {
		out = append(out, c.expandFieldSet(returnType, field.Provides)...)
	}
	return out
}

// expandFieldSet resolves a flat field-set selection (as parsed off a
// directive string) into fieldset.Fields under concreteType.
func (c *PlanningContext) expandFieldSet(concreteType string, sels []ast.Selection) fieldset.FieldSet {
	var out fieldset.FieldSet
	for _, sel := range sels {
		f, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		fd, err := c.GetFieldDef(concreteType, f)
		if err != nil {
			continue
		}
		out = append(out, fieldset.Field{ParentType: concreteType, Node: f, Def: fd.Def})
	}
	return out
}

func typenameField(parentType string) fieldset.Field {
	node := &ast.Field{Name: &ast.Name{Value: "__typename"}}
	return fieldset.Field{ParentType: parentType, Node: node, Def: typenameFieldDef.Def}
}

// GetVariableUsages walks selectionSet under parentType with a type-tracking
// visitor and returns, for each variable reference, its input type and
// effective default (the operation's variable-definition default overrides
// the schema's input default). Variable definitions themselves are never
// reported.
func (c *PlanningContext) GetVariableUsages(parentType string, selectionSet []ast.Selection) ([]VariableUsage, error) {
	var usages []VariableUsage
	if err := c.collectVariableUsages(parentType, selectionSet, &usages); err != nil {
		return nil, err
	}
	return usages, nil
}

func (c *PlanningContext) collectVariableUsages(parentType string, sels []ast.Selection, out *[]VariableUsage) error {
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			if s.Name.String() != "__typename" {
				fd, err := c.GetFieldDef(parentType, s)
				if err != nil {
					return err
				}
				for _, arg := range s.Arguments {
					argDef := findArgumentDef(fd.Def, arg.Name.String())
					c.collectVariablesFromValue(arg.Value, argDef, out)
				}
				if len(s.SelectionSet) > 0 {
					childType := getNamedType(fd.Def.Type)
					if err := c.collectVariableUsages(childType, s.SelectionSet, out); err != nil {
						return err
					}
				}
			}
		case *ast.InlineFragment:
			cond := parentType
			if s.TypeCondition != nil {
				cond = s.TypeCondition.Name.String()
			}
			if err := c.collectVariableUsages(cond, s.SelectionSet, out); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			frag, ok := c.Op.Fragments[s.Name.String()]
			if !ok {
				continue
			}
			cond := parentType
			if frag.TypeCondition != nil {
				cond = frag.TypeCondition.Name.String()
			}
			if err := c.collectVariableUsages(cond, frag.SelectionSet, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *PlanningContext) collectVariablesFromValue(val ast.Value, argDef *ast.ArgumentDefinition, out *[]VariableUsage) {
	switch v := val.(type) {
	case *ast.Variable:
		usage := VariableUsage{Node: v}
		if argDef != nil {
			usage.InputType = argDef.Type
			usage.DefaultValue = argDef.DefaultValue
		}
		if def := c.variableDefinitionDefault(v.Name); def != nil {
			usage.DefaultValue = def
		}
		*out = append(*out, usage)
	case *ast.ListValue:
		// Elements of a list literal are used as the list's item type, with
		// no default of their own.
		var elemDef *ast.ArgumentDefinition
		if argDef != nil {
			t := argDef.Type
			if nn, ok := t.(*ast.NonNullType); ok {
				t = nn.Type
			}
			if lt, ok := t.(*ast.ListType); ok {
				elemDef = &ast.ArgumentDefinition{Name: argDef.Name, Type: lt.Type}
			}
		}
		for _, e := range v.Values {
			c.collectVariablesFromValue(e, elemDef, out)
		}
	case *ast.ObjectValue:
		for _, f := range v.Fields {
			c.collectVariablesFromValue(f.Value, nil, out)
		}
	}
}

func (c *PlanningContext) variableDefinitionDefault(name string) ast.Value {
	for _, vd := range c.Op.Operation.VariableDefinitions {
		if vd.Variable != nil && vd.Variable.Name == name && vd.DefaultValue != nil {
			return vd.DefaultValue
		}
	}
	return nil
}

func findArgumentDef(def *ast.FieldDefinition, name string) *ast.ArgumentDefinition {
	if def == nil {
		return nil
	}
	for _, a := range def.Arguments {
		if a.Name.String() == name {
			return a
		}
	}
	return nil
}

func getNamedType(t ast.Type) string {
	switch v := t.(type) {
	case *ast.NamedType:
		return v.Name.String()
	case *ast.NonNullType:
		return getNamedType(v.Type)
	case *ast.ListType:
		return getNamedType(v.Type)
	default:
		return ""
	}
}

// CollectFields flattens a selection set into a FieldSet under parentType,
// inlining inline fragments and named fragment spreads. Each fragment name is
// expanded at most once per call via visitedFragments, preventing cycles.
// Unknown fragment names are silently skipped; validation is upstream.
func (c *PlanningContext) CollectFields(parentType string, selectionSet []ast.Selection, acc *fieldset.FieldSet, visitedFragments map[string]bool) error {
	for _, sel := range selectionSet {
		switch s := sel.(type) {
		case *ast.Field:
			fd, err := c.GetFieldDef(parentType, s)
			if err != nil {
				return err
			}
			*acc = append(*acc, fieldset.Field{ParentType: parentType, Node: s, Def: fd.Def})
		case *ast.InlineFragment:
			cond := parentType
			if s.TypeCondition != nil {
				cond = s.TypeCondition.Name.String()
			}
			if err := c.CollectFields(cond, s.SelectionSet, acc, visitedFragments); err != nil {
				return err
			}
		case *ast.FragmentSpread:
			name := s.Name.String()
			if visitedFragments[name] {
				continue
			}
			frag, ok := c.Op.Fragments[name]
			if !ok {
				continue
			}
			visitedFragments[name] = true
			cond := parentType
			if frag.TypeCondition != nil {
				cond = frag.TypeCondition.Name.String()
			}
			if err := c.CollectFields(cond, frag.SelectionSet, acc, visitedFragments); err != nil {
				return err
			}
		}
	}
	return nil
}

// CollectSubfields collapses subfields from every input field under the
// nominal returnType, sharing one visitedFragments set across all inputs.
// This deliberately loses per-runtime-type parent information: subfield
// planning re-derives runtime types through the splitter.
func (c *PlanningContext) CollectSubfields(returnType string, fields fieldset.FieldSet) (fieldset.FieldSet, error) {
	var acc fieldset.FieldSet
	visited := make(map[string]bool)
	for _, f := range fields {
		if err := c.CollectFields(returnType, f.Node.SelectionSet, &acc, visited); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
