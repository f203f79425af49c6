package plan

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-query-planner/federation"
	"github.com/n9te9/federation-query-planner/federation/fieldset"
)

// groupSelector decides which FetchGroup a single representative field
// should join.
type groupSelector func(fieldset.Field) (*FetchGroup, error)

// splitFields partitions fields into fetch groups using selector. For each
// response-name group, and within it each parent-type group, the first Field
// is treated as the representative; others are only re-consulted for their
// subselections, which are merged into the representative so that
// CollectSubfields sees every one of them.
func splitFields(ctx *federation.PlanningContext, path federation.ResponsePath, fields fieldset.FieldSet, selector groupSelector) error {
	for _, rg := range fields.GroupByResponseName() {
		for _, ptg := range rg.Fields.GroupByParentType() {
			rep := ptg.Fields[0]
			if len(ptg.Fields) > 1 {
				var sels []ast.Selection
				for _, f := range ptg.Fields {
					sels = append(sels, f.Node.SelectionSet...)
				}
				rep.Node = cloneFieldWithSelection(rep.Node, sels)
			}

			if rep.Node.Name.String() == "__typename" {
				continue
			}

			if isAbstract := ctx.Schema.IsAbstractType(ptg.ParentType); !isAbstract {
				fd, err := ctx.GetFieldDef(ptg.ParentType, rep.Node)
				if err != nil {
					return err
				}
				if isIntrospectionType(namedTypeName(fd.Def.Type)) {
					continue
				}

				group, err := selector(rep)
				if err != nil {
					return err
				}
				completed, err := completeField(ctx, path, group, rep)
				if err != nil {
					return err
				}
				group.AddFields(fieldset.FieldSet{completed})
				continue
			}

			if err := splitAbstractField(ctx, path, rep, selector); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitAbstractField handles a field selected under an interface or union
// parent type: it recomputes the field definition against every possible
// concrete type and asks selector where each lives, then either appends the
// field once (if a single group covers every type) or once per concrete type.
func splitAbstractField(ctx *federation.PlanningContext, path federation.ResponsePath, rep fieldset.Field, selector groupSelector) error {
	type bucket struct {
		group   *FetchGroup
		concrete []string
	}
	var order []*FetchGroup
	buckets := make(map[*FetchGroup]*bucket)

	for _, concrete := range ctx.GetPossibleTypes(rep.ParentType) {
		fd, err := ctx.GetFieldDef(concrete, rep.Node)
		if err != nil {
			// this concrete type does not implement the field; skip it.
			continue
		}
		if isIntrospectionType(namedTypeName(fd.Def.Type)) {
			continue
		}
		field := fieldset.Field{ParentType: concrete, Node: rep.Node, Def: fd.Def}
		group, err := selector(field)
		if err != nil {
			return err
		}
		b, ok := buckets[group]
		if !ok {
			b = &bucket{group: group}
			buckets[group] = b
			order = append(order, group)
		}
		b.concrete = append(b.concrete, concrete)
	}

	if len(order) == 1 {
		group := order[0]
		completed, err := completeField(ctx, path, group, rep)
		if err != nil {
			return err
		}
		group.AddFields(fieldset.FieldSet{completed})
		return nil
	}

	for _, group := range order {
		for _, concrete := range buckets[group].concrete {
			fd, err := ctx.GetFieldDef(concrete, rep.Node)
			if err != nil {
				continue
			}
			field := fieldset.Field{ParentType: concrete, Node: rep.Node, Def: fd.Def}
			completed, err := completeField(ctx, path, group, field)
			if err != nil {
				return err
			}
			group.AddFields(fieldset.FieldSet{completed})
		}
	}
	return nil
}

// splitRootFields implements the query root strategy: every root field joins
// its owning service's group; groups are returned in order of first
// occurrence so the assembler can wrap them in Parallel deterministically.
func splitRootFields(ctx *federation.PlanningContext, fields fieldset.FieldSet) ([]*FetchGroup, error) {
	groupsByService := make(map[string]*FetchGroup)
	var order []*FetchGroup

	selector := func(f fieldset.Field) (*FetchGroup, error) {
		service, err := owningServiceOf(ctx, f)
		if err != nil {
			return nil, err
		}
		g, ok := groupsByService[service]
		if !ok {
			g = NewFetchGroup(service, nil)
			groupsByService[service] = g
			order = append(order, g)
		}
		return g, nil
	}

	if err := splitFields(ctx, nil, fields, selector); err != nil {
		return nil, err
	}
	return order, nil
}

// splitRootFieldsSerially implements the mutation root strategy: a field
// reuses the trailing group iff it targets the same owning service,
// preserving source field order while batching adjacent same-service mutations.
func splitRootFieldsSerially(ctx *federation.PlanningContext, fields fieldset.FieldSet) ([]*FetchGroup, error) {
	var groups []*FetchGroup

	selector := func(f fieldset.Field) (*FetchGroup, error) {
		service, err := owningServiceOf(ctx, f)
		if err != nil {
			return nil, err
		}
		if n := len(groups); n > 0 && groups[n-1].ServiceName == service {
			return groups[n-1], nil
		}
		g := NewFetchGroup(service, nil)
		groups = append(groups, g)
		return g, nil
	}

	if err := splitFields(ctx, nil, fields, selector); err != nil {
		return nil, err
	}
	return groups, nil
}

func owningServiceOf(ctx *federation.PlanningContext, f fieldset.Field) (string, error) {
	fd, err := ctx.GetFieldDef(f.ParentType, f.Node)
	if err != nil {
		return "", err
	}
	return ctx.GetOwningService(f.ParentType, fd)
}

// splitSubfields encodes the federation routing rules described in spec
// §4.4.2: fields defined on the parent type's base service stay with
// parentGroup (or a same-service dependent); extension fields either join an
// existing dependent once their required inputs are satisfied, or force a hop
// through the base service first to obtain entity keys.
func splitSubfields(ctx *federation.PlanningContext, path federation.ResponsePath, fields fieldset.FieldSet, parentGroup *FetchGroup) error {
	selector := func(f fieldset.Field) (*FetchGroup, error) {
		return routeSubfield(ctx, f, parentGroup)
	}
	return splitFields(ctx, path, fields, selector)
}

func routeSubfield(ctx *federation.PlanningContext, f fieldset.Field, parentGroup *FetchGroup) (*FetchGroup, error) {
	parentType := f.ParentType

	base, err := ctx.GetBaseService(parentType)
	if err != nil {
		return nil, err
	}
	fd, err := ctx.GetFieldDef(parentType, f.Node)
	if err != nil {
		return nil, err
	}
	owner, err := ctx.GetOwningService(parentType, fd)
	if err != nil {
		return nil, err
	}

	if owner == base {
		if owner == parentGroup.ServiceName || parentGroup.ProvidesField(f) {
			return parentGroup, nil
		}
		dg, _ := parentGroup.GetOrCreateDependentGroup(owner)
		keys := ctx.GetKeyFields(parentType, owner)
		dg.AddRequiredFields(keys)
		parentGroup.AddFields(keys)
		return dg, nil
	}

	required := ctx.GetRequiredFields(parentType, fd, owner)
	if allProvided(parentGroup, required) {
		dg, _ := parentGroup.GetOrCreateDependentGroup(owner)
		dg.AddRequiredFields(required)
		parentGroup.AddFields(required)
		return dg, nil
	}

	baseKeys := ctx.GetKeyFields(parentType, base)
	if len(baseKeys) <= 1 {
		return nil, federation.MissingKeysError(parentType, base)
	}
	baseDg, _ := parentGroup.GetOrCreateDependentGroup(base)
	baseDg.AddRequiredFields(baseKeys)
	parentGroup.AddFields(baseKeys)

	ownerDg, _ := baseDg.GetOrCreateDependentGroup(owner)
	ownerDg.AddRequiredFields(required)
	baseDg.AddFields(required)
	return ownerDg, nil
}

func allProvided(g *FetchGroup, required fieldset.FieldSet) bool {
	for _, f := range required {
		if f.Node.Name.String() == "__typename" {
			continue
		}
		if !g.ProvidesField(f) {
			return false
		}
	}
	return true
}

// completeField finishes a representative field after its group has been
// chosen: leaves pass through unchanged, composite fields spawn a fresh
// sub-group, recurse into their subfields, and have dependents created during
// that recursion lifted onto group's otherDependentGroups.
func completeField(ctx *federation.PlanningContext, path federation.ResponsePath, group *FetchGroup, field fieldset.Field) (fieldset.Field, error) {
	fd, err := ctx.GetFieldDef(field.ParentType, field.Node)
	if err != nil {
		return field, err
	}

	returnType := namedTypeName(fd.Def.Type)
	if !ctx.Schema.IsCompositeType(returnType) {
		return field, nil
	}

	subGroup := NewFetchGroup(group.ServiceName, federation.AddPath(path, field.ResponseName(), fd.Def.Type))
	subGroup.ProvidedFields = ctx.GetProvidedFields(fd, group.ServiceName)

	if ctx.Schema.IsAbstractType(returnType) {
		subGroup.Fields = fieldset.FieldSet{typenameField(returnType)}
	}

	subfields, err := ctx.CollectSubfields(returnType, fieldset.FieldSet{field})
	if err != nil {
		return field, err
	}

	if err := splitSubfields(ctx, subGroup.MergeAt, subfields, subGroup); err != nil {
		return field, err
	}

	group.OtherDependentGroups = append(group.OtherDependentGroups, subGroup.DependentGroups()...)

	rendered := fieldset.ToSelectionSet(subGroup.Fields)
	newNode := cloneFieldWithSelection(field.Node, rendered)
	return fieldset.Field{ParentType: field.ParentType, Node: newNode, Def: field.Def}, nil
}

func cloneFieldWithSelection(src *ast.Field, selectionSet []ast.Selection) *ast.Field {
	return &ast.Field{
		Alias:        src.Alias,
		Name:         src.Name,
		Arguments:    src.Arguments,
		Directives:   src.Directives,
		SelectionSet: selectionSet,
	}
}

func typenameField(parentType string) fieldset.Field {
	return fieldset.Field{ParentType: parentType, Node: &ast.Field{Name: &ast.Name{Value: "__typename"}}}
}

func namedTypeName(t ast.Type) string {
	switch v := t.(type) {
	case *ast.NamedType:
		return v.Name.String()
	case *ast.NonNullType:
		return namedTypeName(v.Type)
	case *ast.ListType:
		return namedTypeName(v.Type)
	default:
		return ""
	}
}

func isIntrospectionType(name string) bool {
	return strings.HasPrefix(name, "__")
}
