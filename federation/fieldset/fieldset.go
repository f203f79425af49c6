// Package fieldset implements the field-set algebra: containers of (parent
// type, field node, field definition) triples, grouped by response name and
// by parent type, and rendered back into a selection set.
package fieldset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// Field is one selected field together with the composite type it was
// selected under and its schema definition.
type Field struct {
	ParentType string
	Node       *ast.Field
	Def        *ast.FieldDefinition
}

// ResponseName returns the field's alias if present, otherwise its name.
func (f Field) ResponseName() string {
	if f.Node.Alias != nil && f.Node.Alias.String() != "" {
		return f.Node.Alias.String()
	}
	return f.Node.Name.String()
}

// FieldSet is an ordered sequence of Fields.
type FieldSet []Field

// ResponseNameGroup is every Field sharing a response name, in insertion order.
type ResponseNameGroup struct {
	ResponseName string
	Fields       FieldSet
}

// ParentTypeGroup is every Field, within a ResponseNameGroup, sharing a parent type.
type ParentTypeGroup struct {
	ParentType string
	Fields     FieldSet
}

// GroupByResponseName partitions the set by response name, preserving the
// order in which each response name was first seen.
func (fs FieldSet) GroupByResponseName() []ResponseNameGroup {
	index := make(map[string]int)
	var groups []ResponseNameGroup
	for _, f := range fs {
		name := f.ResponseName()
		if i, ok := index[name]; ok {
			groups[i].Fields = append(groups[i].Fields, f)
			continue
		}
		index[name] = len(groups)
		groups = append(groups, ResponseNameGroup{ResponseName: name, Fields: FieldSet{f}})
	}
	return groups
}

// GroupByParentType partitions the set by parent type, preserving the order
// in which each parent type was first seen.
func (fs FieldSet) GroupByParentType() []ParentTypeGroup {
	index := make(map[string]int)
	var groups []ParentTypeGroup
	for _, f := range fs {
		if i, ok := index[f.ParentType]; ok {
			groups[i].Fields = append(groups[i].Fields, f)
			continue
		}
		index[f.ParentType] = len(groups)
		groups = append(groups, ParentTypeGroup{ParentType: f.ParentType, Fields: FieldSet{f}})
	}
	return groups
}

// MatchesField reports whether two field nodes have the same response name,
// field name, and arguments. Selection-set differences are never compared
// here; they are merged instead.
func MatchesField(a, b *ast.Field) bool {
	if a.Name.String() != b.Name.String() {
		return false
	}
	if responseNameOf(a) != responseNameOf(b) {
		return false
	}
	return argumentsEqual(a.Arguments, b.Arguments)
}

func responseNameOf(f *ast.Field) string {
	if f.Alias != nil && f.Alias.String() != "" {
		return f.Alias.String()
	}
	return f.Name.String()
}

func argumentsEqual(a, b []*ast.Argument) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[string]string, len(a))
	for _, arg := range a {
		am[arg.Name.String()] = ValueString(arg.Value)
	}
	for _, arg := range b {
		v, ok := am[arg.Name.String()]
		if !ok || v != ValueString(arg.Value) {
			return false
		}
	}
	return true
}

// ValueString renders an ast.Value into a canonical string for structural
// comparison. It is never shown to a user and never used for query text.
func ValueString(v ast.Value) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case *ast.StringValue:
		return fmt.Sprintf("%q", val.Value)
	case *ast.IntValue:
		return fmt.Sprintf("%d", val.Value)
	case *ast.FloatValue:
		return fmt.Sprintf("%v", val.Value)
	case *ast.BooleanValue:
		return fmt.Sprintf("%v", val.Value)
	case *ast.EnumValue:
		return val.Value
	case *ast.Variable:
		return "$" + val.Name
	case *ast.ListValue:
		parts := make([]string, len(val.Values))
		for i, e := range val.Values {
			parts[i] = ValueString(e)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case *ast.ObjectValue:
		fields := make([]string, len(val.Fields))
		for i, f := range val.Fields {
			fields[i] = f.Name.String() + ":" + ValueString(f.Value)
		}
		sort.Strings(fields)
		return "{" + strings.Join(fields, ",") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToSelectionSet renders fs into an AST selection set following the rules in
// spec §4.5: group by response name and parent type, merge selection sets for
// entries sharing both, and wrap divergent parent types in inline fragments.
// Output is deterministic: the same FieldSet always produces the same tree.
func ToSelectionSet(fs FieldSet) []ast.Selection {
	var out []ast.Selection
	for _, rg := range fs.GroupByResponseName() {
		ptGroups := rg.Fields.GroupByParentType()
		if len(ptGroups) == 1 {
			out = append(out, mergedField(ptGroups[0].Fields))
			continue
		}
		for _, ptg := range ptGroups {
			field := mergedField(ptg.Fields)
			out = append(out, &ast.InlineFragment{
				TypeCondition: &ast.NamedType{Name: &ast.Name{Value: ptg.ParentType}},
				SelectionSet:  []ast.Selection{field},
			})
		}
	}
	return out
}

// mergedField merges the selection sets of every Field in a (responseName,
// parentType) group into the representative node's clone, recursively
// normalizing the merged subselection.
func mergedField(fields FieldSet) *ast.Field {
	rep := fields[0].Node
	merged := &ast.Field{
		Alias:     rep.Alias,
		Name:      rep.Name,
		Arguments: rep.Arguments,
		Directives: rep.Directives,
	}

	if len(rep.SelectionSet) == 0 && allLeaf(fields) {
		return merged
	}

	var sub FieldSet
	for _, f := range fields {
		appendRenderedSelections(&sub, f.ParentType, f.Node.SelectionSet)
	}
	if len(sub) > 0 {
		merged.SelectionSet = ToSelectionSet(sub)
	}
	return merged
}

// appendRenderedSelections unpacks a selection set already produced by
// ToSelectionSet back into Fields so it can take part in a further merge.
// Plain fields carry their enclosing parentType; inline fragments (only ever
// produced here to guard a divergent-parent-type group) contribute their
// contents tagged with the fragment's type condition instead.
func appendRenderedSelections(out *FieldSet, parentType string, sels []ast.Selection) {
	for _, sel := range sels {
		switch s := sel.(type) {
		case *ast.Field:
			*out = append(*out, Field{ParentType: parentType, Node: s})
		case *ast.InlineFragment:
			cond := parentType
			if s.TypeCondition != nil {
				cond = s.TypeCondition.Name.String()
			}
			appendRenderedSelections(out, cond, s.SelectionSet)
		}
	}
}

func allLeaf(fields FieldSet) bool {
	for _, f := range fields {
		if len(f.Node.SelectionSet) > 0 {
			return false
		}
	}
	return true
}
