// Package plan implements the fetch-group model, the field splitter, and the
// plan assembler: the core of the query planner. It partitions an operation
// across the services that can resolve it and emits a tree of per-service
// fetch steps with explicit data dependencies.
package plan

import (
	"github.com/n9te9/federation-query-planner/federation"
	"github.com/n9te9/federation-query-planner/federation/fieldset"
)

// FetchGroup is one planned fetch against a single service. It is mutated in
// place while the splitter runs and becomes immutable once the plan tree is
// emitted.
type FetchGroup struct {
	ServiceName string

	Fields         fieldset.FieldSet
	RequiredFields fieldset.FieldSet
	ProvidedFields fieldset.FieldSet

	// MergeAt is the response path at which the executor splices this
	// group's result into its parent. Empty for root groups.
	MergeAt federation.ResponsePath

	// DependentGroupsByService holds child groups created directly while
	// splitting this group's own fields.
	DependentGroupsByService map[string]*FetchGroup

	// OtherDependentGroups holds child groups lifted out of recursive
	// subfield planning: they depend on this group's fetch completing, not
	// on any sub-group nested inside its selection.
	OtherDependentGroups []*FetchGroup

	// dependentOrder records the order in which service-keyed dependents
	// were first created, since map iteration order is not stable and plan
	// output must be deterministic.
	dependentOrder []string
}

// NewFetchGroup creates an empty group for serviceName, fetched at mergeAt.
func NewFetchGroup(serviceName string, mergeAt federation.ResponsePath) *FetchGroup {
	return &FetchGroup{
		ServiceName:              serviceName,
		MergeAt:                  mergeAt,
		DependentGroupsByService: make(map[string]*FetchGroup),
	}
}

// DependentGroup returns the existing dependent group for service, if any.
func (g *FetchGroup) DependentGroup(service string) (*FetchGroup, bool) {
	dg, ok := g.DependentGroupsByService[service]
	return dg, ok
}

// GetOrCreateDependentGroup returns the existing dependent group for service,
// creating one (at the same MergeAt as g) if none exists yet. The bool result
// reports whether a new group was created.
func (g *FetchGroup) GetOrCreateDependentGroup(service string) (*FetchGroup, bool) {
	if dg, ok := g.DependentGroupsByService[service]; ok {
		return dg, false
	}
	dg := NewFetchGroup(service, g.MergeAt)
	g.DependentGroupsByService[service] = dg
	g.dependentOrder = append(g.dependentOrder, service)
	return dg, true
}

// DependentGroups returns every direct child of g: both service-keyed
// dependents, in the order they were first created, and those lifted from
// recursive subfield planning.
func (g *FetchGroup) DependentGroups() []*FetchGroup {
	out := make([]*FetchGroup, 0, len(g.dependentOrder)+len(g.OtherDependentGroups))
	for _, service := range g.dependentOrder {
		out = append(out, g.DependentGroupsByService[service])
	}
	out = append(out, g.OtherDependentGroups...)
	return out
}

// AddFields appends fs to g.Fields.
func (g *FetchGroup) AddFields(fs fieldset.FieldSet) {
	g.Fields = append(g.Fields, fs...)
}

// AddRequiredFields appends fs to g.RequiredFields.
func (g *FetchGroup) AddRequiredFields(fs fieldset.FieldSet) {
	g.RequiredFields = append(g.RequiredFields, fs...)
}

// ProvidesField reports whether f is already provided inline by the parent
// resolver, matched by response name and arguments under the same parent type.
func (g *FetchGroup) ProvidesField(f fieldset.Field) bool {
	for _, p := range g.ProvidedFields {
		if p.ParentType != f.ParentType {
			continue
		}
		if fieldset.MatchesField(p.Node, f.Node) {
			return true
		}
	}
	return false
}
