package federation

import "github.com/n9te9/graphql-parser/ast"

// ResponsePath is an ordered path of response names, with the literal token
// "@" inserted once per list wrapper on the field's declared type so the
// executor knows at which depth to flatten a dependent fetch's result.
type ResponsePath []string

// Equal reports whether two paths contain the same tokens in the same order.
func (p ResponsePath) Equal(other ResponsePath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// AddPath appends responseName to path, then walks fieldType's wrappers,
// pushing "@" once per list level before the named type is reached.
func AddPath(path ResponsePath, responseName string, fieldType ast.Type) ResponsePath {
	next := make(ResponsePath, len(path), len(path)+2)
	copy(next, path)
	next = append(next, responseName)
	return append(next, listMarkers(fieldType)...)
}

// listMarkers returns one "@" per list wrapper found while unwrapping
// fieldType down to its named type, ignoring non-null wrappers.
func listMarkers(t ast.Type) []string {
	var markers []string
	for t != nil {
		switch v := t.(type) {
		case *ast.NonNullType:
			t = v.Type
		case *ast.ListType:
			markers = append(markers, "@")
			t = v.Type
		default:
			return markers
		}
	}
	return markers
}
