package federation

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// Kind identifies the category of a planning failure. Planning aborts
// synchronously on the first error; none are recovered internally.
type Kind int

const (
	// ErrSubscriptionsUnsupported is raised when the selected operation is a subscription.
	ErrSubscriptionsUnsupported Kind = iota
	// ErrMissingOperation is raised when no operation name was given and the document has no operations.
	ErrMissingOperation
	// ErrUnknownOperation is raised when the given operation name matches nothing in the document.
	ErrUnknownOperation
	// ErrAmbiguousOperation is raised when no operation name was given but the document has more than one.
	ErrAmbiguousOperation
	// ErrUnknownField is raised when a field cannot be resolved against its parent type.
	ErrUnknownField
	// ErrMissingOwningService is raised when a field has neither an owning nor a base service.
	ErrMissingOwningService
	// ErrMissingBaseService is raised when a composite parent type has no base service during subfield planning.
	ErrMissingBaseService
	// ErrMissingKeys is raised when a required hop through a base service has no declared keys.
	ErrMissingKeys
)

func (k Kind) String() string {
	switch k {
	case ErrSubscriptionsUnsupported:
		return "SubscriptionsUnsupported"
	case ErrMissingOperation:
		return "MissingOperation"
	case ErrUnknownOperation:
		return "UnknownOperation"
	case ErrAmbiguousOperation:
		return "AmbiguousOperation"
	case ErrUnknownField:
		return "UnknownField"
	case ErrMissingOwningService:
		return "MissingOwningService"
	case ErrMissingBaseService:
		return "MissingBaseService"
	case ErrMissingKeys:
		return "MissingKeys"
	default:
		return "Unknown"
	}
}

// Error is a planning failure. It carries the offending AST node(s) where
// available so a caller can point a user at the exact location in their query.
type Error struct {
	Kind    Kind
	Message string
	Nodes   []ast.Node
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is match by Kind alone, ignoring message and nodes.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

func newError(kind Kind, nodes []ast.Node, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Nodes:   nodes,
	}
}

// MissingKeysError reports that service has no declared keys for parentType,
// so a required hop through it cannot obtain an entity key selection. The
// field splitter raises this when bridging an extension field to its owning
// service requires keys the base service never declared.
func MissingKeysError(parentType, service string) *Error {
	return newError(ErrMissingKeys, nil, "service %q declares no keys for type %q", service, parentType)
}
