// Package errors provides the structured error type used across the
// compiler: every failure carries the compilation phase it occurred in, a
// machine-checkable kind, and enough context (type names, field paths) to
// build a useful diagnostic without string-matching on Error().
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which pass of the compiler produced the error.
type Phase string

const (
	PhaseRegister Phase = "register" // struct/enum registration, cycle detection
	PhaseLayout   Phase = "layout"   // memory layout / storage slot sizing
	PhaseEmit     Phase = "emit"     // WASM code emission (ABI, vector, enum)
	PhaseStorage  Phase = "storage"  // storage codec / object model emission
)

// Kind categorizes the error within its phase.
type Kind string

const (
	KindUnsupportedType      Kind = "unsupported_type"
	KindGenericParameter     Kind = "generic_parameter"
	KindRefInsideRef         Kind = "ref_inside_ref"
	KindRefInVector          Kind = "ref_in_vector"
	KindVectorOfSigner       Kind = "vector_of_signer"
	KindUnresolvedIdent      Kind = "unresolved_identifier"
	KindInconsistentConstant Kind = "inconsistent_constant"
	KindNonSimpleEnum        Kind = "non_simple_enum"
	KindCycle                Kind = "cyclic_type"
)

// Error is the structured error type returned by every compiler package.
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	TypeRef string
	Detail  string
	Path    []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}
	if e.TypeRef != "" {
		b.WriteString(": ")
		b.WriteString(e.TypeRef)
	}
	if e.Detail != "" {
		if e.TypeRef != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction with a fluent API.
type Builder struct {
	err Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) TypeRef(t string) *Builder {
	b.err.TypeRef = t
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the compile-time categories spec.md §7 names.

// GenericTypeParameter is the distinguished error emitters must raise when a
// TypeParameter survives to emission time.
func GenericTypeParameter(path []string) *Error {
	return New(PhaseEmit, KindGenericParameter).
		Path(path...).
		Detail("unpacking generic type parameter").
		Build()
}

func RefInsideRef(path []string) *Error {
	return New(PhaseEmit, KindRefInsideRef).
		Path(path...).
		Detail("reference inside reference is not permitted").
		Build()
}

func RefInVector(path []string) *Error {
	return New(PhaseEmit, KindRefInVector).
		Path(path...).
		Detail("reference inside vector is not permitted").
		Build()
}

func VectorOfSigner(path []string) *Error {
	return New(PhaseEmit, KindVectorOfSigner).
		Path(path...).
		Detail("vector of signer is not permitted").
		Build()
}

func UnresolvedIdentifier(phase Phase, module, name string) *Error {
	return New(phase, KindUnresolvedIdent).
		TypeRef(module + "::" + name).
		Detail("unresolved struct or enum identifier").
		Build()
}

func NonSimpleEnumInABI(typeRef string) *Error {
	return New(PhaseEmit, KindNonSimpleEnum).
		TypeRef(typeRef).
		Detail("only simple (payload-free) enums may appear in ABI position").
		Build()
}

func InconsistentConstant(typeRef, detail string) *Error {
	return New(PhaseEmit, KindInconsistentConstant).
		TypeRef(typeRef).
		Detail(detail).
		Build()
}

func Cycle(path []string) *Error {
	return New(PhaseRegister, KindCycle).
		Path(path...).
		Detail("cyclic struct/enum reference").
		Build()
}

func Unsupported(phase Phase, typeRef, detail string) *Error {
	return New(phase, KindUnsupportedType).
		TypeRef(typeRef).
		Detail(detail).
		Build()
}
