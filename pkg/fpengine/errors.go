// Package fpengine holds the error vocabulary shared by every package of
// the memory engine, so a caller can type-switch on failure kind without
// importing every subpackage that can produce one.
package fpengine

import "fmt"

// Kind discriminates the category of failure, per the engine's error
// envelope contract. Callers branch on Kind, not on message text.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindNotFound           Kind = "not_found"
	KindInvalidFingerprint Kind = "invalid_fingerprint"
	KindStorageError       Kind = "storage_error"
	KindIndexUnavailable   Kind = "index_unavailable"
	KindEmbedderUnavailable Kind = "embedder_unavailable"
	KindOverloaded         Kind = "overloaded"
	KindTimeout            Kind = "timeout"
	KindMigrationRequired  Kind = "migration_required"
)

// Error is the single typed error used across the engine. It carries enough
// structure for the response envelope without introducing a
// type per failure mode.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Wrapped error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// New builds an *Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error, preserving it for errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// WithContext returns a copy of e with a context key/value attached, used to
// point the caller at the offending argument (InvalidArgument) or the
// affected view (IndexUnavailable).
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and the
// zero Kind otherwise.
func KindOf(err error) Kind {
	var fe *Error
	if as(err, &fe) {
		return fe.Kind
	}
	return ""
}

// as is a tiny local errors.As to avoid importing errors just for this.
func as(err error, target **Error) bool {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			*target = fe
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
