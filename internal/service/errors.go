package service

import (
	"errors"
	"fmt"
)

// Kind classifies every error the ledger returns. Handlers map kinds to
// HTTP statuses; callers retry only KindConflict.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindConflict
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindConflict:
		return "conflict"
	case KindIntegrity:
		return "integrity"
	default:
		return "error"
	}
}

// Error is the typed error returned by every ledger operation. Msg is safe to
// show to a client; Err carries the internal cause and is only logged.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind, and on Code when the target carries one, so both
// errors.Is(err, ErrValidation) and errors.Is(err, ErrInvalidQuantity) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrValidation        = &Error{Kind: KindValidation, Msg: "invalid request"}
	ErrNotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Msg: "insufficient stock"}
	ErrConflict          = &Error{Kind: KindConflict, Msg: "concurrent update, retry the operation"}
	ErrIntegrity         = &Error{Kind: KindIntegrity, Msg: "ledger integrity violation"}

	ErrInvalidQuantity   = &Error{Kind: KindValidation, Code: "invalid_quantity", Msg: "quantity must be greater than zero"}
	ErrInvalidCost       = &Error{Kind: KindValidation, Code: "invalid_cost", Msg: "cost must be greater than zero"}
	ErrNoRecipeLinked    = &Error{Kind: KindValidation, Code: "no_recipe_linked", Msg: "product has no linked recipe"}
	ErrIllegalTransition = &Error{Kind: KindValidation, Code: "illegal_transition", Msg: "operation not allowed in the current sale status"}
	ErrInUse             = &Error{Kind: KindValidation, Code: "in_use", Msg: "record is still referenced"}
)

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func invalid(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// with returns a copy of base carrying a more specific message.
func with(base *Error, format string, args ...interface{}) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Msg: what + " not found"}
}

func insufficient(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInsufficientStock, Code: "insufficient_stock", Msg: fmt.Sprintf(format, args...)}
}

func integrity(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindIntegrity, Code: "integrity", Msg: fmt.Sprintf(format, args...), Err: cause}
}

func conflict(cause error) *Error {
	return &Error{Kind: KindConflict, Code: "conflict", Msg: ErrConflict.Msg, Err: cause}
}
