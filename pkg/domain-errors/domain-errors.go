package domainerrors

import "errors"

// Code classifies a failure for callers. httputil maps each code to a status;
// services never pick statuses themselves.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded failure. Message is what the client sees; Err keeps the
// underlying cause for logs and errors.Is.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code, so a bare
// &Error{Code: CodeConflict} matches any conflict in a chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches msg to err. An err that already carries a code keeps it;
// code applies only to unclassified errors.
func Wrap(err error, code Code, msg string) error {
	if c, ok := codeOf(err); ok {
		code = c
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Rule classifies one store sentinel for Translate.
type Rule struct {
	Target  error
	Code    Code
	Message string
}

// Translate turns a store error into a domain error. An err that already
// carries a code is only wrapped, so a sentinel deeper in its chain cannot
// reclassify it. Otherwise the first rule whose Target is in err's chain
// decides the code and message, and anything unmatched becomes CodeInternal
// with action as the message. A nil err stays nil.
func Translate(err error, action string, rules ...Rule) error {
	if err == nil {
		return nil
	}
	if _, ok := codeOf(err); ok {
		return Wrap(err, CodeInternal, action)
	}
	for _, r := range rules {
		if errors.Is(err, r.Target) {
			return &Error{Code: r.Code, Message: r.Message, Err: err}
		}
	}
	return Wrap(err, CodeInternal, action)
}

func HasCode(err error, code Code) bool {
	c, ok := codeOf(err)
	return ok && c == code
}

// CodeOf returns the code of the outermost *Error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	if c, ok := codeOf(err); ok {
		return c
	}
	return CodeInternal
}

func codeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}
