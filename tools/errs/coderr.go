package errs

import "fmt"

// CodeError is a small coded error used for ack payload text.
type CodeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Msg)
}

// WithDetail returns a copy with extra detail appended to the message.
func (e *CodeError) WithDetail(detail string) *CodeError {
	if detail == "" {
		return e
	}
	return &CodeError{Code: e.Code, Msg: e.Msg + ": " + detail}
}

var (
	ErrInvalidFrame     = New(1001, "malformed frame")
	ErrMissingFields    = New(1002, "recipientId and message are required")
	ErrRecipientLookup  = New(1003, "recipient lookup failed")
	ErrRecipientMissing = New(1004, "recipient does not exist")
	ErrRecipientDeleted = New(1005, "recipient account is deleted")
	ErrUnknownFrameType = New(1006, "unsupported frame type")
	ErrMissingToken     = New(2001, "missing credential")
	ErrInvalidToken     = New(2002, "invalid credential")
)
