// Package apierr is the error taxonomy shared by REST and WebSocket failures.
package apierr

import (
	"errors"
	"fmt"
)

// Kind tags an Error so consumers can react without parsing messages.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindValidation        Kind = "validation"
	KindAuthentication    Kind = "authentication"
	KindNotFound          Kind = "not_found"
	KindServer            Kind = "server"
	KindWebSocket         Kind = "websocket"
	KindDuplicateReaction Kind = "duplicate_reaction"
)

// Error is a classified failure. Status is the HTTP status when one was received.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Op      string `json:"op,omitempty"`
	Status  int    `json:"status,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, which makes the sentinels below usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrServer            = &Error{Kind: KindServer}
	ErrWebSocket         = &Error{Kind: KindWebSocket}
	ErrDuplicateReaction = &Error{Kind: KindDuplicateReaction}
)

// New builds an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error around cause, using the cause text as message.
func Wrap(kind Kind, op string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Op: op, Message: msg, Err: cause}
}

// KindOf returns the kind of err, or KindServer for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// From returns err as an *Error, classifying unknown errors as server errors.
func From(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindServer, op, err)
}
