// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kinds. Every *Error unwraps to exactly one of these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrDecoding     = errors.New("decoding error")
	ErrNetwork      = errors.New("network error")
	ErrStorage      = errors.New("storage error")
)

// Error carries a kind, the operation that failed, an optional HTTP status and
// the underlying cause.
type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Kind == ErrServer && e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New builds an *Error of the given kind.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidInput, Decoding, Network and Storage are shorthands for New.
func InvalidInput(op string, err error) *Error { return New(ErrInvalidInput, op, err) }
func Decoding(op string, err error) *Error     { return New(ErrDecoding, op, err) }
func Network(op string, err error) *Error      { return New(ErrNetwork, op, err) }
func Storage(op string, err error) *Error      { return New(ErrStorage, op, err) }

// FromStatus maps an HTTP status to an error kind. 2xx yields nil.
func FromStatus(op string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return &Error{Kind: ErrUnauthorized, Op: op, StatusCode: status}
	case status == http.StatusNotFound:
		return &Error{Kind: ErrNotFound, Op: op, StatusCode: status}
	default:
		return &Error{Kind: ErrServer, Op: op, StatusCode: status}
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// KindOf returns the kind sentinel for err, or nil when err carries none.
func KindOf(err error) error {
	for _, k := range []error{
		ErrInvalidInput,
		ErrUnauthorized,
		ErrNotFound,
		ErrServer,
		ErrDecoding,
		ErrNetwork,
		ErrStorage,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Context names what the user was trying to do when err happened.
type Context struct {
	Operation string
	Resource  string
	ID        string
}

// Friendly rewrites err into a message a terminal user can act on. The
// original error stays reachable through Unwrap.
func Friendly(err error, c Context) error {
	if err == nil {
		return nil
	}

	what := c.Resource
	if c.ID != "" {
		what = fmt.Sprintf("%s %q", c.Resource, c.ID)
	}

	var msg string
	switch KindOf(err) {
	case ErrUnauthorized:
		msg = fmt.Sprintf("failed to %s: the API key was rejected. Set CATINFO_API_KEY or api.key in catinfo.yaml", c.Operation)
	case ErrNotFound:
		msg = fmt.Sprintf("failed to %s: %s was not found", c.Operation, what)
	case ErrServer:
		msg = fmt.Sprintf("failed to %s: the catalog returned status %d", c.Operation, StatusCode(err))
	case ErrNetwork:
		msg = fmt.Sprintf("failed to %s: the catalog could not be reached", c.Operation)
	case ErrDecoding:
		msg = fmt.Sprintf("failed to %s: unreadable response for %s", c.Operation, what)
	case ErrInvalidInput:
		msg = fmt.Sprintf("failed to %s: invalid %s", c.Operation, what)
	default:
		return fmt.Errorf("failed to %s: %w", c.Operation, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
