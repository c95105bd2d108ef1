// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure by how callers should react to it.
type Kind uint8

const (
	// KindAuth covers bad credentials and rejected or expired tokens. Not retryable.
	KindAuth Kind = iota + 1

	// KindNetwork covers transport failures. State is never partially mutated.
	KindNetwork

	// KindData covers corrupt persisted state. It is discarded, never fatal.
	KindData

	// KindStale marks a response that arrived after the session was replaced or cleared.
	KindStale
)

func (kind Kind) String() string {
	switch kind {
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindData:
		return "data"
	case KindStale:
		return "stale"
	default:
		return "unknown"
	}
}

var (
	// ErrNotLoggedIn is returned by operations that need an access token.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNoRefreshToken is returned when a refresh is attempted without a refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrInvalidCredentials is the cause authenticators use for rejected logins.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSuperseded is the cause of every [KindStale] error.
	ErrSuperseded = errors.New("session changed while the request was in flight")
)

// Error is a classified session failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError builds an [*Error]. A nil err is replaced by the kind's name.
func NewError(kind Kind, op string, err error) *Error {
	if err == nil {
		err = errors.New(kind.String())
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("session_%s_failed: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first [*Error] in err's chain, or 0.
func KindOf(err error) Kind {
	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.Kind
	}
	return 0
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsData reports whether err is a corrupt-data failure.
func IsData(err error) bool { return KindOf(err) == KindData }

// IsStale reports whether err is a discarded late response.
func IsStale(err error) bool { return KindOf(err) == KindStale }
