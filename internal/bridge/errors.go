package bridge

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies bridge failures.
type ErrorKind int

const (
	// KindTransportUnavailable: neither a host nor a remote path exists for
	// this capability in this environment.
	KindTransportUnavailable ErrorKind = iota + 1
	// KindHostCallFailed: the native host rejected the operation.
	KindHostCallFailed
	// KindRemoteCallFailed: non-2xx response or network failure.
	KindRemoteCallFailed
	// KindUnsupported: the capability has no meaning in this environment.
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransportUnavailable:
		return "transport unavailable"
	case KindHostCallFailed:
		return "host call failed"
	case KindRemoteCallFailed:
		return "remote call failed"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrTransportUnavailable = &Error{Kind: KindTransportUnavailable}
	ErrHostCallFailed       = &Error{Kind: KindHostCallFailed}
	ErrRemoteCallFailed     = &Error{Kind: KindRemoteCallFailed}
	ErrUnsupported          = &Error{Kind: KindUnsupported}
)

// Error is the uniform error returned by every bridge call.
type Error struct {
	Kind       ErrorKind
	Capability Capability
	Env        Environment
	Status     int    // HTTP status for remote failures, 0 on network errors
	Message    string // diagnostic detail (host message or response body)
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("bridge: %s %s", e.Capability, e.Kind)
	if e.Kind == KindRemoteCallFailed && e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransportUnavailable, ErrHostCallFailed, ErrRemoteCallFailed, ErrUnsupported:
		return target.(*Error).Kind == e.Kind
	}
	return false
}

// KindOf returns the kind of a bridge error, or 0 if err is not one.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return 0
}

// RemoteError is returned by Remote for non-2xx responses.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

func unsupported(c Capability, env Environment) error {
	return &Error{
		Kind:       KindUnsupported,
		Capability: c,
		Env:        env,
		Message:    fmt.Sprintf("%s requires the desktop host (running in %s)", c, env),
	}
}

func unavailable(c Capability, env Environment, why string) error {
	return &Error{Kind: KindTransportUnavailable, Capability: c, Env: env, Message: why}
}

func hostFailed(c Capability, err error) error {
	return &Error{
		Kind:       KindHostCallFailed,
		Capability: c,
		Env:        EnvDesktopHost,
		Message:    err.Error(),
		Err:        err,
	}
}

func remoteFailed(c Capability, err error) error {
	be := &Error{Kind: KindRemoteCallFailed, Capability: c, Env: EnvBrowser, Err: err}
	var re *RemoteError
	if errors.As(err, &re) {
		be.Status = re.Status
		be.Message = re.Message
		if be.Message == "" {
			be.Message = http.StatusText(re.Status)
		}
	}
	return be
}
