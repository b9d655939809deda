package generation

import (
	"context"
	"errors"
	"net/http"

	"genstudio/internal/gateway/repository/artifact"
	"genstudio/internal/imaging"
	"genstudio/internal/mediaclient"
)

// Kind classifies a failed use case.
type Kind int

const (
	KindInternal Kind = iota
	KindConfiguration
	KindValidation
	KindUpstreamRefusal
	KindUpstreamEmpty
	KindUpstreamRejected
	KindNotExtendable
	KindStorage
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindUpstreamRefusal:
		return "upstream_refusal"
	case KindUpstreamEmpty:
		return "upstream_empty"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindNotExtendable:
		return "not_extendable"
	case KindStorage:
		return "storage"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Error is returned by every Service method on failure. Message is safe to
// show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind onto the response code: caller and upstream
// content problems are 400, infrastructure problems 500.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindConfiguration, KindValidation, KindUpstreamRefusal,
		KindUpstreamEmpty, KindUpstreamRejected, KindNotExtendable:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Detail is the text placed in the response "detail" field.
func (e *Error) Detail() string {
	if e.Kind.clientFacing() {
		return e.Error()
	}
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

func (k Kind) clientFacing() bool {
	return k != KindInternal && k != KindStorage && k != KindTransient
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: "invalid parameters", Err: err}
}

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// wrap converts an error from a collaborator into an *Error, keeping the
// first classification it finds.
func wrap(msg string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var (
		transient *mediaclient.TransientError
		permanent *mediaclient.PermanentError
	)
	switch {
	case errors.As(err, &transient),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return newError(KindTransient, msg, err)
	case errors.Is(err, mediaclient.ErrMissingAPIKey):
		return newError(KindConfiguration, "API Key is required", nil)
	case errors.As(err, &permanent):
		return newError(KindUpstreamRejected, msg, err)
	case errors.Is(err, artifact.ErrInvalidType),
		errors.Is(err, artifact.ErrTooLarge),
		errors.Is(err, artifact.ErrEmptyContent),
		errors.Is(err, imaging.ErrInvalidBase64),
		errors.Is(err, imaging.ErrInvalidImage),
		errors.Is(err, imaging.ErrNoImages),
		errors.Is(err, imaging.ErrTooFewImages):
		return validationError(err)
	case errors.Is(err, artifact.ErrNotFound),
		errors.Is(err, artifact.ErrInvalidName),
		errors.Is(err, artifact.ErrInvalidKind):
		return newError(KindStorage, msg, err)
	default:
		return newError(KindInternal, msg, err)
	}
}

func storageError(err error) *Error {
	return newError(KindStorage, "failed to store artifact", err)
}
