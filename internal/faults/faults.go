// Package faults defines the error kinds surfaced by the GIF pipeline and
// their mapping onto HTTP responses.
package faults

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrAcquisition   = errors.New("acquisition error")
	ErrTranscription = errors.New("transcription error")
	ErrContent       = errors.New("content error")
	ErrRender        = errors.New("render error")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrBusy          = errors.New("busy")
)

// StageError records where in a job a failure happened. Kind is one of the
// exported sentinels and decides how the failure is reported to clients.
type StageError struct {
	Kind  error
	Stage string
	Op    string
	Msg   string
	Err   error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	b.WriteString(": ")

	wrote := false
	for _, part := range [...]string{e.Stage, e.Op, e.Msg} {
		if part == "" {
			continue
		}
		if wrote {
			b.WriteString(": ")
		}
		b.WriteString(part)
		wrote = true
	}
	if !wrote {
		b.WriteString("pipeline failure")
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap builds a StageError. A nil kind is reported as ErrRender.
func Wrap(kind error, stage, operation, message string, err error) error {
	if kind == nil {
		kind = ErrRender
	}
	return &StageError{
		Kind:  kind,
		Stage: strings.TrimSpace(stage),
		Op:    strings.TrimSpace(operation),
		Msg:   strings.TrimSpace(message),
		Err:   err,
	}
}

// kindOf returns the sentinel carried by the outermost StageError in err's
// chain, or err itself when there is none.
func kindOf(err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return err
}

// HTTPStatus maps an error to the response status a client should see.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch kind := kindOf(err); {
	case errors.Is(kind, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, ErrAcquisition), errors.Is(kind, ErrContent), errors.Is(kind, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable error code used in API error bodies.
func Code(err error) string {
	switch kind := kindOf(err); {
	case kind == nil:
		return "INTERNAL_ERROR"
	case errors.Is(kind, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(kind, ErrAcquisition):
		return "ACQUISITION_FAILED"
	case errors.Is(kind, ErrContent):
		return "UNSUPPORTED_CONTENT"
	case errors.Is(kind, ErrValidation):
		return "BAD_REQUEST"
	case errors.Is(kind, ErrBusy):
		return "BUSY"
	case errors.Is(kind, ErrTranscription):
		return "TRANSCRIPTION_FAILED"
	case errors.Is(kind, ErrRender):
		return "RENDER_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
