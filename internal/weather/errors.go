package weather

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies orchestration failures
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidMunicipality
	KindResolveFailed
	KindResolveRejected
	KindFetchFailed
	KindDecode
	KindEmptyForecast
	KindMalformedTimestamp
	KindDayNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidMunicipality:
		return "InvalidMunicipality"
	case KindResolveFailed:
		return "ResolveFailed"
	case KindResolveRejected:
		return "ResolveRejected"
	case KindFetchFailed:
		return "FetchFailed"
	case KindDecode:
		return "DecodeError"
	case KindEmptyForecast:
		return "EmptyForecast"
	case KindMalformedTimestamp:
		return "MalformedTimestamp"
	case KindDayNotFound:
		return "DayNotFound"
	}
	return "Unknown"
}

// Phase names the upstream call an error belongs to.
type Phase string

const (
	PhaseResolve Phase = "resolve"
	PhaseFetch   Phase = "fetch"
)

// Error is the single error type returned by Service and Project.
type Error struct {
	Kind  Kind
	Phase Phase

	// Status and Description are set for KindResolveRejected.
	Status      int
	Description string

	// Value holds the offending input for KindMalformedTimestamp and KindDayNotFound.
	Value string

	Err error
}

// Sentinels for errors.Is; they match on Kind only.
var (
	ErrInvalidMunicipality = &Error{Kind: KindInvalidMunicipality}
	ErrResolveFailed       = &Error{Kind: KindResolveFailed}
	ErrResolveRejected     = &Error{Kind: KindResolveRejected}
	ErrFetchFailed         = &Error{Kind: KindFetchFailed}
	ErrDecode              = &Error{Kind: KindDecode}
	ErrEmptyForecast       = &Error{Kind: KindEmptyForecast}
	ErrMalformedTimestamp  = &Error{Kind: KindMalformedTimestamp}
	ErrDayNotFound         = &Error{Kind: KindDayNotFound}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindResolveRejected:
		return fmt.Sprintf("resolve rejected: status %d: %s", e.Status, e.Description)
	case KindMalformedTimestamp:
		return fmt.Sprintf("malformed timestamp %q", e.Value)
	case KindDayNotFound:
		return fmt.Sprintf("no forecast for %s", e.Value)
	case KindDecode:
		return fmt.Sprintf("decode %s response: %v", e.Phase, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t != nil && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// UserMessage maps an orchestration error to the text shown to users.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Fallo al obtener los datos: la petición fue cancelada."
	}

	var e *Error
	if !errors.As(err, &e) {
		return "Fallo al obtener los datos: " + err.Error()
	}

	switch e.Kind {
	case KindInvalidMunicipality:
		return "Código de municipio no válido."
	case KindResolveFailed:
		return "Fallo al obtener los datos: Error al obtener la URL de datos."
	case KindResolveRejected:
		return "Fallo al obtener los datos: Error al obtener la URL de datos: " + e.Description
	case KindFetchFailed:
		return "Fallo al obtener los datos: Error al obtener la predicción final."
	case KindDecode:
		return "Fallo al obtener los datos: respuesta de AEMET no válida."
	case KindEmptyForecast:
		return "Fallo al obtener los datos: AEMET no devolvió ninguna predicción."
	case KindMalformedTimestamp:
		return "Fallo al obtener los datos: fecha de elaboración no válida."
	case KindDayNotFound:
		return "No hay predicción para la fecha " + e.Value + "."
	}
	return "Fallo al obtener los datos: " + err.Error()
}
