package aemet

import "fmt"

const maxBodyInError = 256

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AEMET API error: %d %s", e.StatusCode, snippet(e.Body))
}

// DecodeError is returned when a body is not valid JSON or lacks a
// required field.
type DecodeError struct {
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode AEMET response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NetworkError wraps connection, timeout and read failures.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("AEMET request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DataURLError is returned by FetchForecast when the data URL handed back
// by the resolve call is not an absolute URL with a host.
type DataURLError struct {
	URL string
}

func (e *DataURLError) Error() string {
	return fmt.Sprintf("AEMET data url %q is not absolute", e.URL)
}

func snippet(b []byte) string {
	if len(b) > maxBodyInError {
		return string(b[:maxBodyInError]) + "..."
	}
	return string(b)
}
