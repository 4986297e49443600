package fmi

import (
	"fmt"
	"strings"
)

// previewLines bounds how much of a response body is echoed back in errors.
const previewLines = 10

// TransportError is returned when the WFS request could not be sent or the
// connection failed before a complete response body was read.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to call FMI WFS GetFeature: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceStatusError is returned when the WFS answers with a non-2xx status.
// FMI rejects bad queries with 400 and an OWS ExceptionReport body; Code and
// Texts are filled in from it when present.
type ServiceStatusError struct {
	URL        string
	StatusCode int
	Status     string
	Preview    string
	Code       string
	Texts      []string
}

func (e *ServiceStatusError) Error() string {
	msg := fmt.Sprintf("FMI WFS returned an error status %d: %s", e.StatusCode, e.Status)
	switch {
	case e.Code != "" || len(e.Texts) > 0:
		return fmt.Sprintf("%s [%s]: %s", msg, e.Code, strings.Join(e.Texts, " | "))
	case e.Preview != "":
		return fmt.Sprintf("%s: %s", msg, e.Preview)
	}
	return msg
}

// ServiceExceptionError is returned when a response body carries an OWS
// ExceptionReport, whatever its HTTP status. Preview holds the first lines of
// the body; Code and Texts are filled in when the report could be decoded.
type ServiceExceptionError struct {
	Preview string
	Code    string
	Texts   []string
}

func (e *ServiceExceptionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("FMI WFS exception response [%s]: %s", e.Code, strings.Join(e.Texts, " | "))
	}
	return fmt.Sprintf("FMI WFS exception response: %s", e.Preview)
}

// XMLSyntaxError wraps a decoder failure encountered mid-stream.
type XMLSyntaxError struct {
	Offset int64
	Err    error
}

func (e *XMLSyntaxError) Error() string {
	return fmt.Sprintf("error while parsing FMI WFS XML at offset %d: %v", e.Offset, e.Err)
}

func (e *XMLSyntaxError) Unwrap() error { return e.Err }

// InvalidTimestampError is returned when a time element inside a temperature
// pair is not RFC 3339.
type InvalidTimestampError struct {
	Text string
	Err  error
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp in FMI WFS response: %q", e.Text)
}

func (e *InvalidTimestampError) Unwrap() error { return e.Err }

// InvalidValueError is returned when a value element inside a temperature pair
// is neither empty, NaN, nor a finite number.
type InvalidValueError struct {
	Text string
	Err  error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid temperature value in FMI WFS response: %q", e.Text)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// preview returns at most the first previewLines lines of body.
func preview(body string) string {
	lines := strings.SplitN(body, "\n", previewLines+1)
	if len(lines) > previewLines {
		lines = lines[:previewLines]
	}
	return strings.Join(lines, "\n")
}
