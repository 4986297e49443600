package fmi

import (
	"encoding/xml"
	"strings"
)

// ExceptionReport is the OWS error document FMI returns for rejected queries
type ExceptionReport struct {
	XMLName    xml.Name    `xml:"ExceptionReport"`
	Exceptions []Exception `xml:"Exception"`
}

// Exception is a single entry of an ExceptionReport
type Exception struct {
	XMLName       xml.Name `xml:"Exception"`
	ExceptionCode string   `xml:"exceptionCode,attr"`
	ExceptionText []string `xml:"ExceptionText"`
}

// newServiceExceptionError builds the error for a body containing an
// ExceptionReport. Decoding the report is best effort; the preview is always
// present.
func newServiceExceptionError(body string) *ServiceExceptionError {
	exc := &ServiceExceptionError{Preview: preview(body)}
	exc.Code, exc.Texts = decodeExceptionReport(body)
	return exc
}

// decodeExceptionReport returns the code and trimmed texts of the first
// exception in body, or zero values when body is not an ExceptionReport.
func decodeExceptionReport(body string) (string, []string) {
	var report ExceptionReport
	if err := xml.NewDecoder(strings.NewReader(body)).Decode(&report); err != nil {
		return "", nil
	}
	if len(report.Exceptions) == 0 {
		return "", nil
	}

	first := report.Exceptions[0]
	var texts []string
	for _, text := range first.ExceptionText {
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}

	return first.ExceptionCode, texts
}
