package fmi

import (
	"encoding/xml"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Local names of the WaterML2 elements the extractor reacts to. Namespaces
// are ignored.
const (
	elemTimeseries       = "MeasurementTimeseries"
	elemPair             = "MeasurementTVP"
	elemTime             = "time"
	elemValue            = "value"
	elemObservedProperty = "observedProperty"
)

// Extractor walks a timevaluepair response once and collects the datapoints
// of every series classified as temperature.
type Extractor struct {
	classifier Classifier
	logger     *slog.Logger
}

// NewExtractor creates an extractor using the given classifier
func NewExtractor(classifier Classifier) *Extractor {
	return &Extractor{
		classifier: classifier,
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger used for per-series debug output
func (e *Extractor) WithLogger(logger *slog.Logger) *Extractor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// ParseTemperatureTimeseries extracts temperature datapoints from a response
// body using DefaultTemperatureHints.
func ParseTemperatureTimeseries(body string) ([]Datapoint, error) {
	return NewExtractor(NewClassifier(nil)).Extract(strings.NewReader(body))
}

// extraction holds the state of a single pass. Nothing survives the pass.
type extraction struct {
	decoder *xml.Decoder

	// upcoming is the observedProperty latch; the next series to open
	// consumes and clears it.
	upcoming bool

	inTemperature bool
	seriesID      string
	inPair        bool

	// pending is the time read inside the current pair, if any
	pending *time.Time

	datapoints []Datapoint
}

// Extract reads r to the end and returns the temperature datapoints in
// document order. Any error aborts the pass; no partial result is returned.
func (e *Extractor) Extract(r io.Reader) ([]Datapoint, error) {
	x := &extraction{
		decoder:    xml.NewDecoder(r),
		datapoints: make([]Datapoint, 0),
	}

	for {
		tok, err := x.decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, x.syntaxError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := e.handleStart(x, t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			e.handleEnd(x, t)
		}
	}

	datapointsExtracted.Add(float64(len(x.datapoints)))

	return x.datapoints, nil
}

func (e *Extractor) handleStart(x *extraction, start xml.StartElement) error {
	switch start.Name.Local {
	case elemTimeseries:
		x.seriesID = seriesIdentifier(start.Attr)
		x.inTemperature = e.classifier.IsTemperature(x.seriesID, x.upcoming)
		x.upcoming = false
		e.logger.Debug("timeseries opened", "id", x.seriesID, "temperature", x.inTemperature)

	case elemPair:
		x.inPair = true
		x.pending = nil

	case elemTime:
		text, err := x.readText(start)
		if err != nil {
			return err
		}
		if !x.inTemperature || !x.inPair {
			return nil
		}
		trimmed := strings.TrimSpace(text)
		ts, err := time.Parse(time.RFC3339, trimmed)
		if err != nil {
			return &InvalidTimestampError{Text: trimmed, Err: err}
		}
		ts = ts.UTC()
		x.pending = &ts

	case elemValue:
		text, err := x.readText(start)
		if err != nil {
			return err
		}
		if !x.inTemperature || !x.inPair {
			return nil
		}
		return x.acceptValue(strings.TrimSpace(text))

	case elemObservedProperty:
		text, err := x.readText(start)
		if err != nil {
			return err
		}
		x.upcoming = MatchesObservedProperty(text)
	}

	return nil
}

func (e *Extractor) handleEnd(x *extraction, end xml.EndElement) {
	switch end.Name.Local {
	case elemTimeseries:
		x.inTemperature = false
		x.upcoming = false
		x.seriesID = ""
	case elemPair:
		x.inPair = false
		x.pending = nil
	}
}

func (x *extraction) acceptValue(trimmed string) error {
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		valuesSkipped.WithLabelValues("nan").Inc()
		return nil
	}

	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return &InvalidValueError{Text: trimmed, Err: err}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &InvalidValueError{Text: trimmed}
	}

	if x.pending == nil {
		valuesSkipped.WithLabelValues("unpaired").Inc()
		return nil
	}

	x.datapoints = append(x.datapoints, Datapoint{Timestamp: *x.pending, Value: value})
	return nil
}

// readText consumes everything up to the end tag matching start and returns
// the concatenated character data.
func (x *extraction) readText(start xml.StartElement) (string, error) {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := x.decoder.Token()
		if err == io.EOF {
			return "", x.syntaxError(io.ErrUnexpectedEOF)
		}
		if err != nil {
			return "", x.syntaxError(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return b.String(), nil
}

func (x *extraction) syntaxError(err error) error {
	return &XMLSyntaxError{Offset: x.decoder.InputOffset(), Err: err}
}

// seriesIdentifier returns the plain id attribute, falling back to a
// namespaced one such as gml:id.
func seriesIdentifier(attrs []xml.Attr) string {
	var namespaced string
	for _, attr := range attrs {
		if attr.Name.Local != "id" {
			continue
		}
		if attr.Name.Space == "" {
			return attr.Value
		}
		if namespaced == "" {
			namespaced = attr.Value
		}
	}
	return namespaced
}
