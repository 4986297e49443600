package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Printer writes series to a writer in a human readable form
type Printer struct {
	out io.Writer
}

// NewPrinter returns a Printer writing to out, or stdout when out is nil
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	return &Printer{out: out}
}

func (p *Printer) Write(_ context.Context, series Series) error {
	if _, err := io.WriteString(p.out, "Got data:\n\n"); err != nil {
		return err
	}

	for _, dp := range series.Points {
		_, err := fmt.Fprintf(p.out, "%s\t%s\t%s\t%g\n",
			dp.Timestamp.UTC().Format(time.RFC3339), series.Place, series.Measurement, dp.Value)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Printer) Close() error { return nil }
