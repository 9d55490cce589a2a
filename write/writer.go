// Package write produces the iteration traces of the optimizers: aligned
// columns for people watching a run and CSV rows for later analysis.
package write

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Settings lists where a trace is written. A nil or empty Writers
// disables the trace.
type Settings struct {
	Writers []Writer
}

// DefaultSettings returns settings that display the trace on stdout.
func DefaultSettings() *Settings {
	return &Settings{
		Writers: []Writer{{Writer: os.Stdout, Type: Displayer}},
	}
}

// Type selects how a Writer receives the trace.
type Type int

const (
	// Logger saves every iteration of a run as a CSV row.
	Logger Type = iota

	// Displayer is intended for human monitoring. Rows are written
	// periodically, columns are aligned and headings are repeated.
	Displayer
)

// Writer pairs an io.Writer with the way it receives the trace.
type Writer struct {
	io.Writer
	Type Type
}

// Value is one column of a trace row.
type Value struct {
	Heading string
	Value   interface{}
}

// DataAdder contributes columns to the trace.
type DataAdder interface {
	AppendWriteData([]*Value) []*Value
}

const headingInterval = 30
const valueInterval time.Duration = 500 * time.Millisecond

// Display collects values from its DataAdders at every iteration and
// writes them to the configured writers. The headings are fixed by the
// values present at Init.
type Display struct {
	values   []*Value
	headings []string
	row      []string
	widths   []int

	rowsSinceHeading int
	lastRow          time.Time

	hasDisplayer bool
	hasLogger    bool

	writers    []Writer
	dataAdders []DataAdder
}

// NewDisplay returns a Display that shows headings and values on the first
// iteration.
func NewDisplay() *Display {
	return &Display{
		rowsSinceHeading: headingInterval + 1,
		lastRow:          time.Now().Add(-valueInterval),
	}
}

// AddDataAdder registers columns. It should only be called before Init.
func (d *Display) AddDataAdder(dataAdders ...DataAdder) {
	d.dataAdders = append(d.dataAdders, dataAdders...)
}

func (d *Display) accumulate() {
	d.values = d.values[:0]
	for _, add := range d.dataAdders {
		d.values = add.AppendWriteData(d.values)
	}
	d.row = d.row[:0]
	for _, v := range d.values {
		d.row = append(d.row, valueToString(v.Value))
	}
}

// Init prepares the writers for a new run and writes the CSV header to
// every Logger.
func (d *Display) Init(s *Settings) error {
	d.writers = s.Writers
	d.hasDisplayer = false
	d.hasLogger = false
	d.rowsSinceHeading = headingInterval + 1
	d.lastRow = time.Now().Add(-valueInterval)
	if len(d.writers) == 0 {
		return nil
	}

	d.accumulate()
	d.headings = d.headings[:0]
	for _, v := range d.values {
		d.headings = append(d.headings, v.Heading)
	}

	for _, w := range d.writers {
		switch w.Type {
		case Logger:
			d.hasLogger = true
			if err := writeCSV(w, d.headings); err != nil {
				return errors.Wrap(err, "write: logger header")
			}
		case Displayer:
			d.hasDisplayer = true
		default:
			return errors.Errorf("write: unknown writer type %d", w.Type)
		}
	}
	return nil
}

// Iterate writes the current values: always to Loggers, and to Displayers
// when enough time has passed since the last displayed row.
func (d *Display) Iterate() error {
	if len(d.writers) == 0 {
		return nil
	}
	var showRow, showHeading bool
	if d.hasDisplayer {
		showRow = time.Since(d.lastRow) > valueInterval
		if showRow {
			d.lastRow = time.Now()
			d.rowsSinceHeading++
		}
		showHeading = d.rowsSinceHeading > headingInterval
		if showHeading {
			d.rowsSinceHeading = 0
		}
	}
	if !d.hasLogger && !showRow && !showHeading {
		return nil
	}
	d.accumulate()
	return d.write(showHeading, showRow)
}

// Finish writes the last row to every writer, regardless of timing, and a
// closing status line to the Displayers.
func (d *Display) Finish(status string) error {
	if len(d.writers) == 0 {
		return nil
	}
	d.accumulate()
	if err := d.write(d.hasDisplayer && d.rowsSinceHeading > headingInterval, true); err != nil {
		return err
	}
	for _, w := range d.writers {
		if w.Type != Displayer {
			continue
		}
		if _, err := fmt.Fprintf(w, "Status: %s\n", status); err != nil {
			return errors.Wrap(err, "write: status")
		}
	}
	return nil
}

func (d *Display) write(showHeading, showRow bool) error {
	if showHeading || showRow {
		d.widths = d.widths[:0]
		for i, v := range d.row {
			width := len(v)
			if i < len(d.headings) && len(d.headings[i]) > width {
				width = len(d.headings[i])
			}
			d.widths = append(d.widths, width)
		}
	}
	for _, w := range d.writers {
		switch w.Type {
		case Logger:
			if err := writeCSV(w, d.row); err != nil {
				return errors.Wrap(err, "write: logger row")
			}
		case Displayer:
			if showHeading {
				if _, err := io.WriteString(w, "\n"); err != nil {
					return errors.Wrap(err, "write: display heading")
				}
				if err := writeAligned(w, d.headings, d.widths); err != nil {
					return errors.Wrap(err, "write: display heading")
				}
			}
			if showRow {
				if err := writeAligned(w, d.row, d.widths); err != nil {
					return errors.Wrap(err, "write: display row")
				}
			}
		}
	}
	return nil
}

func writeAligned(w io.Writer, strs []string, widths []int) error {
	var b strings.Builder
	for i, str := range strs {
		b.WriteString(str)
		if i < len(widths) && widths[i] > len(str) {
			b.WriteString(strings.Repeat(" ", widths[i]-len(str)))
		}
		b.WriteString("\t")
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCSV(w io.Writer, strs []string) error {
	_, err := io.WriteString(w, strings.Join(strs, ",")+"\n")
	return err
}

func valueToString(v interface{}) string {
	switch v := v.(type) {
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%e", v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
