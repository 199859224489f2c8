package validator

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// readTimeColumn extracts and parses the values of one time column from a
// CSV source. Rows whose value does not parse are returned by index.
func readTimeColumn(ctx context.Context, path, column, layout string) (times []time.Time, invalidRows []int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read header: %w", err)
	}
	idx := -1
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, fmt.Errorf("time column %q not present in source", column)
	}

	row := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		row++
		if idx >= len(rec) {
			invalidRows = append(invalidRows, row)
			continue
		}
		ts, perr := time.Parse(layout, strings.TrimSpace(rec[idx]))
		if perr != nil {
			invalidRows = append(invalidRows, row)
			continue
		}
		times = append(times, ts)
	}
	return times, invalidRows, nil
}

// TimeFormatValidator checks that every value in the configured time column
// parses with the expected layout.
type TimeFormatValidator struct {
	TimeColumn string
	Layout     string
}

// NewTimeFormatValidator creates a TimeFormatValidator for the given column
// and Go time layout.
func NewTimeFormatValidator(timeColumn, layout string) *TimeFormatValidator {
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	return &TimeFormatValidator{TimeColumn: timeColumn, Layout: layout}
}

func (v *TimeFormatValidator) Name() string {
	return "time_format"
}

func (v *TimeFormatValidator) Validate(ctx context.Context, desc Descriptor) Result {
	_, invalid, err := readTimeColumn(ctx, desc.Path, v.TimeColumn, v.Layout)
	if err != nil {
		return NewResult([]string{err.Error()}, nil, nil)
	}
	if len(invalid) > 0 {
		sample := invalid
		if len(sample) > 10 {
			sample = sample[:10]
		}
		return NewResult([]string{fmt.Sprintf("found %d invalid timestamp(s) at rows %v", len(invalid), sample)}, nil, nil)
	}
	return NewResult(nil, nil, nil)
}

// TimeBeforeTodayValidator checks the recency constraint: every timestamp in
// the configured column must lie strictly before the start of today.
type TimeBeforeTodayValidator struct {
	TimeColumn string
	Layout     string
	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewTimeBeforeTodayValidator creates a TimeBeforeTodayValidator.
func NewTimeBeforeTodayValidator(timeColumn, layout string) *TimeBeforeTodayValidator {
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	return &TimeBeforeTodayValidator{TimeColumn: timeColumn, Layout: layout, now: time.Now}
}

func (v *TimeBeforeTodayValidator) Name() string {
	return "time_before_today"
}

func (v *TimeBeforeTodayValidator) Validate(ctx context.Context, desc Descriptor) Result {
	times, _, err := readTimeColumn(ctx, desc.Path, v.TimeColumn, v.Layout)
	if err != nil {
		return NewResult([]string{err.Error()}, nil, nil)
	}

	nowFn := v.now
	if nowFn == nil {
		nowFn = time.Now
	}
	// Midnight in the wall clock's zone, not the UTC day boundary.
	now := nowFn()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	future := 0
	for _, ts := range times {
		if !ts.Before(today) {
			future++
		}
	}
	if future > 0 {
		return NewResult([]string{fmt.Sprintf("found %d timestamp(s) that are not before today", future)}, nil, nil)
	}
	return NewResult(nil, nil, nil)
}

// TimeSeriesValidator checks monotonicity and interval regularity of the time
// column for time-series forecasting sources: timestamps must be strictly
// increasing, and irregular spacing is surfaced as a warning.
type TimeSeriesValidator struct {
	TimeColumn string
	Layout     string
}

// NewTimeSeriesValidator creates a TimeSeriesValidator.
func NewTimeSeriesValidator(timeColumn, layout string) *TimeSeriesValidator {
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	return &TimeSeriesValidator{TimeColumn: timeColumn, Layout: layout}
}

func (v *TimeSeriesValidator) Name() string {
	return "time_series"
}

func (v *TimeSeriesValidator) Validate(ctx context.Context, desc Descriptor) Result {
	times, invalid, err := readTimeColumn(ctx, desc.Path, v.TimeColumn, v.Layout)
	if err != nil {
		return NewResult([]string{err.Error()}, nil, nil)
	}

	var errs []string
	var warnings []string
	if len(invalid) > 0 {
		errs = append(errs, fmt.Sprintf("found %d unparseable timestamp(s)", len(invalid)))
	}
	if len(times) < 2 {
		warnings = append(warnings, "fewer than two timestamps, ordering not checked")
		return NewResult(errs, warnings, nil)
	}

	outOfOrder := 0
	irregular := 0
	expected := times[1].Sub(times[0])
	for i := 1; i < len(times); i++ {
		delta := times[i].Sub(times[i-1])
		if delta <= 0 {
			outOfOrder++
			continue
		}
		if expected > 0 && delta != expected {
			irregular++
		}
	}
	if outOfOrder > 0 {
		errs = append(errs, fmt.Sprintf("time column %q is not strictly increasing (%d violation(s))", v.TimeColumn, outOfOrder))
	}
	if irregular > 0 {
		warnings = append(warnings, fmt.Sprintf("time column %q has %d irregular interval(s); expected %v", v.TimeColumn, irregular, expected))
	}

	return NewResult(errs, warnings, map[string]any{"interval": expected.String()})
}

// Verify interfaces
var (
	_ Validator = (*TimeFormatValidator)(nil)
	_ Validator = (*TimeBeforeTodayValidator)(nil)
	_ Validator = (*TimeSeriesValidator)(nil)
)
