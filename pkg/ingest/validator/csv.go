package validator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVStructureValidator checks the structural integrity of a CSV source:
// a readable, non-empty header row and a consistent column count on every
// data row.
type CSVStructureValidator struct{}

// NewCSVStructureValidator creates a CSVStructureValidator.
func NewCSVStructureValidator() *CSVStructureValidator {
	return &CSVStructureValidator{}
}

func (v *CSVStructureValidator) Name() string {
	return "csv_structure"
}

func (v *CSVStructureValidator) Validate(ctx context.Context, desc Descriptor) Result {
	f, err := os.Open(desc.Path)
	if err != nil {
		return NewResult([]string{fmt.Sprintf("cannot open %q: %v", desc.Path, err)}, nil, nil)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	// FieldsPerRecord defaults to the width of the first row, so the reader
	// itself flags inconsistent row widths.

	header, err := r.Read()
	if err == io.EOF {
		return NewResult(nil, []string{fmt.Sprintf("file %q is empty", desc.Path)}, nil)
	}
	if err != nil {
		return NewResult([]string{fmt.Sprintf("cannot read header: %v", err)}, nil, nil)
	}
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			return NewResult([]string{fmt.Sprintf("header column %d is blank", i+1)}, nil, nil)
		}
	}

	var errs []string
	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Sprintf("validation cancelled: %v", err))
			break
		}
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			errs = append(errs, fmt.Sprintf("row %d: %v", parseErr.Line, parseErr.Err))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("read error after %d rows: %v", rows, err))
			break
		}
		rows++
	}

	var warnings []string
	if rows == 0 && len(errs) == 0 {
		warnings = append(warnings, fmt.Sprintf("file %q has a header but no data rows", desc.Path))
	}
	return NewResult(errs, warnings, map[string]any{"rows": rows, "columns": len(header)})
}

// DataTypeValidator checks declared-type compliance per schema column over a
// CSV source: numeric, boolean and date columns must parse, and VARCHAR(n)
// values must fit inside their declared length.
type DataTypeValidator struct {
	// DateFormats are the accepted date/timestamp layouts.
	DateFormats []string
}

// NewDataTypeValidator creates a DataTypeValidator with the default accepted
// date layouts.
func NewDataTypeValidator() *DataTypeValidator {
	return &DataTypeValidator{
		DateFormats: []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		},
	}
}

func (v *DataTypeValidator) Name() string {
	return "data_type"
}

func (v *DataTypeValidator) Validate(ctx context.Context, desc Descriptor) Result {
	f, err := os.Open(desc.Path)
	if err != nil {
		return NewResult([]string{fmt.Sprintf("cannot open %q: %v", desc.Path, err)}, nil, nil)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1 // structural problems are csv_structure's concern

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return NewResult(nil, []string{"empty file, nothing to type-check"}, nil)
		}
		return NewResult([]string{fmt.Sprintf("cannot read header: %v", err)}, nil, nil)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	// Map schema columns onto header positions; columns absent from the CSV
	// are a warning only, matching the lenient-then-validated reading model.
	type check struct {
		column  string
		sqlType string
		index   int
	}
	var checks []check
	var warnings []string
	for column, sqlType := range desc.Schema {
		idx := -1
		for i, h := range header {
			if h == column {
				idx = i
				break
			}
		}
		if idx < 0 {
			warnings = append(warnings, fmt.Sprintf("schema column %q not present in source", column))
			continue
		}
		checks = append(checks, check{column: column, sqlType: strings.ToUpper(sqlType), index: idx})
	}

	badCounts := map[string]int{}
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return NewResult([]string{fmt.Sprintf("validation cancelled: %v", err)}, warnings, nil)
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		line++
		for _, c := range checks {
			if c.index >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[c.index])
			if value == "" {
				continue
			}
			if !v.compliant(value, c.sqlType) {
				badCounts[c.column]++
			}
		}
	}

	var errs []string
	for _, c := range checks {
		if n := badCounts[c.column]; n > 0 {
			errs = append(errs, fmt.Sprintf("column %q contains %d value(s) violating declared type %s", c.column, n, c.sqlType))
		}
	}
	return NewResult(errs, warnings, nil)
}

// compliant reports whether a single non-empty value satisfies the declared
// SQL type string.
func (v *DataTypeValidator) compliant(value, sqlType string) bool {
	switch {
	case strings.Contains(sqlType, "INT"):
		_, err := strconv.ParseInt(value, 10, 64)
		return err == nil
	case strings.Contains(sqlType, "FLOAT"), strings.Contains(sqlType, "DOUBLE"), strings.Contains(sqlType, "DECIMAL"):
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case strings.Contains(sqlType, "BOOL"):
		switch strings.ToLower(value) {
		case "true", "false", "0", "1":
			return true
		}
		return false
	case strings.Contains(sqlType, "DATE"), strings.Contains(sqlType, "TIME"):
		for _, layout := range v.DateFormats {
			if _, err := time.Parse(layout, value); err == nil {
				return true
			}
		}
		return false
	case strings.HasPrefix(sqlType, "VARCHAR"):
		if max, ok := varcharLength(sqlType); ok {
			return len(value) <= max
		}
		return true
	default:
		// TEXT, BLOB and friends accept anything.
		return true
	}
}

// varcharLength extracts n from "VARCHAR(n)".
func varcharLength(sqlType string) (int, bool) {
	open := strings.Index(sqlType, "(")
	close := strings.Index(sqlType, ")")
	if open < 0 || close <= open+1 {
		return 0, false
	}
	n, err := strconv.Atoi(sqlType[open+1 : close])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Verify interfaces
var (
	_ Validator = (*CSVStructureValidator)(nil)
	_ Validator = (*DataTypeValidator)(nil)
)
