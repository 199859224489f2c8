// Package validator implements the pre-flight validation gate run against a
// source before any record is read or persisted. Validators are independent
// and stateless; the chain runs every configured validator unconditionally
// and merges their results, so a failing source surfaces all of its problems
// at once instead of one at a time.
package validator

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// Descriptor identifies the source and destination of an ingestion run for
// validation purposes. Validators inspect the filesystem content it points at
// but never mutate it.
type Descriptor struct {
	// Path is the source file or directory being ingested.
	Path string
	// TableName is the destination table name.
	TableName string
	// Schema is the caller-declared destination schema.
	Schema model.Schema
	// DestPath is the destination directory for file-backed media, if any.
	DestPath string
}

// Result holds the outcome of one validator (or of the merged chain).
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []string
	Metadata map[string]any
}

// NewResult builds a Result; a nil/empty error list means the check passed.
func NewResult(errors, warnings []string, metadata map[string]any) Result {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Result{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
		Metadata: metadata,
	}
}

// Merge combines another result into this one: logical AND on validity,
// concatenation of errors and warnings, union of metadata.
func (r *Result) Merge(other Result) {
	r.Valid = r.Valid && other.Valid
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	for k, v := range other.Metadata {
		r.Metadata[k] = v
	}
}

// Validator is a single pre-flight check. Implementations must be pure with
// respect to external state other than the filesystem content they inspect,
// and safe to reuse across runs.
type Validator interface {
	// Name returns the human-readable validator name used in error messages.
	Name() string
	// Validate inspects the source and reports the outcome. It never mutates
	// the source.
	Validate(ctx context.Context, desc Descriptor) Result
}

// Chain is an ordered, all-must-pass set of validators.
type Chain struct {
	validators []Validator
}

// NewChain creates a Chain over the given validators, preserving order.
func NewChain(validators ...Validator) *Chain {
	return &Chain{validators: validators}
}

// Validators returns the ordered validator list.
func (c *Chain) Validators() []Validator {
	return c.validators
}

// Run executes every validator in order — no short-circuit — and merges the
// results. Warnings are logged but never block the run.
func (c *Chain) Run(ctx context.Context, desc Descriptor) Result {
	merged := NewResult(nil, nil, nil)
	for _, v := range c.validators {
		res := v.Validate(ctx, desc)
		for _, w := range res.Warnings {
			logger.Warnf("Validator %s: %s", v.Name(), w)
		}
		if !res.Valid {
			logger.Errorf("Validator %s failed with %d error(s)", v.Name(), len(res.Errors))
		}
		// Prefix errors with the validator name so the aggregate stays
		// diagnosable without logs.
		for i, e := range res.Errors {
			res.Errors[i] = fmt.Sprintf("%s: %s", v.Name(), e)
		}
		merged.Merge(res)
	}
	return merged
}

// AggregateError converts a failed merged result into a single error carrying
// every collected message in chain order. It returns nil for a valid result.
func (r Result) AggregateError() error {
	if r.Valid {
		return nil
	}
	var agg *multierror.Error
	for _, e := range r.Errors {
		agg = multierror.Append(agg, fmt.Errorf("%s", e))
	}
	return agg.ErrorOrNil()
}
