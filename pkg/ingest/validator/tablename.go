package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// tableNamePattern is the accepted destination table naming convention:
// a letter or underscore followed by letters, digits and underscores.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedTableNames are common SQL keywords that make poor table names.
// Using one is surfaced as a warning, not an error.
var reservedTableNames = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {},
	"table": {}, "index": {}, "order": {}, "group": {},
	"user": {}, "database": {}, "schema": {}, "key": {},
}

// maxTableNameLength is the MySQL identifier limit.
const maxTableNameLength = 64

// TableNameValidator checks naming-convention compliance of the destination
// table name.
type TableNameValidator struct{}

// NewTableNameValidator creates a TableNameValidator.
func NewTableNameValidator() *TableNameValidator {
	return &TableNameValidator{}
}

func (v *TableNameValidator) Name() string {
	return "table_name"
}

func (v *TableNameValidator) Validate(ctx context.Context, desc Descriptor) Result {
	name := desc.TableName
	var errs []string
	var warnings []string

	switch {
	case name == "":
		errs = append(errs, "table name is empty")
	case len(name) > maxTableNameLength:
		errs = append(errs, fmt.Sprintf("table name %q exceeds %d characters", name, maxTableNameLength))
	case !tableNamePattern.MatchString(name):
		errs = append(errs, fmt.Sprintf("table name %q contains invalid characters; expected %s", name, tableNamePattern.String()))
	}

	if _, reserved := reservedTableNames[strings.ToLower(name)]; reserved {
		warnings = append(warnings, fmt.Sprintf("%q is a common reserved keyword", name))
	}

	return NewResult(errs, warnings, nil)
}

// Verify interfaces
var _ Validator = (*TableNameValidator)(nil)
