package ingestor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// mapper turns raw source records into cleaned records ready for
// persistence: schema filtering, identity mapping, intent stamping.
type mapper struct {
	schema           model.Schema
	intent           model.Intent
	uniqueIDColumn   string
	labelColumn      string
	annotationColumn string
	ingestorID       string
}

// skipError marks records the mapper rejects. They are counted as skipped,
// never as failed.
type skipError struct {
	reason string
}

func (e *skipError) Error() string {
	return e.reason
}

// isSkip reports whether err marks a mapper rejection.
func isSkip(err error) bool {
	_, ok := err.(*skipError)
	return ok
}

// Map converts one raw record into a cleaned record. A nil record with a
// skip error means the record was rejected and must not reach persistence.
func (m *mapper) Map(raw model.RawRecord) (model.Record, error) {
	if !m.intent.IsValid() {
		return nil, exception.Newf("ingestor", "invalid intent '%s', must be one of %v", m.intent, model.AllIntents())
	}

	cleaned := make(model.Record, len(m.schema)+5)
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if _, ok := m.schema[key]; !ok {
			continue
		}
		cleaned[key] = stringify(v)
	}

	// Missing label or annotation columns are tolerated with a warning; the
	// record still goes through with the field blank.
	if m.labelColumn != "" {
		if _, ok := raw[m.labelColumn]; !ok {
			logger.Warnf("Specified label column '%s' not found in record", m.labelColumn)
		}
		cleaned[model.FieldLabel] = stringify(raw[m.labelColumn])
	}
	if m.annotationColumn != "" {
		if _, ok := raw[m.annotationColumn]; !ok {
			logger.Warnf("Specified annotation column '%s' not found in record", m.annotationColumn)
		}
		cleaned[model.FieldAnnotation] = stringify(raw[m.annotationColumn])
	}
	cleaned[model.FieldDataIntent] = string(m.intent)

	if m.uniqueIDColumn == "" {
		cleaned[model.FieldDataID] = uuid.New().String()
	} else {
		id := stringify(raw[m.uniqueIDColumn])
		if id == "" {
			return nil, &skipError{reason: fmt.Sprintf("missing or blank unique ID in column '%s'", m.uniqueIDColumn)}
		}
		cleaned[model.FieldDataID] = id
	}

	cleaned[model.FieldIngestorID] = m.ingestorID
	return cleaned, nil
}

// stringify renders a raw value as a trimmed string; nil becomes the empty
// string.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
