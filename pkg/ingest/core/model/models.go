// Package model defines the core data types shared by the ingestor
// components: raw and cleaned records, the destination schema, the fixed
// intent and task-category enumerations, and the end-of-run summary.
package model

// RawRecord is a single record as produced by a record source: a mapping of
// source field name to untyped scalar value. It is ephemeral and consumed
// exactly once by the mapper.
type RawRecord map[string]any

// Record is a cleaned record derived from a RawRecord: only schema-declared
// keys survive, every value is stringified and trimmed, and the synthesized
// identity and classification fields are attached.
type Record map[string]string

// Schema maps destination column names to their declared SQL type strings
// (e.g. "VARCHAR(255)", "INT", "FLOAT", "BOOLEAN", "DATETIME", "TEXT").
// It is author-supplied and immutable for the lifetime of one ingestion run.
type Schema map[string]string

// Synthesized record fields attached by the mapper and the persistence layer.
const (
	FieldDataID     = "data_id"
	FieldLabel      = "label"
	FieldDataIntent = "data_intent"
	FieldAnnotation = "annotation"
	FieldIngestorID = "ingestor_id"
)

// Intent designates whether ingested data is meant for training or testing.
type Intent string

const (
	IntentTrain Intent = "train"
	IntentTest  Intent = "test"
)

// AllIntents returns the fixed enumeration of valid intents.
func AllIntents() []Intent {
	return []Intent{IntentTrain, IntentTest}
}

// IsValid reports whether the intent is a member of the fixed enumeration.
func (i Intent) IsValid() bool {
	return i == IntentTrain || i == IntentTest
}

// TaskCategory selects which validators and downstream dataset-preparation
// semantics apply to an ingestion run.
type TaskCategory string

const (
	ImageClassification   TaskCategory = "image_classification"
	ObjectDetection       TaskCategory = "object_detection"
	KeypointDetection     TaskCategory = "keypoint_detection"
	TextClassification    TaskCategory = "text_classification"
	TabularClassification TaskCategory = "tabular_classification"
	TabularRegression     TaskCategory = "tabular_regression"
	TimeSeriesForecasting TaskCategory = "time_series_forecasting"
)

// AllTaskCategories returns the closed enumeration of task categories.
func AllTaskCategories() []TaskCategory {
	return []TaskCategory{
		ImageClassification,
		ObjectDetection,
		KeypointDetection,
		TextClassification,
		TabularClassification,
		TabularRegression,
		TimeSeriesForecasting,
	}
}

// IsValid reports whether the category is a member of the closed enumeration.
func (c TaskCategory) IsValid() bool {
	for _, known := range AllTaskCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// FailedRecord pairs a record (cleaned when mapping succeeded, otherwise the
// raw form) with the error that prevented it from being persisted.
type FailedRecord struct {
	Record map[string]any `json:"record"`
	Err    string         `json:"error"`
}

// NewFailedRecord builds a FailedRecord from a cleaned record.
func NewFailedRecord(rec Record, err error) FailedRecord {
	m := make(map[string]any, len(rec))
	for k, v := range rec {
		m[k] = v
	}
	return FailedRecord{Record: m, Err: err.Error()}
}

// NewFailedRawRecord builds a FailedRecord from a raw record that never made
// it through mapping.
func NewFailedRawRecord(raw RawRecord, err error) FailedRecord {
	m := make(map[string]any, len(raw))
	for k, v := range raw {
		m[k] = v
	}
	return FailedRecord{Record: m, Err: err.Error()}
}

// IngestionSummary is the immutable end-of-run accounting snapshot.
// It is computed once, after the post-processing chain has completed.
type IngestionSummary struct {
	IngestorID       string
	TotalRecords     int
	ProcessedRecords int
	InsertedRecords  int
	APISentRecords   int
	FailedRecords    int
	SkippedRecords   int
}
