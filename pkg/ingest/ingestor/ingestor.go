// Package ingestor implements the ingestion engine: a single-threaded
// pipeline that validates the source, streams and maps records, persists
// them in idempotent batches, delivers batch metadata, and closes the run
// with an ordered post-processing chain.
package ingestor

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/metrics"
	"github.com/tracebloc/ingestor/pkg/ingest/reader"
	"github.com/tracebloc/ingestor/pkg/ingest/support/exception"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
	"github.com/tracebloc/ingestor/pkg/ingest/validator"
)

// defaultBatchSize applies when Options leaves BatchSize unset.
const defaultBatchSize = 50

// RecordStore is the persistence surface the engine needs. Implemented by
// database.Database.
type RecordStore interface {
	CreateTable(ctx context.Context, tableName string, schema model.Schema) error
	InsertBatch(ctx context.Context, tableName string, batch []model.Record) (int, []model.FailedRecord, error)
	TableSchema(ctx context.Context, tableName string) (model.Schema, error)
}

// DeliveryClient is the remote metadata surface the engine needs.
// Implemented by api.Client.
type DeliveryClient interface {
	SendBatch(ctx context.Context, tableName string, batch []model.Record) error
	SendGenerateEdgeLabelMeta(ctx context.Context, tableName, ingestorID string, intent model.Intent) error
	SendGlobalMeta(ctx context.Context, tableName string, schema model.Schema, metaData map[string]interface{}) error
	PrepareDataset(ctx context.Context, category model.TaskCategory, ingestorID, dataFormat string, intent model.Intent) error
	CreateDataset(ctx context.Context, title string, category model.TaskCategory, ingestorID string) (map[string]interface{}, error)
}

// RunRecorder persists the outcome of a finished run. Implemented by
// history.Store.
type RunRecorder interface {
	RecordRun(ctx context.Context, tableName string, summary model.IngestionSummary, startedAt, finishedAt time.Time, runErr error) error
}

// Options configures an Ingestor.
type Options struct {
	Store    RecordStore
	Delivery DeliveryClient

	TableName string
	Schema    model.Schema
	Category  model.TaskCategory
	Intent    model.Intent
	// DataFormat names the source format ("csv", "json", "parquet"),
	// forwarded to dataset preparation.
	DataFormat string
	// Title is the dataset title; empty derives one from category and
	// ingestor id.
	Title string

	// UniqueIDColumn selects the source column carrying the external
	// identity. Empty means a fresh UUID per record.
	UniqueIDColumn   string
	LabelColumn      string
	AnnotationColumn string

	BatchSize  int
	Processors []Processor
	Validators *validator.Chain

	// ValidatorDescriptor describes what the validator chain inspects.
	ValidatorDescriptor validator.Descriptor

	Metrics metrics.Recorder
	History RunRecorder
}

// Ingestor runs one ingestion target end to end. The ingestor id is minted
// at construction and stamps every record the instance processes.
type Ingestor struct {
	opts       Options
	ingestorID string
	mapper     *mapper
}

// New creates an Ingestor and provisions its destination table.
func New(ctx context.Context, opts Options) (*Ingestor, error) {
	if opts.Store == nil || opts.Delivery == nil {
		return nil, exception.Newf("ingestor", "store and delivery client are required")
	}
	if opts.TableName == "" {
		return nil, exception.Newf("ingestor", "table name is required")
	}
	if !opts.Intent.IsValid() {
		return nil, exception.Newf("ingestor", "invalid intent '%s', must be one of %v", opts.Intent, model.AllIntents())
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoOpRecorder()
	}

	ingestorID := uuid.New().String()

	if err := opts.Store.CreateTable(ctx, opts.TableName, opts.Schema); err != nil {
		return nil, err
	}

	return &Ingestor{
		opts:       opts,
		ingestorID: ingestorID,
		mapper: &mapper{
			schema:           opts.Schema,
			intent:           opts.Intent,
			uniqueIDColumn:   opts.UniqueIDColumn,
			labelColumn:      opts.LabelColumn,
			annotationColumn: opts.AnnotationColumn,
			ingestorID:       ingestorID,
		},
	}, nil
}

// IngestorID returns the identity stamped on every record of this instance.
func (ing *Ingestor) IngestorID() string {
	return ing.ingestorID
}

// runStats tracks accounting during a run. Counters only grow.
type runStats struct {
	total     int
	processed int
	inserted  int
	apiSent   int
	failed    int
	skipped   int
}

// summary freezes the stats into the immutable run summary.
func (s *runStats) summary(ingestorID string) model.IngestionSummary {
	return model.IngestionSummary{
		IngestorID:       ingestorID,
		TotalRecords:     s.total,
		ProcessedRecords: s.processed,
		InsertedRecords:  s.inserted,
		APISentRecords:   s.apiSent,
		FailedRecords:    s.failed,
		SkippedRecords:   s.skipped,
	}
}

// Ingest runs the full pipeline against src. It returns the records that
// failed persistence; a non-nil error means the run aborted (validation
// failure, source failure, or a post-processing stage that did not complete).
// Batches committed before an abort stay durable.
func (ing *Ingestor) Ingest(ctx context.Context, src reader.RecordSource) ([]model.FailedRecord, error) {
	startedAt := time.Now()
	defer ing.cleanupProcessors()

	// Hard gate: no record is read before the chain passes.
	if ing.opts.Validators != nil {
		result := ing.opts.Validators.Run(ctx, ing.opts.ValidatorDescriptor)
		if !result.Valid {
			return nil, exception.New("ingestor", "pre-flight validation failed", result.AggregateError(), false, false)
		}
		logger.Infof("Pre-flight validation passed (%d validators)", len(ing.opts.Validators.Validators()))
	}

	if err := src.Open(ctx); err != nil {
		return nil, err
	}
	defer src.Close()

	stats := &runStats{}
	preCounted := false
	if n, ok := src.Count(ctx); ok {
		stats.total = n
		preCounted = true
	}

	var failedRecords []model.FailedRecord
	batch := make([]model.Record, 0, ing.opts.BatchSize)

	for {
		raw, err := src.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if exception.IsRecordScoped(err) {
				if !preCounted {
					stats.total++
				}
				stats.failed++
				ing.opts.Metrics.RecordFailed(ing.opts.TableName, 1)
				failedRecords = append(failedRecords, model.NewFailedRawRecord(nil, err))
				continue
			}
			return failedRecords, err
		}
		if !preCounted {
			stats.total++
		}
		ing.opts.Metrics.RecordRead(ing.opts.TableName)

		record, err := ing.processRecord(ctx, raw)
		if err != nil {
			if isSkip(err) {
				stats.skipped++
				ing.opts.Metrics.RecordSkipped(ing.opts.TableName)
				logger.Warnf("Skipping record: %s", err)
				continue
			}
			if exception.IsRecordScoped(err) {
				stats.failed++
				ing.opts.Metrics.RecordFailed(ing.opts.TableName, 1)
				failedRecords = append(failedRecords, model.NewFailedRawRecord(raw, err))
				continue
			}
			return failedRecords, err
		}
		stats.processed++
		batch = append(batch, record)

		if len(batch) >= ing.opts.BatchSize {
			var flushErr error
			failedRecords, flushErr = ing.flushBatch(ctx, batch, stats, failedRecords)
			if flushErr != nil {
				return failedRecords, flushErr
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		var flushErr error
		failedRecords, flushErr = ing.flushBatch(ctx, batch, stats, failedRecords)
		if flushErr != nil {
			return failedRecords, flushErr
		}
	}

	runErr := ing.postProcess(ctx)

	summary := stats.summary(ing.ingestorID)
	finishedAt := time.Now()
	ing.opts.Metrics.RecordRunCompleted(ing.opts.TableName, summary, finishedAt.Sub(startedAt), runErr)
	if ing.opts.History != nil {
		if err := ing.opts.History.RecordRun(ctx, ing.opts.TableName, summary, startedAt, finishedAt, runErr); err != nil {
			logger.Errorf("Failed to record run history: %v", err)
		}
	}

	if runErr == nil {
		ing.logSummary(summary)
	}
	return failedRecords, runErr
}

// processRecord maps one raw record and runs it through the processors.
func (ing *Ingestor) processRecord(ctx context.Context, raw model.RawRecord) (model.Record, error) {
	record, err := ing.mapper.Map(raw)
	if err != nil {
		return nil, err
	}
	for _, p := range ing.opts.Processors {
		record, err = p.Process(ctx, record)
		if err != nil {
			// A processor failure is a transform failure, counted against the
			// record, not a configuration skip.
			return nil, exception.New("ingestor", "record transform failed", err, true, false)
		}
	}
	return record, nil
}

// flushBatch persists one batch and delivers its metadata. Row-level
// persistence failures are isolated per record; a store error is fatal and
// aborts the run. Delivery failure never undoes a commit, it only keeps
// api_sent behind inserted.
func (ing *Ingestor) flushBatch(ctx context.Context, batch []model.Record, stats *runStats, failedRecords []model.FailedRecord) ([]model.FailedRecord, error) {
	batchStart := time.Now()
	defer func() {
		ing.opts.Metrics.RecordBatch(ing.opts.TableName, time.Since(batchStart))
	}()

	inserted, dbFailures, err := ing.opts.Store.InsertBatch(ctx, ing.opts.TableName, batch)
	if err != nil {
		logger.Errorf("Batch of %d records failed persistence: %v", len(batch), err)
		return failedRecords, err
	}

	stats.inserted += inserted
	ing.opts.Metrics.RecordInserted(ing.opts.TableName, inserted)
	if len(dbFailures) > 0 {
		stats.failed += len(dbFailures)
		ing.opts.Metrics.RecordFailed(ing.opts.TableName, len(dbFailures))
		failedRecords = append(failedRecords, dbFailures...)
	}

	if inserted == 0 {
		return failedRecords, nil
	}

	delivered := deliverable(batch, dbFailures)
	if err := ing.opts.Delivery.SendBatch(ctx, ing.opts.TableName, delivered); err != nil {
		logger.Errorf("Failed to send batch metadata to API: %v", err)
		return failedRecords, nil
	}
	stats.apiSent += inserted
	ing.opts.Metrics.RecordSent(ing.opts.TableName, inserted)
	return failedRecords, nil
}

// deliverable strips the records that failed persistence out of the batch,
// so only durable rows are announced.
func deliverable(batch []model.Record, dbFailures []model.FailedRecord) []model.Record {
	if len(dbFailures) == 0 {
		return batch
	}
	failedIDs := make(map[string]bool, len(dbFailures))
	for _, f := range dbFailures {
		if id, ok := f.Record[model.FieldDataID].(string); ok {
			failedIDs[id] = true
		}
	}
	kept := make([]model.Record, 0, len(batch))
	for _, rec := range batch {
		if !failedIDs[rec[model.FieldDataID]] {
			kept = append(kept, rec)
		}
	}
	return kept
}

// postProcess runs the ordered finalization chain. Each stage gates the
// next; the first failure aborts with an error naming the stage.
func (ing *Ingestor) postProcess(ctx context.Context) error {
	if err := ing.opts.Delivery.SendGenerateEdgeLabelMeta(ctx, ing.opts.TableName, ing.ingestorID, ing.opts.Intent); err != nil {
		return exception.New("ingestor", "post-processing failed at edge label generation", err, false, false)
	}
	tableSchema, err := ing.opts.Store.TableSchema(ctx, ing.opts.TableName)
	if err != nil {
		return exception.New("ingestor", "post-processing failed at schema registration", err, false, false)
	}
	if err := ing.opts.Delivery.SendGlobalMeta(ctx, ing.opts.TableName, tableSchema, ing.metaData()); err != nil {
		return exception.New("ingestor", "post-processing failed at schema registration", err, false, false)
	}
	if err := ing.opts.Delivery.PrepareDataset(ctx, ing.opts.Category, ing.ingestorID, ing.opts.DataFormat, ing.opts.Intent); err != nil {
		return exception.New("ingestor", "post-processing failed at dataset preparation", err, false, false)
	}
	if _, err := ing.opts.Delivery.CreateDataset(ctx, ing.opts.Title, ing.opts.Category, ing.ingestorID); err != nil {
		return exception.New("ingestor", "post-processing failed at dataset creation", err, false, false)
	}
	return nil
}

// metaData assembles the additional metadata registered with the schema.
func (ing *Ingestor) metaData() map[string]interface{} {
	return map[string]interface{}{
		"category":    string(ing.opts.Category),
		"data_intent": string(ing.opts.Intent),
		"data_format": ing.opts.DataFormat,
		"ingestor_id": ing.ingestorID,
	}
}

// cleanupProcessors releases processor resources on every exit path.
func (ing *Ingestor) cleanupProcessors() {
	for _, p := range ing.opts.Processors {
		if err := p.Cleanup(); err != nil {
			logger.Errorf("Error during processor cleanup: %v", err)
		}
	}
}

// logSummary prints the final accounting block.
func (ing *Ingestor) logSummary(summary model.IngestionSummary) {
	logger.Infof("==================================================")
	logger.Infof("INGESTION SUMMARY")
	logger.Infof("==================================================")
	logger.Infof("Total Records Found:     %d", summary.TotalRecords)
	logger.Infof("Successfully Processed:  %d", summary.ProcessedRecords)
	logger.Infof("Inserted to Database:    %d", summary.InsertedRecords)
	logger.Infof("Sent to API:             %d", summary.APISentRecords)
	logger.Infof("Failed Records:          %d", summary.FailedRecords)
	logger.Infof("Skipped Records:         %d", summary.SkippedRecords)
	if summary.TotalRecords > 0 {
		rate := float64(summary.InsertedRecords) / float64(summary.TotalRecords) * 100
		logger.Infof("Success Rate: %.2f%%", rate)
	}
	logger.Infof("==================================================")
}
