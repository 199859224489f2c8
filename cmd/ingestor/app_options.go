package main

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/fx"

	"github.com/tracebloc/ingestor/pkg/ingest/api"
	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/core/model"
	"github.com/tracebloc/ingestor/pkg/ingest/database"
	"github.com/tracebloc/ingestor/pkg/ingest/history"
	"github.com/tracebloc/ingestor/pkg/ingest/ingestor"
	"github.com/tracebloc/ingestor/pkg/ingest/metrics"
	"github.com/tracebloc/ingestor/pkg/ingest/reader"
	"github.com/tracebloc/ingestor/pkg/ingest/retry"
	"github.com/tracebloc/ingestor/pkg/ingest/storage"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
	"github.com/tracebloc/ingestor/pkg/ingest/transfer"
	"github.com/tracebloc/ingestor/pkg/ingest/validator"
)

// GetApplicationOptions assembles the fx options for the ingestor
// application.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	return []fx.Option{
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
		),
		config.Module,
		fx.Provide(
			newPolicy,
			newDatabase,
			newAPIClient,
			newRecorder,
			newHistoryStore,
			newValidatorChain,
			newRecordSource,
			newProcessors,
			newIngestor,
		),
		fx.Invoke(fx.Annotate(startIngestion, fx.ParamTags("", "", "", "", "", `name:"appCtx"`))),
	}
}

func newPolicy(cfg *config.Config) retry.Policy {
	return retry.NewPolicy(cfg.API.Retry)
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config) (*database.Database, error) {
	db, err := database.Open(cfg.Database, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

func newAPIClient(cfg *config.Config, policy retry.Policy) (*api.Client, error) {
	return api.NewClient(cfg.API, policy)
}

func newRecorder() metrics.Recorder {
	return metrics.NewPrometheusRecorder()
}

func newHistoryStore(db *database.Database) (*history.Store, error) {
	sqlDB, err := db.SQLDB()
	if err != nil {
		return nil, err
	}
	if err := history.Migrate(sqlDB, db.Dialect()); err != nil {
		return nil, err
	}
	return history.NewStore(db.GormDB()), nil
}

func newValidatorChain(cfg *config.Config) (*validator.Chain, error) {
	validators, err := validator.ForCategory(
		model.TaskCategory(cfg.Ingest.Category),
		cfg.Ingest.ValidatorOptions,
	)
	if err != nil {
		return nil, err
	}
	return validator.NewChain(validators...), nil
}

func newRecordSource(cfg *config.Config) (reader.RecordSource, error) {
	return reader.ForSource(cfg.Source)
}

// newProcessors wires the file-mirroring processors for the file-backed
// categories. Tabular and time-series runs carry no processors.
func newProcessors(cfg *config.Config, policy retry.Policy) ([]ingestor.Processor, error) {
	opts, err := validator.OptionsFromProps(cfg.Ingest.ValidatorOptions)
	if err != nil {
		return nil, err
	}

	// When the source is a file (a CSV listing filenames), the media
	// subdirectories live next to it.
	srcDir := cfg.Source.Path
	if info, err := os.Stat(srcDir); err == nil && !info.IsDir() {
		srcDir = filepath.Dir(srcDir)
	}

	switch model.TaskCategory(cfg.Ingest.Category) {
	case model.ImageClassification, model.KeypointDetection, model.TextClassification:
		store, err := storage.ForConfig(context.Background(), cfg.Storage)
		if err != nil {
			return nil, err
		}
		return []ingestor.Processor{
			transfer.NewFileProcessor(store, policy, srcDir, opts.ImagesSubdir, opts.Extension, true),
		}, nil
	case model.ObjectDetection:
		store, err := storage.ForConfig(context.Background(), cfg.Storage)
		if err != nil {
			return nil, err
		}
		return []ingestor.Processor{
			transfer.NewFileProcessor(store, policy, srcDir, opts.ImagesSubdir, opts.Extension, false),
			transfer.NewFileProcessor(store, policy, srcDir, opts.AnnotationsSubdir, opts.AnnotationExtension, true),
		}, nil
	default:
		return nil, nil
	}
}

func newIngestor(
	cfg *config.Config,
	db *database.Database,
	client *api.Client,
	chain *validator.Chain,
	processors []ingestor.Processor,
	recorder metrics.Recorder,
	store *history.Store,
) (*ingestor.Ingestor, error) {
	desc := validator.Descriptor{
		Path:      cfg.Source.Path,
		TableName: cfg.Ingest.TableName,
		Schema:    model.Schema(cfg.Ingest.Schema),
		DestPath:  cfg.Storage.DestPath,
	}

	// Pre-flight duplicate check, before the engine creates its table. An
	// existing destination means an upsert run, which is worth a warning but
	// must not block re-ingestion.
	result := validator.NewDuplicateValidator(db).Validate(context.Background(), desc)
	for _, w := range result.Warnings {
		logger.Warnf("Duplicate check: %s", w)
	}
	for _, e := range result.Errors {
		logger.Warnf("Duplicate check: %s; existing rows will be upserted", e)
	}

	return ingestor.New(context.Background(), ingestor.Options{
		Store:               db,
		Delivery:            client,
		TableName:           cfg.Ingest.TableName,
		Schema:              model.Schema(cfg.Ingest.Schema),
		Category:            model.TaskCategory(cfg.Ingest.Category),
		Intent:              model.Intent(cfg.Ingest.Intent),
		DataFormat:          cfg.Source.Format,
		Title:               cfg.Ingest.Title,
		UniqueIDColumn:      cfg.Ingest.UniqueIDColumn,
		LabelColumn:         cfg.Ingest.LabelColumn,
		AnnotationColumn:    cfg.Ingest.AnnotationColumn,
		BatchSize:           cfg.Ingest.BatchSize,
		Processors:          processors,
		Validators:          chain,
		ValidatorDescriptor: desc,
		Metrics:             recorder,
		History:             store,
	})
}
