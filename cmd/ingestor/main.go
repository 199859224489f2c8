package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "embed"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"

	"github.com/tracebloc/ingestor/pkg/ingest/core/config"
	"github.com/tracebloc/ingestor/pkg/ingest/ingestor"
	"github.com/tracebloc/ingestor/pkg/ingest/reader"
	"github.com/tracebloc/ingestor/pkg/ingest/support/logger"
)

// embeddedConfig carries the default application configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// startIngestion runs the ingestion once the fx graph is up, then requests
// shutdown.
func startIngestion(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	ing *ingestor.Ingestor,
	src reader.RecordSource,
	cfg *config.Config,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered during ingestion: %v", r)
					}
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				logger.Infof("Starting ingestion into table '%s' from %s source '%s'",
					cfg.Ingest.TableName, cfg.Source.Format, cfg.Source.Path)

				failed, err := ing.Ingest(appCtx, src)
				if err != nil {
					logger.Errorf("Ingestion failed: %v", err)
					return
				}
				if len(failed) > 0 {
					logger.Warnf("Ingestion finished with %d failed records", len(failed))
					return
				}
				logger.Infof("Ingestion finished successfully")
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Stopping ingestion...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app := fx.New(GetApplicationOptions(ctx, envFilePath, config.EmbeddedConfig(embeddedConfig))...)
	app.Run()
	if app.Err() != nil {
		logger.Fatalf("Application run failed: %v", app.Err())
	}
}
