package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/nitrogen-response/internal/artifact"
	"github.com/iwvelando/nitrogen-response/internal/config"
	"github.com/iwvelando/nitrogen-response/internal/metrics"
	"github.com/iwvelando/nitrogen-response/internal/pipeline"
	"github.com/iwvelando/nitrogen-response/internal/server"
	"github.com/iwvelando/nitrogen-response/pkg/constants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var serverConfigPath, maxDatasetSize string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chart triggers over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(root, serverConfigPath, maxDatasetSize)
		},
	}
	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&maxDatasetSize, "max-dataset-size", "", "dataset size limit override (e.g. 256K, 64M)")
	return cmd
}

func runServe(root *rootOptions, serverConfigPath, maxDatasetSize string) error {
	conf, err := loadConfiguration(root.configPath)
	if err != nil {
		return err
	}

	srvConf, err := loadServerConfig(serverConfigPath, maxDatasetSize)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(mergeLogging(conf.Logging, srvConf.Logging), root.logLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	settings, err := pipeline.SettingsFromConfig(conf)
	if err != nil {
		return err
	}
	settings.MaxDatasetSize = srvConf.DatasetSizeBytes()

	osFs := afero.NewOsFs()
	generator := pipeline.NewGenerator(logger, osFs, artifact.NewStore(logger, osFs), settings)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := server.NewHandler(logger, generator, server.Options{
		Version:           version,
		ArtifactURLPrefix: srvConf.ArtifactURLPrefix,
		Artifacts:         osFs,
		Metrics:           metrics.New(reg),
		Gatherer:          reg,
	})

	httpServer := &http.Server{
		Addr:              srvConf.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			zap.String("op", "main.serve"),
			zap.String("address", srvConf.Address),
			zap.String("dataset", settings.DatasetPath),
			zap.Int64("max_dataset_bytes", settings.MaxDatasetSize),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// loadServerConfig reads the server config and applies the CLI dataset size override.
func loadServerConfig(path, maxDatasetSize string) (*server.Config, error) {
	srvConf, err := server.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if maxDatasetSize != "" {
		size, err := server.ParseSize(maxDatasetSize)
		if err != nil {
			return nil, fmt.Errorf("invalid --max-dataset-size: %w", err)
		}
		srvConf.SetDatasetSizeBytes(size)
	}
	return srvConf, nil
}

// mergeLogging lets the server config override individual logging fields.
func mergeLogging(base, override config.LoggingConfig) config.LoggingConfig {
	if override.Level != "" {
		base.Level = override.Level
	}
	if override.Format != "" {
		base.Format = override.Format
	}
	if override.OutputFile != "" {
		base.OutputFile = override.OutputFile
	}
	return base
}
