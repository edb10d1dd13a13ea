package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"stemlab/internal/accounts"
	"stemlab/internal/config"
	"stemlab/internal/library"
	"stemlab/internal/logging"
	"stemlab/internal/mailer"
	"stemlab/internal/separation"
	"stemlab/internal/server"
	"stemlab/internal/services/ffmpeg"
	"stemlab/internal/services/stemsep"
	"stemlab/internal/verification"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, exists, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if exists {
		logger.Info("configuration loaded", logging.String("path", resolvedPath))
	} else {
		logger.Info("configuration file not found, using defaults", logging.String("path", resolvedPath))
	}

	checkBinary(logger, "ffmpeg", cfg.FFmpegBinary())
	checkBinary(logger, "separation", cfg.SeparationBinary())

	converter, err := ffmpeg.New(cfg.FFmpegBinary())
	if err != nil {
		fatal(logger, "init ffmpeg client", err)
	}
	registry := stemsep.NewRegistry(cfg.SeparationBinary())
	orchestrator, err := separation.New(cfg.Paths.ScratchDir, cfg.Separation.DefaultModel, converter,
		func(model string) (separation.Separator, error) {
			client, err := registry.Resolve(model)
			if err != nil {
				return nil, err
			}
			return client, nil
		}, logger)
	if err != nil {
		fatal(logger, "init separation orchestrator", err)
	}

	libraryStore, err := library.NewStore(cfg.Paths.LibraryDir, logger)
	if err != nil {
		fatal(logger, "init library store", err)
	}

	srv, err := server.New(server.Options{
		Bind:       cfg.Paths.APIBind,
		Separation: orchestrator,
		Accounts:   accounts.NewStore(cfg.Paths.AccountsPath, logger),
		Codes:      verification.NewCache(),
		Mailer:     mailer.New(cfg.SMTP, logger),
		Library:    libraryStore,
		Logger:     logger,
	})
	if err != nil {
		fatal(logger, "init api server", err)
	}
	if err := srv.Start(ctx); err != nil {
		fatal(logger, "start api server", err)
	}

	<-ctx.Done()
	srv.Stop()
	logger.Info("stemlabd shutting down")
}

// checkBinary warns at startup when an external tool is not on PATH. The
// daemon still starts; separation requests will fail until the tool appears.
func checkBinary(logger *slog.Logger, name, binary string) {
	if _, err := exec.LookPath(binary); err != nil {
		logger.Warn("external binary not found",
			logging.String("dependency", name),
			logging.String("binary", binary))
	}
}

func fatal(logger *slog.Logger, message string, err error) {
	logger.Error(message, logging.Error(err))
	os.Exit(1)
}
