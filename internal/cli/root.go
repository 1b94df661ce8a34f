// Package cli implements formctl, the operator command line for the lead
// form configuration.
package cli

import (
	"context"
	"fmt"
	"time"

	"skaleclub_backend/internal/events"
	"skaleclub_backend/internal/leadform/archive"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/internal/leadform/service"
	"skaleclub_backend/platform/config"
	"skaleclub_backend/platform/db"
	"skaleclub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// FormConfigService is the part of the config service the commands drive.
type FormConfigService interface {
	Status(ctx context.Context) (service.ConfigStatus, error)
	Sync(ctx context.Context, dryRun bool, updatedBy *uuid.UUID) (service.SyncResult, error)
	Archives(ctx context.Context, limit int) ([]archive.Snapshot, error)
	Baseline() domain.FormConfig
}

// Opener connects a FormConfigService. The returned func releases it.
type Opener func(ctx context.Context) (FormConfigService, func(), error)

// NewRootCommand creates the formctl root command backed by the database
// named in the environment.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openFromEnv)
}

func newRootCommand(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "formctl",
		Short: "Manage the lead qualification form configuration",
		Long: `formctl inspects and reconciles the stored lead form configuration
against the baseline shipped with this build.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSyncCommand(open))
	root.AddCommand(newShowCommand(open))
	root.AddCommand(newArchivesCommand(open))
	root.AddCommand(newValidateCommand())

	return root
}

func openFromEnv(ctx context.Context) (FormConfigService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Env)

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	bus := events.NewInMemoryBus(log)
	configs := service.NewConfigService(repository.New(pool), domain.DefaultConfig(), bus, log)

	if cfg.IsMinIOEnabled() {
		archiver, err := archive.NewMinIOArchiver(cfg)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("init config archive: %w", err)
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure archive bucket: %w", err)
		}
		configs.SetArchiver(archiver)
	}

	return configs, func() {
		bus.Wait()
		pool.Close()
	}, nil
}

func withService(cmd *cobra.Command, open Opener, fn func(ctx context.Context, svc FormConfigService) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	svc, release, err := open(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, svc)
}
