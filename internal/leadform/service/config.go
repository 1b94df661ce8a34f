package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"github.com/google/uuid"

	"skaleclub_backend/internal/events"
	"skaleclub_backend/internal/leadform/archive"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/reconcile"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/internal/leadform/scoring"
	"skaleclub_backend/platform/apperr"
	"skaleclub_backend/platform/logger"
)

// ConfigSource tells where the effective configuration came from.
type ConfigSource string

const (
	SourceStored  ConfigSource = "stored"
	SourceDefault ConfigSource = "default"
)

// ConfigCache caches the serialized effective configuration.
type ConfigCache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, raw []byte) error
	Invalidate(ctx context.Context) error
}

// ConfigArchiver keeps snapshots of configurations replaced by a sync.
type ConfigArchiver interface {
	Archive(ctx context.Context, raw []byte, at time.Time) (string, error)
	List(ctx context.Context, limit int) ([]archive.Snapshot, error)
}

// ConfigStatus is the effective configuration plus how it was resolved.
type ConfigStatus struct {
	Config           domain.FormConfig
	Source           ConfigSource
	PendingMigration bool
	UpdatedAt        *time.Time
	UpdatedBy        *uuid.UUID
}

// SyncResult is the outcome of reconciling the stored configuration.
type SyncResult struct {
	Config     domain.FormConfig
	Report     reconcile.Report
	Changed    bool
	DryRun     bool
	Saved      bool
	ArchiveKey string
}

// ConfigService resolves, saves and syncs the lead form configuration.
type ConfigService struct {
	store    repository.ConfigStore
	baseline domain.FormConfig
	bus      events.Bus
	log      *logger.Logger
	cache    ConfigCache
	archiver ConfigArchiver
	now      func() time.Time
}

// NewConfigService creates a config service. baseline is the code-defined
// configuration used when nothing valid is stored and as the sync target.
func NewConfigService(store repository.ConfigStore, baseline domain.FormConfig, bus events.Bus, log *logger.Logger) *ConfigService {
	return &ConfigService{
		store:    store,
		baseline: baseline.Clone(),
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// SetCache enables caching of the effective configuration.
func (s *ConfigService) SetCache(cache ConfigCache) { s.cache = cache }

// SetArchiver enables snapshots before sync overwrites the stored config.
func (s *ConfigService) SetArchiver(archiver ConfigArchiver) { s.archiver = archiver }

// Baseline returns a copy of the code-defined configuration.
func (s *ConfigService) Baseline() domain.FormConfig { return s.baseline.Clone() }

// Effective returns the configuration used for rendering and scoring.
func (s *ConfigService) Effective(ctx context.Context) (domain.FormConfig, error) {
	log := s.log.WithContext(ctx)

	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Warn("lead form cache read failed", "error", err)
		} else if ok {
			var cfg domain.FormConfig
			if err := json.Unmarshal(raw, &cfg); err == nil {
				return cfg, nil
			}
			log.Warn("discarding undecodable lead form cache entry")
		}
	}

	status, err := s.Status(ctx)
	if err != nil {
		return domain.FormConfig{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(status.Config); err == nil {
			if err := s.cache.Set(ctx, raw); err != nil {
				log.Warn("lead form cache write failed", "error", err)
			}
		}
	}
	return status.Config, nil
}

// Status resolves the effective configuration from storage. A stored
// configuration that cannot be decoded or fails validation is replaced by
// the baseline and flagged as pending migration.
func (s *ConfigService) Status(ctx context.Context) (ConfigStatus, error) {
	stored, err := s.store.GetFormConfig(ctx)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return ConfigStatus{Config: s.Baseline(), Source: SourceDefault}, nil
		}
		s.log.WithContext(ctx).DatabaseError("get_form_config", err)
		return ConfigStatus{}, apperr.Wrap(apperr.KindInternal, "failed to load lead form config", err)
	}

	status := ConfigStatus{UpdatedAt: &stored.UpdatedAt, UpdatedBy: stored.UpdatedBy}

	cfg, err := decodeConfig(stored.Raw)
	if err == nil {
		err = domain.Validate(cfg)
	}
	if err != nil {
		s.log.WithContext(ctx).Error("stored lead form config is invalid, serving baseline", "error", err)
		status.Config = s.Baseline()
		status.Source = SourceDefault
		status.PendingMigration = true
		return status, nil
	}

	status.Config = cfg
	status.Source = SourceStored
	status.PendingMigration = !reflect.DeepEqual(reconcile.Reconcile(cfg, s.baseline), cfg)
	return status, nil
}

// Save validates and stores an operator-authored configuration.
func (s *ConfigService) Save(ctx context.Context, cfg domain.FormConfig, updatedBy *uuid.UUID) (ConfigStatus, error) {
	cfg = cfg.Clone()
	cfg.MaxScore = scoring.MaxScore(cfg)

	if err := domain.Validate(cfg); err != nil {
		return ConfigStatus{}, validationError(err)
	}

	stored, err := s.persist(ctx, cfg, updatedBy, "admin")
	if err != nil {
		return ConfigStatus{}, err
	}

	return ConfigStatus{
		Config:           cfg,
		Source:           SourceStored,
		PendingMigration: !reflect.DeepEqual(reconcile.Reconcile(cfg, s.baseline), cfg),
		UpdatedAt:        &stored.UpdatedAt,
		UpdatedBy:        stored.UpdatedBy,
	}, nil
}

// Sync reconciles the stored configuration against the baseline. With
// dryRun the merge result is returned without being written.
func (s *ConfigService) Sync(ctx context.Context, dryRun bool, updatedBy *uuid.UUID) (SyncResult, error) {
	log := s.log.WithContext(ctx)

	var (
		live    domain.FormConfig
		liveRaw []byte
	)
	stored, err := s.store.GetFormConfig(ctx)
	switch {
	case err == nil:
		liveRaw = stored.Raw
		if live, err = decodeConfig(stored.Raw); err != nil {
			log.Warn("stored lead form config is undecodable, syncing from baseline", "error", err)
			live = domain.FormConfig{}
		}
	case apperr.Is(err, apperr.KindNotFound):
	default:
		log.DatabaseError("get_form_config", err)
		return SyncResult{}, apperr.Wrap(apperr.KindInternal, "failed to load lead form config", err)
	}

	merged, report := reconcile.Merge(live, s.baseline)
	for _, warning := range report.Warnings() {
		log.Warn("lead form sync", "warning", warning)
	}

	if err := domain.Validate(merged); err != nil {
		return SyncResult{}, validationError(err)
	}

	result := SyncResult{
		Config:  merged,
		Report:  report,
		Changed: liveRaw == nil || !reflect.DeepEqual(merged, live),
		DryRun:  dryRun,
	}
	if dryRun || !result.Changed {
		return result, nil
	}

	if s.archiver != nil && liveRaw != nil {
		key, err := s.archiver.Archive(ctx, liveRaw, s.now())
		if err != nil {
			return SyncResult{}, apperr.Wrap(apperr.KindUnavailable, "failed to archive current lead form config", err)
		}
		result.ArchiveKey = key
	}

	if _, err := s.persist(ctx, merged, updatedBy, "sync"); err != nil {
		return SyncResult{}, err
	}
	result.Saved = true

	log.Info("lead form config synced",
		"adopted", len(report.Adopted),
		"appended", len(report.Appended),
		"removedStrays", len(report.RemovedStrays),
		"custom", len(report.Custom),
		"archiveKey", result.ArchiveKey,
	)
	return result, nil
}

// Archives lists the newest configuration snapshots.
func (s *ConfigService) Archives(ctx context.Context, limit int) ([]archive.Snapshot, error) {
	if s.archiver == nil {
		return nil, apperr.Unavailable("config archive is not configured")
	}
	snaps, err := s.archiver.List(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to list config archive", err)
	}
	return snaps, nil
}

func (s *ConfigService) persist(ctx context.Context, cfg domain.FormConfig, updatedBy *uuid.UUID, source string) (repository.StoredConfig, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return repository.StoredConfig{}, apperr.Wrap(apperr.KindInternal, "failed to encode lead form config", err)
	}

	stored, err := s.store.SaveFormConfig(ctx, raw, updatedBy)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("save_form_config", err)
		return repository.StoredConfig{}, apperr.Wrap(apperr.KindInternal, "failed to save lead form config", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.WithContext(ctx).Warn("lead form cache invalidation failed", "error", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadFormConfigUpdated{
			BaseEvent:     events.NewBaseEvent(),
			Source:        source,
			UpdatedBy:     updatedBy,
			QuestionCount: len(cfg.Questions),
			MaxScore:      cfg.MaxScore,
		})
	}
	return stored, nil
}

func decodeConfig(raw []byte) (domain.FormConfig, error) {
	var cfg domain.FormConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return domain.FormConfig{}, err
	}
	cfg.MaxScore = scoring.MaxScore(cfg)
	return cfg, nil
}

func validationError(err error) error {
	appErr := apperr.Wrap(apperr.KindValidation, "invalid form configuration", err)
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		appErr = appErr.WithDetails(verr.Problems)
	}
	return appErr
}
