// Package leadform provides the lead qualification form module: the
// configurable questionnaire, scoring of submissions and the admin surface.
package leadform

import (
	"context"

	"skaleclub_backend/internal/events"
	apphttp "skaleclub_backend/internal/http"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/handler"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/internal/leadform/service"
	"skaleclub_backend/platform/config"
	"skaleclub_backend/platform/logger"
	"skaleclub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the lead form bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	configs *service.ConfigService
	leads   *service.LeadService
	log     *logger.Logger
}

// NewModule creates and initializes the lead form module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, cfg config.LeadFormConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	configs := service.NewConfigService(repo, domain.DefaultConfig(), bus, log)
	leads := service.NewLeadService(repo, configs, bus, log, cfg.GetPhoneDefaultRegion())

	return &Module{
		handler: handler.New(configs, leads, val),
		configs: configs,
		leads:   leads,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leadform"
}

// ConfigService returns the configuration service for the sync CLI.
func (m *Module) ConfigService() *service.ConfigService {
	return m.configs
}

// LeadService returns the lead service.
func (m *Module) LeadService() *service.LeadService {
	return m.leads
}

// SetCache enables the shared cache of the effective configuration.
func (m *Module) SetCache(cache service.ConfigCache) {
	m.configs.SetCache(cache)
}

// SetArchiver enables configuration snapshots before a sync.
func (m *Module) SetArchiver(archiver service.ConfigArchiver) {
	m.configs.SetArchiver(archiver)
}

// RegisterRoutes mounts lead form routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/lead-form")
	public.GET("/config", m.handler.GetConfig)
	public.POST("/score", m.handler.Score)
	if ctx.SubmitRateLimiter != nil {
		public.POST("/progress", ctx.SubmitRateLimiter.RateLimit(), m.handler.SubmitProgress)
	} else {
		public.POST("/progress", m.handler.SubmitProgress)
	}

	admin := ctx.Admin.Group("/lead-form")
	admin.GET("/config", m.handler.GetAdminConfig)
	admin.PUT("/config", m.handler.SaveConfig)
	admin.POST("/config/sync", m.handler.SyncConfig)
	admin.GET("/config/archives", m.handler.ListArchives)
	admin.GET("/leads", m.handler.ListLeads)
	admin.GET("/leads/:sessionId", m.handler.GetLead)
	admin.PATCH("/leads/:sessionId/status", m.handler.UpdateLeadStatus)
}

// RegisterHandlers subscribes the module's activity log to its own events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadProgressRecorded{}.EventName(), m)
	bus.Subscribe(events.LeadFormConfigUpdated{}.EventName(), m)
}

// Handle writes lead and configuration activity to the structured log.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	log := m.log.WithContext(ctx)
	switch e := event.(type) {
	case events.LeadProgressRecorded:
		log.LeadScored(e.SessionID, e.ScoreTotal, e.MaxScore, e.Classification)
	case events.LeadFormConfigUpdated:
		updatedBy := ""
		if e.UpdatedBy != nil {
			updatedBy = e.UpdatedBy.String()
		}
		log.LeadFormConfigUpdated(e.Source, updatedBy, e.QuestionCount, e.MaxScore)
	}
	return nil
}
