package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skaleclub_backend/internal/leadform/service"
	"skaleclub_backend/internal/leadform/transport"
	"skaleclub_backend/platform/httpkit"
	"skaleclub_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	defaultArchiveLimit = 20
)

// Handler handles HTTP requests for the lead form.
type Handler struct {
	configs *service.ConfigService
	leads   *service.LeadService
	val     *validator.Validator
}

// New creates a new lead form handler.
func New(configs *service.ConfigService, leads *service.LeadService, val *validator.Validator) *Handler {
	return &Handler{configs: configs, leads: leads, val: val}
}

// GetConfig returns the effective form configuration.
// GET /api/v1/lead-form/config
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.configs.Effective(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FormConfigResponse{FormConfig: cfg})
}

// Score computes a score for answers without storing them.
// POST /api/v1/lead-form/score
func (h *Handler) Score(c *gin.Context) {
	var req transport.ScoreRequest
	if !h.bindJSON(c, &req) {
		return
	}

	answers, rejected := req.Answers.Split()
	preview, err := h.leads.Preview(c.Request.Context(), answers)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewScoreResponse(preview, rejected))
}

// SubmitProgress records a (partial) form submission.
// POST /api/v1/lead-form/progress
func (h *Handler) SubmitProgress(c *gin.Context) {
	var req transport.ProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	answers, rejected := req.Answers.Split()
	result, err := h.leads.SubmitProgress(c.Request.Context(), service.ProgressInput{
		SessionID: req.SessionID,
		Answers:   answers,
		Completed: req.Completed,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, transport.NewProgressResponse(result, rejected))
}

// GetAdminConfig returns the configuration with its resolution status.
// GET /api/v1/admin/lead-form/config
func (h *Handler) GetAdminConfig(c *gin.Context) {
	status, err := h.configs.Status(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewAdminFormConfigResponse(status))
}

// SaveConfig validates and stores an authored configuration.
// PUT /api/v1/admin/lead-form/config
func (h *Handler) SaveConfig(c *gin.Context) {
	var req transport.SaveFormConfigRequest
	if !h.bindJSON(c, &req) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID := identity.UserID()

	status, err := h.configs.Save(c.Request.Context(), req.ToDomain(), &userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewAdminFormConfigResponse(status))
}

// SyncConfig reconciles the stored configuration with the baseline.
// POST /api/v1/admin/lead-form/config/sync?dryRun=true
func (h *Handler) SyncConfig(c *gin.Context) {
	var req transport.SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	userID := identity.UserID()

	result, err := h.configs.Sync(c.Request.Context(), req.DryRun, &userID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewSyncResponse(result))
}

// ListArchives lists configuration snapshots taken before syncs.
// GET /api/v1/admin/lead-form/config/archives
func (h *Handler) ListArchives(c *gin.Context) {
	var req transport.ListArchivesRequest
	if !h.bindQuery(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultArchiveLimit
	}

	snaps, err := h.configs.Archives(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewArchiveListResponse(snaps))
}

// ListLeads lists stored leads.
// GET /api/v1/admin/lead-form/leads
func (h *Handler) ListLeads(c *gin.Context) {
	var req transport.ListLeadsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	page, err := h.leads.ListLeads(c.Request.Context(), service.ListLeadsInput{
		Classification: req.Classification,
		Completed:      req.Completed,
		Search:         req.Search,
		Page:           req.Page,
		PageSize:       req.PageSize,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewLeadListResponse(page))
}

// GetLead returns one lead by session id.
// GET /api/v1/admin/lead-form/leads/:sessionId
func (h *Handler) GetLead(c *gin.Context) {
	lead, err := h.leads.GetLead(c.Request.Context(), c.Param("sessionId"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewLeadResponse(lead))
}

// UpdateLeadStatus moves a lead through the sales pipeline.
// PATCH /api/v1/admin/lead-form/leads/:sessionId/status
func (h *Handler) UpdateLeadStatus(c *gin.Context) {
	var req transport.UpdateLeadStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lead, err := h.leads.UpdateStatus(c.Request.Context(), c.Param("sessionId"), req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewLeadResponse(lead))
}

func (h *Handler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	return h.validate(c, req)
}

func (h *Handler) validate(c *gin.Context, req any) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return false
	}
	return true
}
