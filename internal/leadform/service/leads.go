package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"skaleclub_backend/internal/events"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/internal/leadform/scoring"
	"skaleclub_backend/platform/apperr"
	"skaleclub_backend/platform/logger"
	"skaleclub_backend/platform/phone"
	"skaleclub_backend/platform/sanitize"
)

const (
	maxTextLength      = 500
	maxTextareaLength  = 4000
	maxSessionIDLength = 128
	defaultPageSize    = 25
	maxPageSize        = 100
)

// ConfigProvider returns the configuration submissions are scored against.
type ConfigProvider interface {
	Effective(ctx context.Context) (domain.FormConfig, error)
}

// ProgressInput is one submission of (possibly partial) form answers.
type ProgressInput struct {
	SessionID string
	Answers   map[string]string
	Completed bool
}

// ProgressResult is the scored and persisted state of a session.
type ProgressResult struct {
	Lead           repository.Lead
	Score          scoring.Result
	MaxScore       int
	Classification domain.Tier
	Created        bool
	HotNotified    bool
	IgnoredFields  []string
}

// Preview is a score computed without persisting anything.
type Preview struct {
	Score          scoring.Result
	MaxScore       int
	Classification domain.Tier
	IgnoredFields  []string
}

// ListLeadsInput filters and paginates the admin lead listing.
type ListLeadsInput struct {
	Classification string
	Completed      *bool
	Search         string
	Page           int
	PageSize       int
}

// LeadPage is one page of leads.
type LeadPage struct {
	Items      []repository.Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// LeadService scores and stores form progress and serves the admin views.
type LeadService struct {
	leads       repository.LeadStore
	configs     ConfigProvider
	bus         events.Bus
	log         *logger.Logger
	phoneRegion string
}

// NewLeadService creates a lead service. phoneRegion is the region used to
// interpret phone answers entered without a country code.
func NewLeadService(leads repository.LeadStore, configs ConfigProvider, bus events.Bus, log *logger.Logger, phoneRegion string) *LeadService {
	if phoneRegion == "" {
		phoneRegion = phone.DefaultRegion
	}
	return &LeadService{
		leads:       leads,
		configs:     configs,
		bus:         bus,
		log:         log,
		phoneRegion: phoneRegion,
	}
}

// SubmitProgress merges the submitted answers into the session's stored
// answers, rescores the whole set and upserts the lead. The first time a
// session classifies as HOT a LeadQualifiedHot event is published.
func (s *LeadService) SubmitProgress(ctx context.Context, in ProgressInput) (ProgressResult, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return ProgressResult{}, apperr.BadRequest("sessionId is required")
	}
	if len(sessionID) > maxSessionIDLength {
		return ProgressResult{}, apperr.BadRequest("sessionId is too long")
	}
	ctx = context.WithValue(ctx, logger.SessionIDKey, sessionID)

	cfg, err := s.configs.Effective(ctx)
	if err != nil {
		return ProgressResult{}, err
	}

	submitted, ignored := s.cleanAnswers(cfg, in.Answers)

	var stored domain.Answers
	existing, err := s.leads.GetLeadBySession(ctx, sessionID)
	switch {
	case err == nil:
		if closedStatus(existing.Status) {
			return ProgressResult{}, apperr.Conflict("lead is closed and no longer accepts answers")
		}
		stored, _ = domain.NewAnswers(existing.Answers)
	case apperr.Is(err, apperr.KindNotFound):
	default:
		return ProgressResult{}, s.storeError(ctx, "get_lead_by_session", err)
	}

	merged := stored.Merge(submitted)
	result := scoring.Score(merged, cfg)
	tier := scoring.Classify(result.Total, cfg.Thresholds)
	name, email, tel := contactFields(cfg, merged)

	upserted, err := s.leads.UpsertLead(ctx, repository.LeadUpsert{
		ID:             uuid.New(),
		SessionID:      sessionID,
		Answers:        submitted.Raw(),
		Name:           name,
		Email:          email,
		Phone:          tel,
		ScoreTotal:     result.Total,
		ScoreBreakdown: result.Breakdown,
		Classification: tier.String(),
		Completed:      in.Completed,
	})
	if err != nil {
		return ProgressResult{}, s.storeError(ctx, "upsert_lead", err)
	}
	lead := upserted.Lead

	out := ProgressResult{
		Lead:           lead,
		Score:          result,
		MaxScore:       cfg.MaxScore,
		Classification: tier,
		Created:        upserted.Created,
		IgnoredFields:  ignored,
	}

	s.publish(ctx, events.LeadProgressRecorded{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		SessionID:      sessionID,
		ScoreTotal:     result.Total,
		MaxScore:       cfg.MaxScore,
		Classification: tier.String(),
		Completed:      lead.FormCompleted,
		Created:        upserted.Created,
	})

	if tier == domain.TierHot && !lead.NotificationSent {
		claimed, err := s.leads.ClaimHotNotification(ctx, lead.ID)
		if err != nil {
			_ = s.storeError(ctx, "claim_hot_notification", err)
			return out, nil
		}
		if claimed {
			out.HotNotified = true
			s.publish(ctx, events.LeadQualifiedHot{
				BaseEvent:  events.NewBaseEvent(),
				LeadID:     lead.ID,
				SessionID:  sessionID,
				ScoreTotal: result.Total,
				MaxScore:   cfg.MaxScore,
				Name:       deref(name),
				Email:      deref(email),
				Phone:      deref(tel),
				Answers:    merged.Raw(),
			})
		}
	}

	return out, nil
}

// Preview scores answers against the effective configuration without
// storing them.
func (s *LeadService) Preview(ctx context.Context, raw map[string]string) (Preview, error) {
	cfg, err := s.configs.Effective(ctx)
	if err != nil {
		return Preview{}, err
	}

	answers, ignored := s.cleanAnswers(cfg, raw)
	result := scoring.Score(answers, cfg)
	return Preview{
		Score:          result,
		MaxScore:       cfg.MaxScore,
		Classification: scoring.Classify(result.Total, cfg.Thresholds),
		IgnoredFields:  ignored,
	}, nil
}

// GetLead returns the lead stored for a session.
func (s *LeadService) GetLead(ctx context.Context, sessionID string) (repository.Lead, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return repository.Lead{}, apperr.BadRequest("sessionId is required")
	}
	return s.leads.GetLeadBySession(ctx, sessionID)
}

// ListLeads returns a filtered page of leads, newest first.
func (s *LeadService) ListLeads(ctx context.Context, in ListLeadsInput) (LeadPage, error) {
	params := repository.ListParams{
		Completed: in.Completed,
		Search:    strings.TrimSpace(in.Search),
	}
	if in.Classification != "" {
		tier, ok := domain.ParseTier(strings.ToUpper(strings.TrimSpace(in.Classification)))
		if !ok {
			return LeadPage{}, apperr.BadRequest("unknown classification")
		}
		value := tier.String()
		params.Classification = &value
	}

	page := in.Page
	if page < 1 {
		page = 1
	}
	pageSize := in.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize

	items, total, err := s.leads.ListLeads(ctx, params)
	if err != nil {
		return LeadPage{}, s.storeError(ctx, "list_leads", err)
	}

	return LeadPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// UpdateStatus moves a lead through the sales pipeline.
func (s *LeadService) UpdateStatus(ctx context.Context, sessionID, status string) (repository.Lead, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !repository.ValidStatus(status) {
		return repository.Lead{}, apperr.BadRequest("unknown lead status")
	}
	lead, err := s.leads.UpdateLeadStatus(ctx, strings.TrimSpace(sessionID), status)
	if err != nil {
		return repository.Lead{}, s.storeError(ctx, "update_lead_status", err)
	}
	s.log.WithContext(ctx).Info("lead status updated", "sessionId", lead.SessionID, "status", status)
	return lead, nil
}

// ReleaseHotNotification clears the notification claim of a lead whose HOT
// alert could not be delivered.
func (s *LeadService) ReleaseHotNotification(ctx context.Context, leadID uuid.UUID) error {
	if err := s.leads.ReleaseHotNotification(ctx, leadID); err != nil {
		return s.storeError(ctx, "release_hot_notification", err)
	}
	return nil
}

// storeError logs repository failures that carry no domain kind and
// returns err unchanged.
func (s *LeadService) storeError(ctx context.Context, operation string, err error) error {
	if apperr.GetKind(err) == apperr.KindUnknown {
		s.log.WithContext(ctx).DatabaseError(operation, err)
	}
	return err
}

// cleanAnswers keeps answers for ids the configuration knows about and
// normalizes each one by its question type. Everything else is returned as
// ignored, sorted.
func (s *LeadService) cleanAnswers(cfg domain.FormConfig, raw map[string]string) (domain.Answers, []string) {
	answers, ignored := domain.NewAnswers(raw)
	types := cfg.AnswerTypes()

	out := make(domain.Answers, len(answers))
	var unknown []string
	for id, value := range answers {
		typ, ok := types[id]
		if !ok {
			unknown = append(unknown, id.String())
			continue
		}
		out[id] = s.normalize(cfg, id, typ, value)
	}
	if len(unknown) > 0 {
		ignored = append(ignored, unknown...)
		sort.Strings(ignored)
	}
	return out, ignored
}

func (s *LeadService) normalize(cfg domain.FormConfig, id domain.QuestionID, typ domain.QuestionType, value string) string {
	switch typ {
	case domain.TypeSelect:
		// Option values are matched verbatim, so only sanitize free text.
		trimmed := strings.TrimSpace(value)
		if q, ok := cfg.Question(id); ok {
			if _, matched := q.MatchOption(trimmed); matched {
				return trimmed
			}
		}
		return sanitize.Truncate(sanitize.Text(value), maxTextLength)
	case domain.TypeTextarea:
		return sanitize.Truncate(sanitize.Multiline(value), maxTextareaLength)
	case domain.TypeEmail:
		return strings.ToLower(sanitize.Truncate(sanitize.Text(value), maxTextLength))
	case domain.TypeTel:
		return phone.NormalizeE164In(sanitize.Truncate(sanitize.Text(value), maxTextLength), s.phoneRegion)
	default:
		return sanitize.Truncate(sanitize.Text(value), maxTextLength)
	}
}

func (s *LeadService) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

// contactFields picks the name, email and phone answers. The name is the
// "nome" answer when the form has one, otherwise the first text question.
func contactFields(cfg domain.FormConfig, answers domain.Answers) (name, email, tel *string) {
	var nameID domain.QuestionID
	if _, ok := cfg.Question("nome"); ok {
		nameID = "nome"
	}
	for _, q := range cfg.Questions {
		switch q.Type {
		case domain.TypeText:
			if nameID == "" {
				nameID = q.ID
			}
		case domain.TypeEmail:
			if email == nil {
				email = nonEmpty(answers[q.ID])
			}
		case domain.TypeTel:
			if tel == nil {
				tel = nonEmpty(answers[q.ID])
			}
		}
	}
	if nameID != "" {
		name = nonEmpty(answers[nameID])
	}
	return name, email, tel
}

func closedStatus(status string) bool {
	return status == repository.StatusConverted || status == repository.StatusLost
}

func nonEmpty(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
