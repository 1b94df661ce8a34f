package transport

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"skaleclub_backend/internal/leadform/archive"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/internal/leadform/service"
)

// Form configuration

type OptionRequest struct {
	Value  string `json:"value" validate:"required,max=200"`
	Label  string `json:"label" validate:"required,max=200"`
	Points int    `json:"points" validate:"min=0,max=1000"`
}

type ConditionalFieldRequest struct {
	ShowWhen    string `json:"showWhen" validate:"required,max=200"`
	ID          string `json:"id" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=300"`
	Placeholder string `json:"placeholder,omitempty" validate:"max=200"`
}

type QuestionRequest struct {
	ID               string                   `json:"id" validate:"required,max=64"`
	Order            int                      `json:"order" validate:"min=0"`
	Title            string                   `json:"title" validate:"required,max=300"`
	Type             string                   `json:"type" validate:"required,oneof=text email tel select textarea number"`
	Required         bool                     `json:"required"`
	Placeholder      string                   `json:"placeholder,omitempty" validate:"max=200"`
	Options          []OptionRequest          `json:"options,omitempty" validate:"omitempty,max=50,dive"`
	ConditionalField *ConditionalFieldRequest `json:"conditionalField,omitempty"`
}

type ThresholdsRequest struct {
	Hot  int `json:"hot" validate:"min=0"`
	Warm int `json:"warm" validate:"min=0"`
	Cold int `json:"cold" validate:"min=0"`
}

// SaveFormConfigRequest is an operator-authored configuration. maxScore is
// not accepted; it is always derived from the options.
type SaveFormConfigRequest struct {
	Questions  []QuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
	Thresholds ThresholdsRequest `json:"thresholds"`
}

// ToDomain converts the request into a configuration for validation.
func (r SaveFormConfigRequest) ToDomain() domain.FormConfig {
	cfg := domain.FormConfig{
		Questions: make([]domain.Question, 0, len(r.Questions)),
		Thresholds: domain.Thresholds{
			Hot:  r.Thresholds.Hot,
			Warm: r.Thresholds.Warm,
			Cold: r.Thresholds.Cold,
		},
	}
	for _, q := range r.Questions {
		question := domain.Question{
			ID:          domain.QuestionID(q.ID),
			Order:       q.Order,
			Title:       q.Title,
			Type:        domain.QuestionType(q.Type),
			Required:    q.Required,
			Placeholder: q.Placeholder,
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, domain.Option{Value: opt.Value, Label: opt.Label, Points: opt.Points})
		}
		if cf := q.ConditionalField; cf != nil {
			question.ConditionalField = &domain.ConditionalField{
				ShowWhen:    cf.ShowWhen,
				ID:          domain.QuestionID(cf.ID),
				Title:       cf.Title,
				Placeholder: cf.Placeholder,
			}
		}
		cfg.Questions = append(cfg.Questions, question)
	}
	return cfg
}

type FormConfigResponse struct {
	domain.FormConfig
}

type AdminFormConfigResponse struct {
	Config           domain.FormConfig `json:"config"`
	Source           string            `json:"source"`
	PendingMigration bool              `json:"pendingMigration"`
	UpdatedAt        *time.Time        `json:"updatedAt,omitempty"`
	UpdatedBy        *uuid.UUID        `json:"updatedBy,omitempty"`
}

func NewAdminFormConfigResponse(status service.ConfigStatus) AdminFormConfigResponse {
	return AdminFormConfigResponse{
		Config:           status.Config,
		Source:           string(status.Source),
		PendingMigration: status.PendingMigration,
		UpdatedAt:        status.UpdatedAt,
		UpdatedBy:        status.UpdatedBy,
	}
}

type SyncRequest struct {
	DryRun bool `form:"dryRun"`
}

type TypeConflictResponse struct {
	ID           string `json:"id"`
	LiveType     string `json:"liveType"`
	BaselineType string `json:"baselineType"`
}

type SyncReportResponse struct {
	Adopted                []string               `json:"adopted"`
	Appended               []string               `json:"appended"`
	RemovedStrays          []string               `json:"removedStrays"`
	Custom                 []string               `json:"custom"`
	DroppedDuplicates      []string               `json:"droppedDuplicates"`
	TypeConflicts          []TypeConflictResponse `json:"typeConflicts"`
	ThresholdsFromBaseline bool                   `json:"thresholdsFromBaseline"`
	Warnings               []string               `json:"warnings"`
}

type SyncResponse struct {
	Config     domain.FormConfig  `json:"config"`
	Report     SyncReportResponse `json:"report"`
	Changed    bool               `json:"changed"`
	DryRun     bool               `json:"dryRun"`
	Saved      bool               `json:"saved"`
	ArchiveKey string             `json:"archiveKey,omitempty"`
}

func NewSyncResponse(result service.SyncResult) SyncResponse {
	r := result.Report
	report := SyncReportResponse{
		Adopted:                idStrings(r.Adopted),
		Appended:               idStrings(r.Appended),
		RemovedStrays:          idStrings(r.RemovedStrays),
		Custom:                 idStrings(r.Custom),
		DroppedDuplicates:      idStrings(r.DroppedDuplicates),
		TypeConflicts:          make([]TypeConflictResponse, 0, len(r.TypeConflicts)),
		ThresholdsFromBaseline: r.ThresholdsFromBaseline,
		Warnings:               r.Warnings(),
	}
	for _, c := range r.TypeConflicts {
		report.TypeConflicts = append(report.TypeConflicts, TypeConflictResponse{
			ID:           string(c.ID),
			LiveType:     string(c.LiveType),
			BaselineType: string(c.BaselineType),
		})
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}

	return SyncResponse{
		Config:     result.Config,
		Report:     report,
		Changed:    result.Changed,
		DryRun:     result.DryRun,
		Saved:      result.Saved,
		ArchiveKey: result.ArchiveKey,
	}
}

type ListArchivesRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

type ArchiveResponse struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

func NewArchiveListResponse(snaps []archive.Snapshot) []ArchiveResponse {
	out := make([]ArchiveResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, ArchiveResponse{Key: s.Key, Size: s.Size, LastModified: s.LastModified})
	}
	return out
}

// Scoring and submissions

// RawAnswers accepts any JSON value per answer. Only strings are answers;
// anything else is reported back as ignored and scores 0.
type RawAnswers map[string]any

// Split returns the string answers and the sorted ids of the other values.
func (a RawAnswers) Split() (map[string]string, []string) {
	answers := make(map[string]string, len(a))
	var rejected []string
	for id, value := range a {
		if str, ok := value.(string); ok {
			answers[id] = str
			continue
		}
		rejected = append(rejected, id)
	}
	sort.Strings(rejected)
	return answers, rejected
}

type ScoreRequest struct {
	Answers RawAnswers `json:"answers" validate:"required,max=100"`
}

type ScoreResponse struct {
	ScoreTotal     int            `json:"scoreTotal"`
	MaxScore       int            `json:"maxScore"`
	Classification string         `json:"classification"`
	Breakdown      map[string]int `json:"breakdown"`
	IgnoredFields  []string       `json:"ignoredFields,omitempty"`
}

func NewScoreResponse(p service.Preview, rejected []string) ScoreResponse {
	return ScoreResponse{
		ScoreTotal:     p.Score.Total,
		MaxScore:       p.MaxScore,
		Classification: p.Classification.String(),
		Breakdown:      p.Score.Breakdown,
		IgnoredFields:  mergeIgnored(p.IgnoredFields, rejected),
	}
}

type ProgressRequest struct {
	SessionID string     `json:"sessionId" validate:"required,max=128"`
	Answers   RawAnswers `json:"answers" validate:"max=100"`
	Completed bool       `json:"completed"`
}

type ProgressResponse struct {
	LeadID         uuid.UUID      `json:"leadId"`
	SessionID      string         `json:"sessionId"`
	ScoreTotal     int            `json:"scoreTotal"`
	MaxScore       int            `json:"maxScore"`
	Classification string         `json:"classification"`
	Breakdown      map[string]int `json:"breakdown"`
	Completed      bool           `json:"completed"`
	Created        bool           `json:"created"`
	IgnoredFields  []string       `json:"ignoredFields,omitempty"`
}

func NewProgressResponse(r service.ProgressResult, rejected []string) ProgressResponse {
	return ProgressResponse{
		LeadID:         r.Lead.ID,
		SessionID:      r.Lead.SessionID,
		ScoreTotal:     r.Score.Total,
		MaxScore:       r.MaxScore,
		Classification: r.Classification.String(),
		Breakdown:      r.Score.Breakdown,
		Completed:      r.Lead.FormCompleted,
		Created:        r.Created,
		IgnoredFields:  mergeIgnored(r.IgnoredFields, rejected),
	}
}

func mergeIgnored(ignored, rejected []string) []string {
	if len(rejected) == 0 {
		return ignored
	}
	out := append(append([]string(nil), ignored...), rejected...)
	sort.Strings(out)
	return out
}

// Leads

type ListLeadsRequest struct {
	Classification string `form:"classification" validate:"omitempty,oneof=HOT WARM COLD DISQUALIFIED hot warm cold disqualified"`
	Completed      *bool  `form:"completed"`
	Search         string `form:"search" validate:"max=100"`
	Page           int    `form:"page" validate:"omitempty,min=1"`
	PageSize       int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted converted lost"`
}

type LeadResponse struct {
	ID               uuid.UUID         `json:"id"`
	SessionID        string            `json:"sessionId"`
	Answers          map[string]string `json:"answers"`
	Name             *string           `json:"name,omitempty"`
	Email            *string           `json:"email,omitempty"`
	Phone            *string           `json:"phone,omitempty"`
	ScoreTotal       int               `json:"scoreTotal"`
	ScoreBreakdown   map[string]int    `json:"scoreBreakdown"`
	Classification   string            `json:"classification"`
	Status           string            `json:"status"`
	FormCompleted    bool              `json:"formCompleted"`
	NotificationSent bool              `json:"notificationSent"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

func NewLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:               l.ID,
		SessionID:        l.SessionID,
		Answers:          l.Answers,
		Name:             l.Name,
		Email:            l.Email,
		Phone:            l.Phone,
		ScoreTotal:       l.ScoreTotal,
		ScoreBreakdown:   l.ScoreBreakdown,
		Classification:   l.Classification,
		Status:           l.Status,
		FormCompleted:    l.FormCompleted,
		NotificationSent: l.NotificationSent,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
		CompletedAt:      l.CompletedAt,
	}
}

func NewLeadListResponse(page service.LeadPage) LeadListResponse {
	items := make([]LeadResponse, 0, len(page.Items))
	for _, l := range page.Items {
		items = append(items, NewLeadResponse(l))
	}
	return LeadListResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

func idStrings(ids []domain.QuestionID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
