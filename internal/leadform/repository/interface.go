package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FormConfigKey is the lead_form_settings key holding the form configuration.
const FormConfigKey = "lead_form_config"

// Lead statuses. Converted and lost leads no longer accept form progress.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusConverted = "converted"
	StatusLost      = "lost"
)

// ValidStatus reports whether status is one of the lead statuses.
func ValidStatus(status string) bool {
	switch status {
	case StatusNew, StatusContacted, StatusConverted, StatusLost:
		return true
	}
	return false
}

// StoredConfig is the raw configuration document as persisted.
type StoredConfig struct {
	Raw       []byte
	UpdatedBy *uuid.UUID
	UpdatedAt time.Time
}

// Lead is a persisted form submission, one row per session.
type Lead struct {
	ID               uuid.UUID
	SessionID        string
	Answers          map[string]string
	Name             *string
	Email            *string
	Phone            *string
	ScoreTotal       int
	ScoreBreakdown   map[string]int
	Classification   string
	Status           string
	FormCompleted    bool
	NotificationSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// LeadUpsert carries the values written on every progress submission.
type LeadUpsert struct {
	ID             uuid.UUID
	SessionID      string
	Answers        map[string]string
	Name           *string
	Email          *string
	Phone          *string
	ScoreTotal     int
	ScoreBreakdown map[string]int
	Classification string
	Completed      bool
}

// UpsertResult reports the stored row and whether it was inserted.
type UpsertResult struct {
	Lead    Lead
	Created bool
}

// ListParams filters the admin lead listing.
type ListParams struct {
	Classification *string
	Completed      *bool
	Search         string
	Limit          int
	Offset         int
}

// ConfigStore persists the lead form configuration document.
type ConfigStore interface {
	GetFormConfig(ctx context.Context) (StoredConfig, error)
	SaveFormConfig(ctx context.Context, raw []byte, updatedBy *uuid.UUID) (StoredConfig, error)
}

// LeadStore persists lead rows.
type LeadStore interface {
	GetLeadBySession(ctx context.Context, sessionID string) (Lead, error)
	UpsertLead(ctx context.Context, params LeadUpsert) (UpsertResult, error)
	ClaimHotNotification(ctx context.Context, leadID uuid.UUID) (bool, error)
	ReleaseHotNotification(ctx context.Context, leadID uuid.UUID) error
	ListLeads(ctx context.Context, params ListParams) ([]Lead, int, error)
	UpdateLeadStatus(ctx context.Context, sessionID, status string) (Lead, error)
}

// Repository is the full persistence surface of the lead form module.
type Repository interface {
	ConfigStore
	LeadStore
}
