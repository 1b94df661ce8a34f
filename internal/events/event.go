// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"skaleclub_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Form Domain Events
// =============================================================================

// LeadProgressRecorded is published after every persisted form submission.
type LeadProgressRecorded struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	SessionID      string    `json:"sessionId"`
	ScoreTotal     int       `json:"scoreTotal"`
	MaxScore       int       `json:"maxScore"`
	Classification string    `json:"classification"`
	Completed      bool      `json:"completed"`
	Created        bool      `json:"created"`
}

func (e LeadProgressRecorded) EventName() string { return "leadform.progress.recorded" }

// LeadQualifiedHot is published once per session, the first time a lead
// classifies as HOT.
type LeadQualifiedHot struct {
	BaseEvent
	LeadID     uuid.UUID         `json:"leadId"`
	SessionID  string            `json:"sessionId"`
	ScoreTotal int               `json:"scoreTotal"`
	MaxScore   int               `json:"maxScore"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Answers    map[string]string `json:"answers"`
}

func (e LeadQualifiedHot) EventName() string { return "leadform.lead.qualified_hot" }

// HotLeadNotificationDue is published by the scheduler worker when a queued
// HOT lead notification is ready for delivery.
type HotLeadNotificationDue struct {
	BaseEvent
	Lead LeadQualifiedHot `json:"lead"`
}

func (e HotLeadNotificationDue) EventName() string { return "leadform.notification.hot_due" }

// LeadFormConfigUpdated is published after the stored configuration changes.
type LeadFormConfigUpdated struct {
	BaseEvent
	Source        string     `json:"source"` // "admin" or "sync"
	UpdatedBy     *uuid.UUID `json:"updatedBy,omitempty"`
	QuestionCount int        `json:"questionCount"`
	MaxScore      int        `json:"maxScore"`
}

func (e LeadFormConfigUpdated) EventName() string { return "leadform.config.updated" }
