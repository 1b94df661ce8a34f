package scheduler

import (
	"encoding/json"
	"fmt"

	"skaleclub_backend/internal/events"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const TaskHotLeadNotification = "leadform.hot_lead_notification"

type HotLeadNotificationPayload struct {
	LeadID     string            `json:"leadId"`
	SessionID  string            `json:"sessionId"`
	ScoreTotal int               `json:"scoreTotal"`
	MaxScore   int               `json:"maxScore"`
	Name       string            `json:"name,omitempty"`
	Email      string            `json:"email,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Answers    map[string]string `json:"answers,omitempty"`
}

// HotLeadPayloadFromEvent copies a LeadQualifiedHot event into a task payload.
func HotLeadPayloadFromEvent(e events.LeadQualifiedHot) HotLeadNotificationPayload {
	return HotLeadNotificationPayload{
		LeadID:     e.LeadID.String(),
		SessionID:  e.SessionID,
		ScoreTotal: e.ScoreTotal,
		MaxScore:   e.MaxScore,
		Name:       e.Name,
		Email:      e.Email,
		Phone:      e.Phone,
		Answers:    e.Answers,
	}
}

// Event rebuilds the LeadQualifiedHot event carried by the payload.
func (p HotLeadNotificationPayload) Event() (events.LeadQualifiedHot, error) {
	leadID, err := uuid.Parse(p.LeadID)
	if err != nil {
		return events.LeadQualifiedHot{}, fmt.Errorf("invalid lead id %q: %w", p.LeadID, err)
	}
	return events.LeadQualifiedHot{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		SessionID:  p.SessionID,
		ScoreTotal: p.ScoreTotal,
		MaxScore:   p.MaxScore,
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Answers:    p.Answers,
	}, nil
}

func NewHotLeadNotificationTask(payload HotLeadNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHotLeadNotification, data), nil
}

func ParseHotLeadNotificationPayload(task *asynq.Task) (HotLeadNotificationPayload, error) {
	var payload HotLeadNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HotLeadNotificationPayload{}, err
	}
	return payload, nil
}
