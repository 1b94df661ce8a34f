// Package notification provides event handlers for sending notifications in
// response to domain events. Domain modules publish events and never talk to
// email providers directly.
package notification

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"skaleclub_backend/internal/email"
	"skaleclub_backend/internal/events"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/scheduler"
	"skaleclub_backend/platform/config"
	"skaleclub_backend/platform/logger"

	"github.com/google/uuid"
)

// ClaimReleaser clears a lead's notification claim after a failed delivery.
type ClaimReleaser interface {
	ReleaseHotNotification(ctx context.Context, leadID uuid.UUID) error
}

// ConfigProvider supplies the form configuration used to label answers.
type ConfigProvider interface {
	Effective(ctx context.Context) (domain.FormConfig, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender    email.Sender
	cfg       config.NotificationConfig
	log       *logger.Logger
	scheduler scheduler.HotLeadScheduler
	configs   ConfigProvider
	releaser  ClaimReleaser
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// SetScheduler routes HOT lead alerts through the task queue so failed
// deliveries are retried.
func (m *Module) SetScheduler(s scheduler.HotLeadScheduler) {
	m.scheduler = s
}

// SetConfigProvider enables question titles in lead emails.
func (m *Module) SetConfigProvider(p ConfigProvider) {
	m.configs = p
}

// SetClaimReleaser lets a failed inline delivery hand the alert back to
// the next HOT submission of the lead.
func (m *Module) SetClaimReleaser(r ClaimReleaser) {
	m.releaser = r
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadQualifiedHot{}.EventName(), m)
	bus.Subscribe(events.HotLeadNotificationDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadQualifiedHot:
		return m.handleLeadQualifiedHot(ctx, e)
	case events.HotLeadNotificationDue:
		return m.deliverHotLead(ctx, e.Lead)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadQualifiedHot(ctx context.Context, e events.LeadQualifiedHot) error {
	if m.scheduler == nil {
		return m.deliverInline(ctx, e)
	}

	if err := m.scheduler.ScheduleHotLeadNotification(ctx, scheduler.HotLeadPayloadFromEvent(e)); err != nil {
		m.log.Error("failed to queue hot lead notification, sending inline", "leadId", e.LeadID, "error", err)
		return m.deliverInline(ctx, e)
	}

	m.log.Info("hot lead notification queued", "leadId", e.LeadID, "sessionId", e.SessionID)
	return nil
}

// deliverInline sends the alert without the queue. Inline sends are not
// retried, so a failure releases the lead's claim.
func (m *Module) deliverInline(ctx context.Context, e events.LeadQualifiedHot) error {
	err := m.deliverHotLead(ctx, e)
	if err == nil || m.releaser == nil {
		return err
	}
	if releaseErr := m.releaser.ReleaseHotNotification(ctx, e.LeadID); releaseErr != nil {
		m.log.Error("failed to release hot lead notification claim", "leadId", e.LeadID, "error", releaseErr)
	} else {
		m.log.Warn("hot lead notification claim released after failed delivery", "leadId", e.LeadID)
	}
	return err
}

func (m *Module) deliverHotLead(ctx context.Context, e events.LeadQualifiedHot) error {
	inbox := strings.TrimSpace(m.cfg.GetSalesInboxEmail())
	if inbox == "" {
		m.log.Warn("SALES_INBOX_EMAIL not configured; hot lead email skipped", "leadId", e.LeadID)
		return nil
	}

	lead := email.HotLead{
		Name:       e.Name,
		Email:      e.Email,
		Phone:      e.Phone,
		ScoreTotal: e.ScoreTotal,
		MaxScore:   e.MaxScore,
		Answers:    m.answerLines(ctx, e.Answers),
		LeadURL:    m.leadURL(e.SessionID),
	}

	if err := m.sender.SendHotLeadEmail(ctx, inbox, lead); err != nil {
		m.log.Error("failed to send hot lead email", "leadId", e.LeadID, "error", err)
		return err
	}

	m.log.Info("hot lead email sent", "leadId", e.LeadID, "score", e.ScoreTotal)
	return nil
}

// answerLines labels answers with their question titles in form order.
// Answers the configuration does not know are appended by id.
func (m *Module) answerLines(ctx context.Context, answers map[string]string) []email.AnswerLine {
	if len(answers) == 0 {
		return nil
	}

	var cfg domain.FormConfig
	if m.configs != nil {
		loaded, err := m.configs.Effective(ctx)
		if err != nil {
			m.log.Warn("failed to load form config for lead email", "error", err)
		} else {
			cfg = loaded
		}
	}

	lines := make([]email.AnswerLine, 0, len(answers))
	used := make(map[string]bool, len(answers))
	add := func(id domain.QuestionID, title string) {
		answer, ok := answers[string(id)]
		if !ok || strings.TrimSpace(answer) == "" {
			return
		}
		used[string(id)] = true
		lines = append(lines, email.AnswerLine{Question: title, Answer: optionLabel(cfg, id, answer)})
	}

	for _, q := range cfg.Questions {
		add(q.ID, q.Title)
		if q.ConditionalField != nil {
			add(q.ConditionalField.ID, q.ConditionalField.Title)
		}
	}

	rest := make([]string, 0, len(answers))
	for id, answer := range answers {
		if !used[id] && strings.TrimSpace(answer) != "" {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		lines = append(lines, email.AnswerLine{Question: id, Answer: answers[id]})
	}
	return lines
}

// optionLabel shows the option label for select answers stored by value.
func optionLabel(cfg domain.FormConfig, id domain.QuestionID, answer string) string {
	q, ok := cfg.Question(id)
	if !ok {
		return answer
	}
	if opt, ok := q.MatchOption(answer); ok && opt.Label != "" {
		return opt.Label
	}
	return answer
}

func (m *Module) leadURL(sessionID string) string {
	base := strings.TrimSpace(m.cfg.GetAppBaseURL())
	if base == "" || sessionID == "" {
		return ""
	}
	link, err := url.JoinPath(base, "admin", "leads", sessionID)
	if err != nil {
		return ""
	}
	return link
}
