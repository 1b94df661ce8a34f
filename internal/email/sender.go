package email

import (
	"context"

	"skaleclub_backend/platform/config"
)

// AnswerLine is one question and answer rendered into a lead email.
type AnswerLine struct {
	Question string
	Answer   string
}

// HotLead is the content of a HOT lead alert.
type HotLead struct {
	Name       string
	Email      string
	Phone      string
	ScoreTotal int
	MaxScore   int
	Answers    []AnswerLine
	LeadURL    string
}

type Sender interface {
	SendHotLeadEmail(ctx context.Context, toEmail string, lead HotLead) error
}

type NoopSender struct{}

func (NoopSender) SendHotLeadEmail(ctx context.Context, toEmail string, lead HotLead) error {
	return nil
}

// NewSender returns an SMTP sender when SMTP is configured and a no-op
// sender otherwise.
func NewSender(cfg config.SMTPConfig) (Sender, error) {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}, nil
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
