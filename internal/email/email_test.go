package email

import (
	"context"
	"strings"
	"testing"
)

type smtpConfig struct {
	host string
}

func (c smtpConfig) GetSMTPHost() string         { return c.host }
func (c smtpConfig) GetSMTPPort() int            { return 587 }
func (c smtpConfig) GetSMTPUsername() string     { return "" }
func (c smtpConfig) GetSMTPPassword() string     { return "" }
func (c smtpConfig) GetEmailFromName() string    { return "Skale Club" }
func (c smtpConfig) GetEmailFromAddress() string { return "no-reply@skale.club" }
func (c smtpConfig) IsSMTPEnabled() bool         { return c.host != "" }

func TestNewSenderFallsBackToNoop(t *testing.T) {
	sender, err := NewSender(smtpConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(NoopSender); !ok {
		t.Fatalf("expected NoopSender, got %T", sender)
	}
	if err := sender.SendHotLeadEmail(context.Background(), "sales@skale.club", HotLead{}); err != nil {
		t.Fatalf("noop sender failed: %v", err)
	}

	sender, err = NewSender(smtpConfig{host: "smtp.skale.club"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sender.(*SMTPSender); !ok {
		t.Fatalf("expected *SMTPSender, got %T", sender)
	}
}

func TestRenderHotLead(t *testing.T) {
	subject, body, err := renderHotLead(HotLead{
		Name:       "Jane <Doe>",
		Email:      "jane@example.com",
		Phone:      "+16502530000",
		ScoreTotal: 85,
		MaxScore:   100,
		Answers:    []AnswerLine{{Question: "What is your monthly ad budget?", Answer: "More than $1,500"}},
		LeadURL:    "https://admin.skale.club/leads/abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "HOT lead: Jane <Doe> (85/100)" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"jane@example.com", "More than $1,500", "85 / 100", "https://admin.skale.club/leads/abc", "Jane &lt;Doe&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestRenderHotLeadWithoutName(t *testing.T) {
	subject, body, err := renderHotLead(HotLead{ScoreTotal: 70, MaxScore: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "HOT lead: unnamed lead (70/100)" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if strings.Contains(body, "Open lead") {
		t.Fatal("expected no call to action without a lead url")
	}
}
