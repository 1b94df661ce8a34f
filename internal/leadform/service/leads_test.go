package service

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"skaleclub_backend/internal/events"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/platform/apperr"
	"skaleclub_backend/platform/logger"
)

func newLeadService(store *fakeLeadStore, bus events.Bus) *LeadService {
	return NewLeadService(store, staticConfig{cfg: domain.DefaultConfig()}, bus, logger.Discard(), "US")
}

func hotAnswers() map[string]string {
	return map[string]string{
		"localizacao":          "United States",
		"cidadeEstado":         "Austin, TX",
		"tipoNegocio":          "Cleaning Services",
		"tempoNegocio":         "More than 3 years",
		"experienciaMarketing": "Yes, with an agency",
		"orcamentoAnuncios":    "gt1500",
	}
}

func TestSubmitProgressMergesAndRescores(t *testing.T) {
	store := newFakeLeadStore()
	svc := newLeadService(store, nil)
	ctx := context.Background()

	first, err := svc.SubmitProgress(ctx, ProgressInput{
		SessionID: "s-1",
		Answers:   map[string]string{"nome": "Jane Doe", "tipoNegocio": "Cleaning Services"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Created || first.Score.Total != 10 {
		t.Fatalf("expected created lead scoring 10, got created=%v total=%d", first.Created, first.Score.Total)
	}

	second, err := svc.SubmitProgress(ctx, ProgressInput{
		SessionID: "s-1",
		Answers:   map[string]string{"tempoNegocio": "1 to 3 years"},
		Completed: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created {
		t.Fatal("second submission should update the existing lead")
	}
	if second.Score.Total != 20 {
		t.Fatalf("expected stored answers to count towards the score, got %d", second.Score.Total)
	}
	if second.Lead.Name == nil || *second.Lead.Name != "Jane Doe" {
		t.Fatalf("expected name to survive partial update, got %v", second.Lead.Name)
	}
	if !second.Lead.FormCompleted {
		t.Fatal("expected lead to be marked completed")
	}
	if second.Classification != domain.TierDisqualified {
		t.Fatalf("expected DISQUALIFIED, got %s", second.Classification)
	}
}

func TestSubmitProgressNotifiesHotOnce(t *testing.T) {
	store := newFakeLeadStore()
	bus := &recordingBus{}
	svc := newLeadService(store, bus)
	ctx := context.Background()

	result, err := svc.SubmitProgress(ctx, ProgressInput{SessionID: "hot", Answers: hotAnswers()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score.Total != 70 || result.Classification != domain.TierHot {
		t.Fatalf("expected HOT at 70, got %s at %d", result.Classification, result.Score.Total)
	}
	if !result.HotNotified {
		t.Fatal("expected first HOT submission to notify")
	}

	again, err := svc.SubmitProgress(ctx, ProgressInput{
		SessionID: "hot",
		Answers:   map[string]string{"disponibilidade": "Right away"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.HotNotified {
		t.Fatal("HOT notification must only fire once per session")
	}

	hot := bus.named(events.LeadQualifiedHot{}.EventName())
	if len(hot) != 1 {
		t.Fatalf("expected one hot event, got %d", len(hot))
	}
	evt := hot[0].(events.LeadQualifiedHot)
	if evt.SessionID != "hot" || evt.MaxScore != 100 || evt.Answers["cidadeEstado"] != "Austin, TX" {
		t.Fatalf("unexpected hot event: %+v", evt)
	}
	if got := len(bus.named(events.LeadProgressRecorded{}.EventName())); got != 2 {
		t.Fatalf("expected a progress event per submission, got %d", got)
	}
	if store.claims != 1 {
		t.Fatalf("expected one claim, got %d", store.claims)
	}
}

func TestSubmitProgressConditionalGate(t *testing.T) {
	svc := newLeadService(newFakeLeadStore(), nil)
	answers := hotAnswers()
	delete(answers, "cidadeEstado")

	result, err := svc.SubmitProgress(context.Background(), ProgressInput{SessionID: "gate", Answers: answers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Score.Breakdown["scoreLocalizacao"] != 0 {
		t.Fatalf("expected location to score 0 without city, got %d", result.Score.Breakdown["scoreLocalizacao"])
	}
	if result.Classification != domain.TierWarm {
		t.Fatalf("expected WARM at 60, got %s at %d", result.Classification, result.Score.Total)
	}
}

func TestSubmitProgressNormalizesAndIgnoresUnknownFields(t *testing.T) {
	store := newFakeLeadStore()
	svc := newLeadService(store, nil)

	result, err := svc.SubmitProgress(context.Background(), ProgressInput{
		SessionID: "  s-2  ",
		Answers: map[string]string{
			"email":     "  Jane@Example.COM ",
			"telefone":  "(650) 253-0000",
			"nome":      "<b>Jane</b>   Doe",
			"unknownId": "x",
			"bad-key":   "y",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"bad-key", "unknownId"}; !reflect.DeepEqual(result.IgnoredFields, want) {
		t.Fatalf("expected ignored %v, got %v", want, result.IgnoredFields)
	}

	lead := store.leads["s-2"]
	if lead == nil {
		t.Fatal("expected session id to be trimmed")
	}
	if lead.Email == nil || *lead.Email != "jane@example.com" {
		t.Fatalf("unexpected email %v", lead.Email)
	}
	if lead.Phone == nil || *lead.Phone != "+16502530000" {
		t.Fatalf("unexpected phone %v", lead.Phone)
	}
	if lead.Name == nil || *lead.Name != "Jane Doe" {
		t.Fatalf("unexpected name %v", lead.Name)
	}
	if _, ok := lead.Answers["unknownId"]; ok {
		t.Fatal("unknown answers must not be stored")
	}
}

func TestSubmitProgressRejectsClosedLead(t *testing.T) {
	store := newFakeLeadStore()
	svc := newLeadService(store, nil)
	ctx := context.Background()

	if _, err := svc.SubmitProgress(ctx, ProgressInput{SessionID: "s-3", Answers: map[string]string{"nome": "A"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "s-3", "Converted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.SubmitProgress(ctx, ProgressInput{SessionID: "s-3", Answers: map[string]string{"nome": "B"}})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSubmitProgressRequiresSessionID(t *testing.T) {
	svc := newLeadService(newFakeLeadStore(), nil)

	_, err := svc.SubmitProgress(context.Background(), ProgressInput{SessionID: "   "})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	store := newFakeLeadStore()
	svc := newLeadService(store, nil)

	preview, err := svc.Preview(context.Background(), hotAnswers())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.Score.Total != 70 || preview.Classification != domain.TierHot || preview.MaxScore != 100 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if len(store.leads) != 0 {
		t.Fatal("preview must not store a lead")
	}
}

func TestListLeadsPaginates(t *testing.T) {
	store := newFakeLeadStore()
	svc := newLeadService(store, nil)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := svc.SubmitProgress(ctx, ProgressInput{SessionID: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	page, err := svc.ListLeads(ctx, ListLeadsInput{Page: 2, PageSize: 2, Classification: "disqualified"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 || page.Items[0].SessionID != "c" {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := svc.ListLeads(ctx, ListLeadsInput{Classification: "LUKEWARM"}); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request for unknown classification, got %v", err)
	}

	page, err = svc.ListLeads(ctx, ListLeadsInput{PageSize: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.PageSize != maxPageSize || page.Page != 1 {
		t.Fatalf("expected clamped paging, got page=%d size=%d", page.Page, page.PageSize)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newLeadService(newFakeLeadStore(), nil)

	if _, err := svc.UpdateStatus(context.Background(), "s", "archived"); !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), "missing", repository.StatusLost); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPreviewKeepsSelectAnswersVerbatim(t *testing.T) {
	cfg := domain.FormConfig{
		Thresholds: domain.Thresholds{Hot: 15, Warm: 10, Cold: 5},
		Questions: []domain.Question{
			{ID: "tempo", Order: 1, Title: "Time in business", Type: domain.TypeSelect, Options: []domain.Option{
				{Value: "&lt;1 year", Label: "Under a year", Points: 7},
				{Value: "other", Label: "Other", Points: 0},
			}},
			{ID: "equipe", Order: 2, Title: "Team", Type: domain.TypeSelect, Options: []domain.Option{
				{Value: "Two  spaces", Label: "Two people", Points: 9},
			}},
			{ID: "nome", Order: 3, Title: "Name", Type: domain.TypeText},
		},
	}
	cfg.MaxScore = domain.SumMaxPoints(cfg.Questions)
	svc := NewLeadService(newFakeLeadStore(), staticConfig{cfg: cfg}, nil, logger.Discard(), "US")

	preview, err := svc.Preview(context.Background(), map[string]string{
		"tempo":  " &lt;1 year ",
		"equipe": "Two  spaces",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.Score.Total != 16 {
		t.Fatalf("expected option values to match verbatim for 16 points, got %d (%v)", preview.Score.Total, preview.Score.Breakdown)
	}
	if preview.Classification != domain.TierHot {
		t.Fatalf("expected HOT, got %s", preview.Classification)
	}

	preview, err = svc.Preview(context.Background(), map[string]string{"tempo": "<b>other</b>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if preview.Score.Total != 0 {
		t.Fatalf("expected unmatched select answer to score 0, got %d", preview.Score.Total)
	}
}

type failingLeadStore struct {
	*fakeLeadStore
	upsertErr error
}

func (f *failingLeadStore) UpsertLead(context.Context, repository.LeadUpsert) (repository.UpsertResult, error) {
	return repository.UpsertResult{}, f.upsertErr
}

func TestSubmitProgressLogsDatabaseErrors(t *testing.T) {
	var buf bytes.Buffer
	store := &failingLeadStore{fakeLeadStore: newFakeLeadStore(), upsertErr: errors.New("upsert lead: connection refused")}
	svc := NewLeadService(store, staticConfig{cfg: domain.DefaultConfig()}, nil, logger.NewWithWriter("production", &buf), "US")

	_, err := svc.SubmitProgress(context.Background(), ProgressInput{SessionID: "s-db", Answers: map[string]string{"nome": "Ana"}})
	if err == nil {
		t.Fatal("expected upsert error")
	}
	out := buf.String()
	if !strings.Contains(out, `"msg":"database_error"`) || !strings.Contains(out, `"operation":"upsert_lead"`) {
		t.Fatalf("expected database_error log, got:\n%s", out)
	}
}

func TestSubmitProgressDoesNotLogDomainErrorsAsDatabaseErrors(t *testing.T) {
	var buf bytes.Buffer
	store := &failingLeadStore{fakeLeadStore: newFakeLeadStore(), upsertErr: apperr.Conflict("lead is closed")}
	svc := NewLeadService(store, staticConfig{cfg: domain.DefaultConfig()}, nil, logger.NewWithWriter("production", &buf), "US")

	_, err := svc.SubmitProgress(context.Background(), ProgressInput{SessionID: "s-closed", Answers: map[string]string{"nome": "Ana"}})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if strings.Contains(buf.String(), "database_error") {
		t.Fatalf("unexpected database_error log:\n%s", buf.String())
	}
}

func TestReleasedHotClaimIsReclaimedOnNextSubmission(t *testing.T) {
	store := newFakeLeadStore()
	bus := &recordingBus{}
	svc := newLeadService(store, bus)
	ctx := context.Background()

	first, err := svc.SubmitProgress(ctx, ProgressInput{SessionID: "s-retry", Answers: hotAnswers()})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !first.HotNotified {
		t.Fatal("expected first HOT submission to claim the alert")
	}

	if err := svc.ReleaseHotNotification(ctx, first.Lead.ID); err != nil {
		t.Fatalf("release: %v", err)
	}

	second, err := svc.SubmitProgress(ctx, ProgressInput{SessionID: "s-retry", Answers: hotAnswers()})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !second.HotNotified {
		t.Fatal("expected released claim to be taken again")
	}
	if got := len(bus.named(events.LeadQualifiedHot{}.EventName())); got != 2 {
		t.Fatalf("expected 2 LeadQualifiedHot events, got %d", got)
	}
}
