package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"skaleclub_backend/internal/events"
	"skaleclub_backend/internal/leadform/archive"
	"skaleclub_backend/internal/leadform/domain"
	"skaleclub_backend/internal/leadform/repository"
	"skaleclub_backend/platform/apperr"
)

type fakeConfigStore struct {
	stored *repository.StoredConfig
	reads  int
	saves  int
}

func (f *fakeConfigStore) GetFormConfig(_ context.Context) (repository.StoredConfig, error) {
	f.reads++
	if f.stored == nil {
		return repository.StoredConfig{}, apperr.NotFound("lead form config not found")
	}
	return *f.stored, nil
}

func (f *fakeConfigStore) SaveFormConfig(_ context.Context, raw []byte, updatedBy *uuid.UUID) (repository.StoredConfig, error) {
	f.saves++
	f.stored = &repository.StoredConfig{Raw: raw, UpdatedBy: updatedBy, UpdatedAt: time.Now()}
	return *f.stored, nil
}

type fakeCache struct {
	raw         []byte
	invalidated int
}

func (f *fakeCache) Get(_ context.Context) ([]byte, bool, error) {
	return f.raw, f.raw != nil, nil
}

func (f *fakeCache) Set(_ context.Context, raw []byte) error {
	f.raw = raw
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context) error {
	f.invalidated++
	f.raw = nil
	return nil
}

type fakeArchiver struct {
	archived [][]byte
}

func (f *fakeArchiver) Archive(_ context.Context, raw []byte, at time.Time) (string, error) {
	f.archived = append(f.archived, raw)
	return archive.ObjectKey(at), nil
}

func (f *fakeArchiver) List(_ context.Context, limit int) ([]archive.Snapshot, error) {
	return []archive.Snapshot{{Key: "lead-form-config/x.json", Size: 10}}, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type staticConfig struct {
	cfg domain.FormConfig
}

func (s staticConfig) Effective(context.Context) (domain.FormConfig, error) {
	return s.cfg, nil
}

// fakeLeadStore mirrors the SQL upsert: answers are merged, contact fields
// are only overwritten by non-null values and closed leads are left alone.
type fakeLeadStore struct {
	leads  map[string]*repository.Lead
	claims int
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[string]*repository.Lead)}
}

func (f *fakeLeadStore) GetLeadBySession(_ context.Context, sessionID string) (repository.Lead, error) {
	lead, ok := f.leads[sessionID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return *lead, nil
}

func (f *fakeLeadStore) UpsertLead(_ context.Context, p repository.LeadUpsert) (repository.UpsertResult, error) {
	lead, ok := f.leads[p.SessionID]
	if !ok {
		lead = &repository.Lead{
			ID:        p.ID,
			SessionID: p.SessionID,
			Answers:   map[string]string{},
			Status:    repository.StatusNew,
			CreatedAt: time.Now(),
		}
		f.leads[p.SessionID] = lead
	} else if lead.Status == repository.StatusConverted || lead.Status == repository.StatusLost {
		return repository.UpsertResult{}, apperr.Conflict("lead is closed")
	}

	for k, v := range p.Answers {
		lead.Answers[k] = v
	}
	if p.Name != nil {
		lead.Name = p.Name
	}
	if p.Email != nil {
		lead.Email = p.Email
	}
	if p.Phone != nil {
		lead.Phone = p.Phone
	}
	lead.ScoreTotal = p.ScoreTotal
	lead.ScoreBreakdown = p.ScoreBreakdown
	lead.Classification = p.Classification
	lead.FormCompleted = lead.FormCompleted || p.Completed
	lead.UpdatedAt = time.Now()
	return repository.UpsertResult{Lead: *lead, Created: !ok}, nil
}

func (f *fakeLeadStore) ClaimHotNotification(_ context.Context, leadID uuid.UUID) (bool, error) {
	for _, lead := range f.leads {
		if lead.ID == leadID && !lead.NotificationSent {
			lead.NotificationSent = true
			f.claims++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLeadStore) ReleaseHotNotification(_ context.Context, leadID uuid.UUID) error {
	for _, lead := range f.leads {
		if lead.ID == leadID {
			lead.NotificationSent = false
		}
	}
	return nil
}

func (f *fakeLeadStore) ListLeads(_ context.Context, p repository.ListParams) ([]repository.Lead, int, error) {
	var matched []repository.Lead
	for _, lead := range f.leads {
		if p.Classification != nil && lead.Classification != *p.Classification {
			continue
		}
		if p.Search != "" && !strings.Contains(lead.SessionID, p.Search) {
			continue
		}
		matched = append(matched, *lead)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].SessionID < matched[j].SessionID })

	total := len(matched)
	if p.Offset >= total {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return matched[p.Offset:end], total, nil
}

func (f *fakeLeadStore) UpdateLeadStatus(_ context.Context, sessionID, status string) (repository.Lead, error) {
	lead, ok := f.leads[sessionID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	lead.Status = status
	return *lead, nil
}
