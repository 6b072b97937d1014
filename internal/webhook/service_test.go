package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	allocrepo "leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	intakerepo "leadrouter_backend/internal/intake/repository"
	intakeservice "leadrouter_backend/internal/intake/service"
	"leadrouter_backend/internal/qualify"
	"leadrouter_backend/internal/territory"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

type markerKey struct{ provider, leadID string }

type fakeDedupStore struct {
	seen     map[markerKey]bool
	mappings map[markerKey]uuid.UUID
}

func newFakeDedupStore() *fakeDedupStore {
	return &fakeDedupStore{
		seen:     make(map[markerKey]bool),
		mappings: make(map[markerKey]uuid.UUID),
	}
}

func (s *fakeDedupStore) AdLeadSeen(_ context.Context, provider, leadID string) (bool, error) {
	return s.seen[markerKey{provider, leadID}], nil
}

func (s *fakeDedupStore) MarkAdLeadSeen(_ context.Context, provider, leadID string) (bool, error) {
	key := markerKey{provider, leadID}
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *fakeDedupStore) BatchIDForCampaign(_ context.Context, provider, campaignID string) (uuid.UUID, error) {
	batchID, ok := s.mappings[markerKey{provider, campaignID}]
	if !ok {
		return uuid.Nil, ErrCampaignNotMapped
	}
	return batchID, nil
}

type fakeQualStore struct {
	scores map[uuid.UUID]int
}

func (s *fakeQualStore) SetQualification(_ context.Context, id uuid.UUID, score int, _ []string) error {
	if s.scores == nil {
		s.scores = make(map[uuid.UUID]int)
	}
	s.scores[id] = score
	return nil
}

type fakeBatchStore struct {
	allocrepo.Store
	batch allocrepo.CustomerBatch
}

func (s *fakeBatchStore) GetBatch(context.Context, uuid.UUID) (allocrepo.CustomerBatch, error) {
	return s.batch, nil
}

type fakeLeadStore struct {
	leads []intakerepo.Lead
}

func (s *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (intakerepo.Lead, error) {
	for _, l := range s.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return intakerepo.Lead{}, intakerepo.ErrLeadNotFound
}

func (s *fakeLeadStore) FindByContact(_ context.Context, email, phone string) (intakerepo.Lead, error) {
	for _, l := range s.leads {
		if (email != "" && l.Email == email) || (phone != "" && l.Phone == phone) {
			return l, nil
		}
	}
	return intakerepo.Lead{}, intakerepo.ErrLeadNotFound
}

func (s *fakeLeadStore) Insert(_ context.Context, lead *intakerepo.Lead) error {
	lead.ID = uuid.New()
	lead.SubmissionCount = 1
	lead.FirstSeenAt = time.Now()
	lead.LastSeenAt = lead.FirstSeenAt
	s.leads = append(s.leads, *lead)
	return nil
}

func (s *fakeLeadStore) RecordResubmission(_ context.Context, id uuid.UUID, _ intakerepo.Lead) (intakerepo.Lead, error) {
	for i := range s.leads {
		if s.leads[i].ID == id {
			s.leads[i].SubmissionCount++
			return s.leads[i], nil
		}
	}
	return intakerepo.Lead{}, intakerepo.ErrLeadNotFound
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

func (b *recordingBus) countByName(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

type pipeline struct {
	svc   *Service
	dedup *fakeDedupStore
	leads *fakeLeadStore
	qual  *fakeQualStore
	bus   *recordingBus
	batch allocrepo.CustomerBatch
}

func newPipeline(batchCategory string) *pipeline {
	log := logger.New("test")
	bus := &recordingBus{}
	dedup := newFakeDedupStore()
	leads := &fakeLeadStore{}
	qual := &fakeQualStore{}
	batch := allocrepo.CustomerBatch{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Category:      batchCategory,
		TotalCapacity: 5,
		IsActive:      true,
		Territory:     territory.Definition{Kind: territory.KindCountry},
	}

	intake := intakeservice.New(leads, geo.NewResolver(log), bus, log)
	svc := NewService(dedup, intake, qual, &fakeBatchStore{batch: batch}, qualify.NewScorer(nil), bus, log)
	return &pipeline{svc: svc, dedup: dedup, leads: leads, qual: qual, bus: bus, batch: batch}
}

func adSubmission() AdSubmission {
	return AdSubmission{
		Provider:       "google",
		ProviderLeadID: "gl-123",
		CampaignID:     "camp-1",
		Fields: map[string]string{
			"naam":     "Jan de Vries",
			"email":    "jan@example.com",
			"telefoon": "0612345678",
			"postcode": "1012 AB",
			"dienst":   "zonnepanelen",
		},
	}
}

func TestProcessAdLeadRetryableAfterFailedCallback(t *testing.T) {
	p := newPipeline("solar")

	// No campaign mapping yet: the first delivery fails.
	if _, err := p.svc.ProcessAdLead(context.Background(), adSubmission()); err == nil {
		t.Fatalf("expected an error for an unmapped campaign")
	}
	if seen, _ := p.dedup.AdLeadSeen(context.Background(), "google", "gl-123"); seen {
		t.Fatalf("dedup marker stored for a failed callback")
	}
	if len(p.leads.leads) != 0 {
		t.Fatalf("lead created despite failed callback")
	}

	// Mapping fixed; the provider's retry must go through.
	p.dedup.mappings[markerKey{"google", "camp-1"}] = p.batch.ID
	result, err := p.svc.ProcessAdLead(context.Background(), adSubmission())
	if err != nil {
		t.Fatalf("retried callback failed: %v", err)
	}
	if result.Duplicate {
		t.Fatalf("retry after a failed callback rejected as duplicate")
	}
	if !result.Qualified {
		t.Errorf("expected the lead to qualify, reasons: %v", result.Reasons)
	}
	if len(p.leads.leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(p.leads.leads))
	}
	if seen, _ := p.dedup.AdLeadSeen(context.Background(), "google", "gl-123"); !seen {
		t.Errorf("dedup marker not stored after successful processing")
	}
	if got := p.bus.countByName("intake.lead.received"); got != 1 {
		t.Errorf("got %d LeadReceived events, want 1", got)
	}
}

func TestProcessAdLeadDuplicateProviderID(t *testing.T) {
	p := newPipeline("solar")
	p.dedup.mappings[markerKey{"google", "camp-1"}] = p.batch.ID

	if _, err := p.svc.ProcessAdLead(context.Background(), adSubmission()); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	result, err := p.svc.ProcessAdLead(context.Background(), adSubmission())
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if !result.Duplicate {
		t.Fatalf("redelivered provider lead not flagged as duplicate")
	}
	if len(p.leads.leads) != 1 {
		t.Errorf("duplicate delivery created a second lead")
	}
	if got := p.bus.countByName("intake.lead.received"); got != 1 {
		t.Errorf("duplicate delivery published another LeadReceived")
	}
}

func TestProcessAdLeadUnqualifiedStillRecorded(t *testing.T) {
	p := newPipeline("hvac") // campaign batch sells a different category
	p.dedup.mappings[markerKey{"google", "camp-1"}] = p.batch.ID

	result, err := p.svc.ProcessAdLead(context.Background(), adSubmission())
	if err != nil {
		t.Fatalf("ProcessAdLead failed: %v", err)
	}
	if result.Qualified {
		t.Fatalf("solar request qualified against an hvac batch")
	}
	if len(p.leads.leads) != 1 {
		t.Fatalf("unqualified lead not recorded for audit")
	}
	if _, ok := p.qual.scores[result.LeadID]; !ok {
		t.Errorf("qualification score not stored on the lead")
	}
	if got := p.bus.countByName("intake.lead.received"); got != 0 {
		t.Errorf("unqualified lead still announced for allocation")
	}
	if got := p.bus.countByName("qualify.lead.scored"); got != 1 {
		t.Errorf("got %d LeadQualified events, want 1", got)
	}
}
