package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	"leadrouter_backend/internal/intake/repository"
	"leadrouter_backend/internal/intake/transport"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeLeadStore mirrors the fill-not-null resubmission semantics of the pgx
// repository.
type fakeLeadStore struct {
	leads []repository.Lead
}

func (s *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	for _, l := range s.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return repository.Lead{}, repository.ErrLeadNotFound
}

func (s *fakeLeadStore) FindByContact(_ context.Context, email, phone string) (repository.Lead, error) {
	for _, l := range s.leads {
		if (email != "" && l.Email == email) || (phone != "" && l.Phone == phone) {
			return l, nil
		}
	}
	return repository.Lead{}, repository.ErrLeadNotFound
}

func (s *fakeLeadStore) Insert(_ context.Context, lead *repository.Lead) error {
	lead.ID = uuid.New()
	lead.SubmissionCount = 1
	lead.FirstSeenAt = time.Now()
	lead.LastSeenAt = lead.FirstSeenAt
	s.leads = append(s.leads, *lead)
	return nil
}

func (s *fakeLeadStore) RecordResubmission(_ context.Context, id uuid.UUID, update repository.Lead) (repository.Lead, error) {
	for i := range s.leads {
		if s.leads[i].ID != id {
			continue
		}
		lead := &s.leads[i]
		lead.SubmissionCount++
		lead.LastSeenAt = time.Now()
		fill := func(dst *string, src string) {
			if src != "" {
				*dst = src
			}
		}
		fill(&lead.FirstName, update.FirstName)
		fill(&lead.LastName, update.LastName)
		fill(&lead.Email, update.Email)
		fill(&lead.Phone, update.Phone)
		fill(&lead.Street, update.Street)
		fill(&lead.HouseNumber, update.HouseNumber)
		fill(&lead.ZipCode, update.ZipCode)
		fill(&lead.City, update.City)
		if update.Lat != nil {
			lead.Lat, lead.Lon = update.Lat, update.Lon
		}
		if update.GeoPrecision != nil {
			lead.GeoPrecision = update.GeoPrecision
		}
		return *lead, nil
	}
	return repository.Lead{}, repository.ErrLeadNotFound
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

func (b *recordingBus) received() []events.LeadReceived {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.LeadReceived
	for _, e := range b.events {
		if ev, ok := e.(events.LeadReceived); ok {
			out = append(out, ev)
		}
	}
	return out
}

func newTestService(store *fakeLeadStore, bus events.Bus) *Service {
	return New(store, geo.NewResolver(logger.New("test")), bus, logger.New("test"))
}

func solarRequest() transport.SubmitLeadRequest {
	return transport.SubmitLeadRequest{
		FirstName: "Jan",
		LastName:  "de Vries",
		Email:     "Jan@Example.com",
		Phone:     "06 1234 5678",
		Category:  "solar",
		ZipCode:   "1012 AB",
		City:      "Amsterdam",
		Source:    "website",
	}
}

func TestSubmitCreatesLead(t *testing.T) {
	store := &fakeLeadStore{}
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	resp, err := svc.Submit(context.Background(), solarRequest())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if resp.IsResubmission {
		t.Errorf("first submission flagged as resubmission")
	}
	if resp.Lead.Email != "jan@example.com" {
		t.Errorf("email = %q, want lowercased", resp.Lead.Email)
	}
	if resp.Lead.Phone != "+31612345678" {
		t.Errorf("phone = %q, want E.164", resp.Lead.Phone)
	}
	if resp.Lead.SubmissionCount != 1 {
		t.Errorf("submission count = %d, want 1", resp.Lead.SubmissionCount)
	}
	if resp.Lead.Lat == nil || resp.Lead.Lon == nil {
		t.Fatalf("expected resolved coordinates for a known postal code")
	}

	got := bus.received()
	if len(got) != 1 {
		t.Fatalf("got %d LeadReceived events, want 1", len(got))
	}
	if got[0].LeadID != resp.Lead.ID || got[0].IsResubmission {
		t.Errorf("event = %+v, want fresh lead %s", got[0], resp.Lead.ID)
	}
}

func TestSubmitDeduplicatesByEmail(t *testing.T) {
	store := &fakeLeadStore{}
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	first, err := svc.Submit(context.Background(), solarRequest())
	if err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	again := solarRequest()
	again.Phone = "" // same email, different channel
	resp, err := svc.Submit(context.Background(), again)
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if !resp.IsResubmission {
		t.Fatalf("expected the second submission to be a resubmission")
	}
	if resp.Lead.ID != first.Lead.ID {
		t.Errorf("resubmission created a new lead")
	}
	if resp.Lead.SubmissionCount != 2 {
		t.Errorf("submission count = %d, want 2", resp.Lead.SubmissionCount)
	}
	if resp.Lead.TotalDistributionCount != 0 {
		t.Errorf("distribution count changed on resubmission")
	}
	if len(store.leads) != 1 {
		t.Errorf("store holds %d leads, want 1", len(store.leads))
	}

	got := bus.received()
	if len(got) != 2 || !got[1].IsResubmission {
		t.Errorf("expected a second LeadReceived flagged as resubmission")
	}
}

func TestSubmitDeduplicatesByPhoneFormatting(t *testing.T) {
	store := &fakeLeadStore{}
	svc := newTestService(store, &recordingBus{})

	first := solarRequest()
	first.Email = ""
	if _, err := svc.Submit(context.Background(), first); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	again := first
	again.Phone = "+31 6 1234 5678" // same number, different formatting
	resp, err := svc.Submit(context.Background(), again)
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if !resp.IsResubmission {
		t.Errorf("formatting variant of the same phone created a new lead")
	}
}

func TestSubmitResubmissionNeverBlanksFields(t *testing.T) {
	store := &fakeLeadStore{}
	svc := newTestService(store, &recordingBus{})

	if _, err := svc.Submit(context.Background(), solarRequest()); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	sparse := transport.SubmitLeadRequest{
		Email:    "jan@example.com",
		Category: "solar",
	}
	resp, err := svc.Submit(context.Background(), sparse)
	if err != nil {
		t.Fatalf("sparse resubmission failed: %v", err)
	}
	if resp.Lead.FirstName != "Jan" || resp.Lead.City != "Amsterdam" {
		t.Errorf("sparse resubmission blanked existing fields: %+v", resp.Lead)
	}
	if resp.Lead.Phone != "+31612345678" {
		t.Errorf("phone blanked by sparse resubmission: %q", resp.Lead.Phone)
	}
}

func TestSubmitRequiresContact(t *testing.T) {
	svc := newTestService(&fakeLeadStore{}, &recordingBus{})

	req := solarRequest()
	req.Email = ""
	req.Phone = "12" // too short to be a valid number
	_, err := svc.Submit(context.Background(), req)
	if err == nil {
		t.Fatalf("expected a validation error without usable contact info")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindValidation {
		t.Errorf("error = %v, want validation kind", err)
	}
}

func TestSubmitWithoutZipCodeSkipsGeo(t *testing.T) {
	svc := newTestService(&fakeLeadStore{}, &recordingBus{})

	req := solarRequest()
	req.ZipCode = ""
	resp, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if resp.Lead.Lat != nil || resp.Lead.Lon != nil || resp.Lead.GeoPrecision != "" {
		t.Errorf("expected no coordinates without a postal code, got %+v", resp.Lead)
	}
}

func TestRecordDoesNotPublish(t *testing.T) {
	store := &fakeLeadStore{}
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	resp, err := svc.Record(context.Background(), solarRequest())
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if got := bus.received(); len(got) != 0 {
		t.Fatalf("Record published %d LeadReceived events, want 0", len(got))
	}

	if err := svc.Announce(context.Background(), resp.Lead.ID); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	got := bus.received()
	if len(got) != 1 {
		t.Fatalf("got %d LeadReceived events after Announce, want 1", len(got))
	}
	if got[0].LeadID != resp.Lead.ID {
		t.Errorf("announced lead %s, want %s", got[0].LeadID, resp.Lead.ID)
	}
}
