package webhook

import (
	"context"
	"errors"

	allocrepo "leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	intakeservice "leadrouter_backend/internal/intake/service"
	"leadrouter_backend/internal/intake/transport"
	"leadrouter_backend/internal/qualify"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// AdSubmission is one inbound provider callback.
type AdSubmission struct {
	Provider       string
	ProviderLeadID string
	CampaignID     string
	Fields         map[string]string
	SourceDomain   string
	APIKeyID       uuid.UUID
}

// AdSubmissionResult is returned to the provider.
type AdSubmissionResult struct {
	LeadID    uuid.UUID `json:"leadId"`
	Duplicate bool      `json:"duplicate"`
	Qualified bool      `json:"qualified"`
	Score     int       `json:"score"`
	Reasons   []string  `json:"reasons,omitempty"`
}

// DedupStore is the slice of the webhook repository the pipeline uses.
// Satisfied by *Repository; tests use an in-memory fake.
type DedupStore interface {
	AdLeadSeen(ctx context.Context, provider, providerLeadID string) (bool, error)
	MarkAdLeadSeen(ctx context.Context, provider, providerLeadID string) (bool, error)
	BatchIDForCampaign(ctx context.Context, provider, campaignID string) (uuid.UUID, error)
}

// QualificationStore persists the score/reasons on the lead row.
type QualificationStore interface {
	SetQualification(ctx context.Context, id uuid.UUID, score int, reasons []string) error
}

// Service runs the ad-lead pipeline: provider dedup, field extraction,
// qualification against the campaign's batch, then allocation for qualified
// leads. Unqualified leads are still recorded for audit with their score.
type Service struct {
	repo    DedupStore
	intake  *intakeservice.Service
	leads   QualificationStore
	batches allocrepo.Store
	scorer  *qualify.Scorer
	bus     events.Bus
	log     *logger.Logger
}

// NewService creates a new webhook service.
func NewService(repo DedupStore, intake *intakeservice.Service, leads QualificationStore, batches allocrepo.Store, scorer *qualify.Scorer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		intake:  intake,
		leads:   leads,
		batches: batches,
		scorer:  scorer,
		bus:     bus,
		log:     log,
	}
}

// ProcessAdLead handles one provider callback end to end.
func (s *Service) ProcessAdLead(ctx context.Context, sub AdSubmission) (AdSubmissionResult, error) {
	if sub.ProviderLeadID != "" {
		seen, err := s.repo.AdLeadSeen(ctx, sub.Provider, sub.ProviderLeadID)
		if err != nil {
			return AdSubmissionResult{}, err
		}
		if seen {
			s.log.Info("webhook: duplicate provider lead ignored",
				"provider", sub.Provider, "providerLeadId", sub.ProviderLeadID)
			return AdSubmissionResult{Duplicate: true}, nil
		}
	}

	batchID, err := s.repo.BatchIDForCampaign(ctx, sub.Provider, sub.CampaignID)
	if err != nil {
		if errors.Is(err, ErrCampaignNotMapped) {
			return AdSubmissionResult{}, apperr.Validation("unknown campaign").WithOp("webhook.ProcessAdLead")
		}
		return AdSubmissionResult{}, err
	}
	batch, err := s.batches.GetBatch(ctx, batchID)
	if err != nil {
		return AdSubmissionResult{}, err
	}

	extracted := ExtractFields(sub.Fields, qualify.DefaultKeywords)
	category := extracted.Category
	if category == "" {
		// The campaign itself implies the category when the form omits it.
		category = batch.Category
	}

	recorded, err := s.intake.Record(ctx, transport.SubmitLeadRequest{
		FirstName:   extracted.FirstName,
		LastName:    extracted.LastName,
		Email:       extracted.Email,
		Phone:       extracted.Phone,
		Category:    category,
		Street:      extracted.Street,
		HouseNumber: extracted.HouseNumber,
		ZipCode:     extracted.ZipCode,
		City:        extracted.City,
		Source:      "ads:" + sub.Provider,
	})
	if err != nil {
		return AdSubmissionResult{}, err
	}
	lead := recorded.Lead

	// The marker is written only now that the lead exists, so a failure
	// anywhere above leaves the callback retryable instead of burning the
	// provider lead ID.
	if sub.ProviderLeadID != "" {
		if _, err := s.repo.MarkAdLeadSeen(ctx, sub.Provider, sub.ProviderLeadID); err != nil {
			// A lost marker only means the retry re-runs intake, which
			// dedups by contact.
			s.log.Error("webhook: failed to store dedup marker", "error", err,
				"provider", sub.Provider, "providerLeadId", sub.ProviderLeadID)
		}
	}

	result := s.scorer.Score(allocrepo.Lead{
		ID:         lead.ID,
		Category:   lead.Category,
		FirstName:  lead.FirstName,
		LastName:   lead.LastName,
		Email:      lead.Email,
		Phone:      lead.Phone,
		ZipCode:    lead.ZipCode,
		Coordinate: coordinateOf(lead.Lat, lead.Lon),
	}, batch)

	if err := s.leads.SetQualification(ctx, lead.ID, result.Score, result.Reasons); err != nil {
		s.log.Error("webhook: failed to store qualification", "error", err, "leadId", lead.ID)
	}

	s.bus.Publish(ctx, events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		BatchID:   batch.ID,
		Qualified: result.Qualified,
		Score:     result.Score,
		Reasons:   result.Reasons,
	})

	if result.Qualified {
		if err := s.intake.Announce(ctx, lead.ID); err != nil {
			s.log.Error("webhook: failed to announce qualified lead", "error", err, "leadId", lead.ID)
		}
	} else {
		s.log.Info("webhook: lead did not qualify",
			"leadId", lead.ID, "score", result.Score, "reasons", result.Reasons)
	}

	return AdSubmissionResult{
		LeadID:    lead.ID,
		Qualified: result.Qualified,
		Score:     result.Score,
		Reasons:   result.Reasons,
	}, nil
}

func coordinateOf(lat, lon *float64) *geo.Coordinate {
	if lat == nil || lon == nil {
		return nil
	}
	return &geo.Coordinate{Lat: *lat, Lon: *lon}
}
