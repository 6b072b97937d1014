// Package service implements lead intake: dedup by contact identity,
// coordinate resolution and the LeadReceived event that starts allocation.
package service

import (
	"context"
	"errors"
	"strings"

	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	"leadrouter_backend/internal/intake/repository"
	"leadrouter_backend/internal/intake/transport"
	"leadrouter_backend/platform/apperr"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadStore is the persistence the intake flow needs. Satisfied by
// *repository.Repository; tests use an in-memory fake.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	FindByContact(ctx context.Context, email, phone string) (repository.Lead, error)
	Insert(ctx context.Context, lead *repository.Lead) error
	RecordResubmission(ctx context.Context, id uuid.UUID, update repository.Lead) (repository.Lead, error)
}

// Service handles inbound lead submissions.
type Service struct {
	repo     LeadStore
	resolver *geo.Resolver
	bus      events.Bus
	log      *logger.Logger
}

// New creates the intake service.
func New(repo LeadStore, resolver *geo.Resolver, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, bus: bus, log: log}
}

// Submit processes one raw submission and publishes LeadReceived, which
// kicks off an allocation pass. Exactly one lead row is created or updated;
// no distribution decision is made here.
func (s *Service) Submit(ctx context.Context, req transport.SubmitLeadRequest) (transport.SubmitLeadResponse, error) {
	resp, lead, err := s.record(ctx, req)
	if err != nil {
		return transport.SubmitLeadResponse{}, err
	}
	s.publishReceived(ctx, lead, resp.IsResubmission)
	return resp, nil
}

// Record creates or updates the lead without publishing LeadReceived. The
// webhook pipeline uses it so qualification can run before allocation starts;
// it calls Announce itself once the lead qualifies.
func (s *Service) Record(ctx context.Context, req transport.SubmitLeadRequest) (transport.SubmitLeadResponse, error) {
	resp, _, err := s.record(ctx, req)
	return resp, err
}

// Announce publishes LeadReceived for an already-recorded lead.
func (s *Service) Announce(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	s.publishReceived(ctx, lead, lead.SubmissionCount > 1)
	return nil
}

func (s *Service) record(ctx context.Context, req transport.SubmitLeadRequest) (transport.SubmitLeadResponse, repository.Lead, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phoneKey, phoneOK := phone.DedupKey(req.Phone)
	if email == "" && !phoneOK {
		return transport.SubmitLeadResponse{}, repository.Lead{}, apperr.Validation("a valid email or phone number is required")
	}

	storedPhone := ""
	if phoneOK {
		storedPhone = phoneKey
	} else if strings.TrimSpace(req.Phone) != "" {
		storedPhone = phone.NormalizeE164(req.Phone)
	}

	lat, lon, precision := s.resolveCoordinates(ctx, req.ZipCode)

	existing, err := s.repo.FindByContact(ctx, email, phoneKey)
	switch {
	case err == nil:
		updated, err := s.repo.RecordResubmission(ctx, existing.ID, repository.Lead{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        email,
			Phone:        storedPhone,
			Street:       req.Street,
			HouseNumber:  req.HouseNumber,
			ZipCode:      req.ZipCode,
			City:         req.City,
			Lat:          lat,
			Lon:          lon,
			GeoPrecision: precision,
		})
		if err != nil {
			return transport.SubmitLeadResponse{}, repository.Lead{}, err
		}

		return transport.SubmitLeadResponse{Lead: toResponse(updated), IsResubmission: true}, updated, nil

	case errors.Is(err, repository.ErrLeadNotFound):
		lead := repository.Lead{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        email,
			Phone:        storedPhone,
			Category:     req.Category,
			Street:       req.Street,
			HouseNumber:  req.HouseNumber,
			ZipCode:      req.ZipCode,
			City:         req.City,
			Lat:          lat,
			Lon:          lon,
			GeoPrecision: precision,
			Source:       req.Source,
		}
		if err := s.repo.Insert(ctx, &lead); err != nil {
			return transport.SubmitLeadResponse{}, repository.Lead{}, err
		}

		return transport.SubmitLeadResponse{Lead: toResponse(lead)}, lead, nil

	default:
		return transport.SubmitLeadResponse{}, repository.Lead{}, err
	}
}

// GetByID returns the API view of a lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(lead), nil
}

// resolveCoordinates is best effort: a missing postal code yields nothing, a
// malformed or unknown one degrades to the national default rather than
// failing intake.
func (s *Service) resolveCoordinates(ctx context.Context, zipCode string) (*float64, *float64, *string) {
	if strings.TrimSpace(zipCode) == "" {
		return nil, nil, nil
	}

	result, err := s.resolver.Resolve(ctx, zipCode)
	if err != nil {
		s.log.GeoFallback(zipCode)
		result = geo.Result{Coordinate: geo.DefaultCoordinate, Precision: geo.PrecisionDefault}
	}

	lat := result.Coordinate.Lat
	lon := result.Coordinate.Lon
	precision := string(result.Precision)
	return &lat, &lon, &precision
}

func (s *Service) publishReceived(ctx context.Context, lead repository.Lead, resubmission bool) {
	s.bus.Publish(ctx, events.LeadReceived{
		BaseEvent:       events.NewBaseEvent(),
		LeadID:          lead.ID,
		Category:        lead.Category,
		IsResubmission:  resubmission,
		SubmissionCount: lead.SubmissionCount,
		Source:          lead.Source,
	})
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:                     lead.ID,
		FirstName:              lead.FirstName,
		LastName:               lead.LastName,
		Email:                  lead.Email,
		Phone:                  lead.Phone,
		Category:               lead.Category,
		Street:                 lead.Street,
		HouseNumber:            lead.HouseNumber,
		ZipCode:                lead.ZipCode,
		City:                   lead.City,
		Lat:                    lead.Lat,
		Lon:                    lead.Lon,
		Source:                 lead.Source,
		SubmissionCount:        lead.SubmissionCount,
		TotalDistributionCount: lead.TotalDistributionCount,
		UniqueCustomerCount:    lead.UniqueCustomerCount,
		FirstSeenAt:            lead.FirstSeenAt,
		LastSeenAt:             lead.LastSeenAt,
	}
	if lead.GeoPrecision != nil {
		resp.GeoPrecision = *lead.GeoPrecision
	}
	return resp
}
