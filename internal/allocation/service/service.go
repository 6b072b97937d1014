package service

import (
	"context"
	"time"

	"leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// Service runs complete allocation passes. One pass per inbound lead event;
// passes for different leads run concurrently without coordination because the
// only contended state, the batch quota counter, is advanced atomically in the
// store.
type Service struct {
	store    repository.Store
	ranker   *Ranker
	executor *Executor
	log      *logger.Logger
}

// NewService creates the allocation service.
func NewService(store repository.Store, ranker *Ranker, executor *Executor, log *logger.Logger) *Service {
	return &Service{store: store, ranker: ranker, executor: executor, log: log}
}

// Run executes one allocation pass for the lead.
func (s *Service) Run(ctx context.Context, leadID uuid.UUID) (PassResult, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return PassResult{}, err
	}

	ranked, err := s.ranker.Rank(ctx, lead, time.Now())
	if err != nil {
		return PassResult{}, err
	}

	return s.executor.Execute(ctx, lead, ranked)
}

// RetrySink re-pushes a distribution whose sheet sync did not complete.
// Already-synced rows are a no-op so replayed tasks stay idempotent.
func (s *Service) RetrySink(ctx context.Context, distributionID uuid.UUID) error {
	dist, err := s.store.GetDistribution(ctx, distributionID)
	if err != nil {
		return err
	}
	if dist.SinkStatus == repository.SinkSynced {
		return nil
	}
	return s.executor.RepushSink(ctx, dist)
}
