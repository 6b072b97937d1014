package service

import (
	"context"
	"sync"
	"time"

	"leadrouter_backend/internal/allocation/repository"

	"github.com/google/uuid"
)

// memStore is an in-memory repository.Store used to test ranking and
// execution semantics, including the conditional increment under contention.
type memStore struct {
	mu            sync.Mutex
	leads         map[uuid.UUID]repository.Lead
	batches       map[uuid.UUID]*repository.CustomerBatch
	batchOrder    []uuid.UUID
	distributions []repository.Distribution
	counterBumps  map[uuid.UUID][2]int

	// createFailOn errors the Nth CreateDistribution call (1-based).
	createCalls  int
	createFailOn int
	createErr    error
}

func newMemStore() *memStore {
	return &memStore{
		leads:        make(map[uuid.UUID]repository.Lead),
		batches:      make(map[uuid.UUID]*repository.CustomerBatch),
		counterBumps: make(map[uuid.UUID][2]int),
	}
}

func (s *memStore) addLead(lead repository.Lead) {
	s.leads[lead.ID] = lead
}

func (s *memStore) addBatch(batch repository.CustomerBatch) {
	copied := batch
	s.batches[batch.ID] = &copied
	s.batchOrder = append(s.batchOrder, batch.ID)
}

func (s *memStore) addDistribution(d repository.Distribution) {
	s.distributions = append(s.distributions, d)
}

func (s *memStore) GetLead(_ context.Context, leadID uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[leadID]
	if !ok {
		return repository.Lead{}, repository.ErrLeadNotFound
	}
	return lead, nil
}

func (s *memStore) GetBatch(_ context.Context, batchID uuid.UUID) (repository.CustomerBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return repository.CustomerBatch{}, repository.ErrBatchNotFound
	}
	return *batch, nil
}

func (s *memStore) GetDistribution(_ context.Context, distributionID uuid.UUID) (repository.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.distributions {
		if d.ID == distributionID {
			return d, nil
		}
	}
	return repository.Distribution{}, repository.ErrDistributionNotFound
}

func (s *memStore) ListOpenBatches(_ context.Context, category string) ([]repository.CustomerBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []repository.CustomerBatch
	for _, id := range s.batchOrder {
		b := s.batches[id]
		if b.Category == category && b.IsActive && !b.IsCompleted && b.CurrentCount < b.TotalCapacity {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (s *memStore) LatestDistributionsByLead(_ context.Context, leadID uuid.UUID) (map[uuid.UUID]repository.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[uuid.UUID]repository.Distribution)
	for _, d := range s.distributions {
		if d.LeadID != leadID {
			continue
		}
		if prev, ok := result[d.CustomerID]; !ok || d.CreatedAt.After(prev.CreatedAt) {
			result[d.CustomerID] = d
		}
	}
	return result, nil
}

func (s *memStore) TryIncrementBatchCount(_ context.Context, batchID uuid.UUID) (repository.IncrementOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return repository.IncrementOutcome{}, repository.ErrBatchNotFound
	}
	if !batch.IsActive || batch.CurrentCount >= batch.TotalCapacity {
		return repository.IncrementOutcome{Won: false}, nil
	}

	batch.CurrentCount++
	if batch.CurrentCount >= batch.TotalCapacity {
		batch.IsCompleted = true
		batch.IsActive = false
	}
	return repository.IncrementOutcome{
		Won:       true,
		NewCount:  batch.CurrentCount,
		Completed: batch.CurrentCount >= batch.TotalCapacity,
	}, nil
}

func (s *memStore) CreateDistribution(_ context.Context, d *repository.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createFailOn > 0 && s.createCalls == s.createFailOn {
		return s.createErr
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	s.distributions = append(s.distributions, *d)
	return nil
}

func (s *memStore) UpdateSinkStatus(_ context.Context, distributionID uuid.UUID, status repository.SinkStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.distributions {
		if s.distributions[i].ID == distributionID {
			s.distributions[i].SinkStatus = status
			return nil
		}
	}
	return repository.ErrDistributionNotFound
}

func (s *memStore) ListPendingSinkDistributions(_ context.Context, limit int) ([]repository.Distribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []repository.Distribution
	for _, d := range s.distributions {
		if d.SinkStatus != repository.SinkSynced {
			result = append(result, d)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *memStore) BumpLeadDistributionCounters(_ context.Context, leadID uuid.UUID, distributions, newCustomers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bump := s.counterBumps[leadID]
	bump[0] += distributions
	bump[1] += newCustomers
	s.counterBumps[leadID] = bump
	return nil
}
