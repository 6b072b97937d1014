package service

import (
	"context"

	"leadrouter_backend/internal/adapters/sheets"
	"leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// MaxPerPass caps how many distributions one allocation pass may create.
// This is a deliberate fan-out limit: a lead goes to at most two customers
// per submission event, however many batches match.
const MaxPerPass = 2

// SinkRetryScheduler enqueues an out-of-band retry for a failed sheet push.
// Nil-safe in the executor; satisfied by scheduler.Client.
type SinkRetryScheduler interface {
	ScheduleSinkRetry(ctx context.Context, distributionID uuid.UUID) error
}

// Executor consumes ranked candidates and writes distributions.
type Executor struct {
	store   repository.Store
	sink    sheets.Sink
	retries SinkRetryScheduler
	bus     events.Bus
	log     *logger.Logger
}

// NewExecutor creates an Executor. retries may be nil when no background
// worker is configured; failed pushes then stay pending until the worker
// binary sweeps them.
func NewExecutor(store repository.Store, sink sheets.Sink, retries SinkRetryScheduler, bus events.Bus, log *logger.Logger) *Executor {
	return &Executor{store: store, sink: sink, retries: retries, bus: bus, log: log}
}

// PassResult summarizes one allocation pass.
type PassResult struct {
	Distributions []repository.Distribution
	FreshCount    int
	ReuseCount    int
}

// Execute walks the ranked candidates and creates at most MaxPerPass
// distributions. Fresh candidates are tried first; reuse candidates are a
// fallback used only when no fresh distribution was made, never in addition.
//
// Per candidate, the order of operations is deliberate: the conditional quota
// increment decides eligibility, the distribution row is the durable record,
// and the sheet push is fire-and-forget. A failed push marks the row for
// retry and never rolls anything back.
func (e *Executor) Execute(ctx context.Context, lead repository.Lead, ranked Ranked) (PassResult, error) {
	var result PassResult

	for _, candidate := range ranked.Fresh {
		if result.FreshCount >= MaxPerPass {
			break
		}

		outcome, err := e.store.TryIncrementBatchCount(ctx, candidate.Batch.ID)
		if err != nil {
			return e.settle(ctx, lead, result, err)
		}
		if !outcome.Won {
			// Another pass took the last slot between ranking and now.
			e.log.Info("batch quota race lost, trying next candidate",
				"batchId", candidate.Batch.ID, "leadId", lead.ID)
			continue
		}

		dist, err := e.createAndPush(ctx, lead, candidate)
		if err != nil {
			return e.settle(ctx, lead, result, err)
		}
		result.Distributions = append(result.Distributions, dist)
		result.FreshCount++

		if outcome.Completed {
			e.bus.Publish(ctx, events.BatchCompleted{
				BaseEvent:     events.NewBaseEvent(),
				BatchID:       candidate.Batch.ID,
				CustomerID:    candidate.Batch.CustomerID,
				Category:      candidate.Batch.Category,
				TotalCapacity: candidate.Batch.TotalCapacity,
			})
		}
	}

	if result.FreshCount == 0 {
		for _, candidate := range ranked.Reuse {
			if result.ReuseCount >= MaxPerPass {
				break
			}

			// Reuse deliveries do not consume quota, so there is no counter
			// to race on; the batch was open at ranking time and that is
			// enough for a bonus delivery.
			dist, err := e.createAndPush(ctx, lead, candidate)
			if err != nil {
				return e.settle(ctx, lead, result, err)
			}
			result.Distributions = append(result.Distributions, dist)
			result.ReuseCount++
		}
	}

	return e.settle(ctx, lead, result, nil)
}

// settle records the pass outcome on the lead. Counters are bumped even when
// the pass aborted partway, so distributions already created stay counted.
func (e *Executor) settle(ctx context.Context, lead repository.Lead, result PassResult, passErr error) (PassResult, error) {
	total := result.FreshCount + result.ReuseCount
	if total == 0 {
		if passErr == nil {
			e.log.Info("no eligible customers for lead", "leadId", lead.ID, "category", lead.Category)
		}
		return result, passErr
	}

	if err := e.store.BumpLeadDistributionCounters(ctx, lead.ID, total, result.FreshCount); err != nil {
		if passErr == nil {
			return result, err
		}
		e.log.DatabaseError("bump lead counters", err)
		return result, passErr
	}

	if passErr == nil {
		e.log.AllocationResult(lead.ID.String(), result.FreshCount, result.ReuseCount)
	}
	return result, passErr
}

func (e *Executor) createAndPush(ctx context.Context, lead repository.Lead, candidate Candidate) (repository.Distribution, error) {
	dist := repository.Distribution{
		LeadID:        lead.ID,
		CustomerID:    candidate.Batch.CustomerID,
		BatchID:       candidate.Batch.ID,
		Kind:          candidate.Kind,
		DistanceKm:    candidate.DistanceKm,
		PriorityScore: candidate.PriorityScore,
		Reason:        candidate.Reason,
		SinkStatus:    repository.SinkPending,
	}
	if err := e.store.CreateDistribution(ctx, &dist); err != nil {
		return repository.Distribution{}, err
	}

	e.bus.Publish(ctx, events.DistributionCreated{
		BaseEvent:      events.NewBaseEvent(),
		DistributionID: dist.ID,
		LeadID:         lead.ID,
		CustomerID:     dist.CustomerID,
		BatchID:        dist.BatchID,
		Kind:           string(dist.Kind),
	})

	if err := e.sink.AppendRow(ctx, candidate.Batch.SinkTarget, sheets.LeadRow(
		lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		lead.ZipCode, lead.City, lead.Category, string(dist.Kind),
	)); err != nil {
		e.log.Error("sheet sink push failed", "error", err,
			"distributionId", dist.ID, "target", candidate.Batch.SinkTarget)

		if markErr := e.store.UpdateSinkStatus(ctx, dist.ID, repository.SinkFailed); markErr != nil {
			e.log.DatabaseError("mark sink failed", markErr)
		}
		dist.SinkStatus = repository.SinkFailed

		e.bus.Publish(ctx, events.SinkSyncFailed{
			BaseEvent:      events.NewBaseEvent(),
			DistributionID: dist.ID,
			BatchID:        dist.BatchID,
			Reason:         err.Error(),
		})
		if e.retries != nil {
			if err := e.retries.ScheduleSinkRetry(ctx, dist.ID); err != nil {
				e.log.Error("failed to schedule sink retry", "error", err, "distributionId", dist.ID)
			}
		}
		return dist, nil
	}

	if err := e.store.UpdateSinkStatus(ctx, dist.ID, repository.SinkSynced); err != nil {
		e.log.DatabaseError("mark sink synced", err)
	}
	dist.SinkStatus = repository.SinkSynced
	return dist, nil
}

// RepushSink retries the sheet push for an existing distribution row. Unlike
// createAndPush it returns the sink error so the task queue can back off and
// retry again.
func (e *Executor) RepushSink(ctx context.Context, dist repository.Distribution) error {
	lead, err := e.store.GetLead(ctx, dist.LeadID)
	if err != nil {
		return err
	}
	batch, err := e.store.GetBatch(ctx, dist.BatchID)
	if err != nil {
		return err
	}

	if err := e.sink.AppendRow(ctx, batch.SinkTarget, sheets.LeadRow(
		lead.FirstName, lead.LastName, lead.Email, lead.Phone,
		lead.ZipCode, lead.City, lead.Category, string(dist.Kind),
	)); err != nil {
		if markErr := e.store.UpdateSinkStatus(ctx, dist.ID, repository.SinkFailed); markErr != nil {
			e.log.DatabaseError("mark sink failed", markErr)
		}
		return err
	}

	return e.store.UpdateSinkStatus(ctx, dist.ID, repository.SinkSynced)
}
