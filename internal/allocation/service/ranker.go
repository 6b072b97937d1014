// Package service implements the lead allocation pass: ranking eligible
// customer batches for a lead and executing distributions against them.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// ReuseWindow is the minimum age of a prior distribution to the same customer
// before the lead may be delivered to that customer again.
const ReuseWindow = 30 * 24 * time.Hour

// Candidate is one eligible batch for a lead, with its ranking score.
type Candidate struct {
	Batch         repository.CustomerBatch
	Kind          repository.DistributionKind
	DistanceKm    *float64
	PriorityScore float64
	Reason        string
}

// Ranked holds the two candidate partitions for one allocation pass.
// Fresh batches have never received this lead; Reuse batches received it at
// least ReuseWindow ago. Customers with a younger prior distribution are in
// neither list.
type Ranked struct {
	Fresh []Candidate
	Reuse []Candidate
}

// Ranker enumerates and orders candidate batches for a lead.
type Ranker struct {
	store repository.Store
	log   *logger.Logger
}

// NewRanker creates a Ranker.
func NewRanker(store repository.Store, log *logger.Logger) *Ranker {
	return &Ranker{store: store, log: log}
}

// Rank partitions the open batches for the lead's category into fresh and
// reuse candidates, each sorted ascending by priority score so the most
// specific territory wins.
func (r *Ranker) Rank(ctx context.Context, lead repository.Lead, now time.Time) (Ranked, error) {
	if !lead.HasCoordinate() {
		r.log.Warn("lead has no coordinate, skipping ranking", "leadId", lead.ID)
		return Ranked{}, nil
	}

	batches, err := r.store.ListOpenBatches(ctx, lead.Category)
	if err != nil {
		return Ranked{}, fmt.Errorf("list open batches: %w", err)
	}

	prior, err := r.store.LatestDistributionsByLead(ctx, lead.ID)
	if err != nil {
		return Ranked{}, fmt.Errorf("list prior distributions: %w", err)
	}

	var ranked Ranked
	seenCustomer := make(map[uuid.UUID]bool)
	for _, batch := range batches {
		// A customer can hold several open batches in one category; the lead
		// is only ever offered to one of them per pass: the oldest whose
		// territory matches.
		if seenCustomer[batch.CustomerID] {
			continue
		}

		last, hasPrior := prior[batch.CustomerID]
		if hasPrior {
			age := now.Sub(last.CreatedAt)
			if age < ReuseWindow {
				// A recent delivery excludes the customer entirely.
				seenCustomer[batch.CustomerID] = true
				continue
			}

			match := batch.Territory.Match(*lead.Coordinate)
			if !match.Matches {
				continue
			}
			seenCustomer[batch.CustomerID] = true
			ranked.Reuse = append(ranked.Reuse, Candidate{
				Batch:         batch,
				Kind:          repository.KindReuse,
				DistanceKm:    match.DistanceKm,
				PriorityScore: batch.Territory.PriorityScore(),
				Reason:        fmt.Sprintf("previous delivery %d days ago", int(age.Hours()/24)),
			})
			continue
		}

		match := batch.Territory.Match(*lead.Coordinate)
		if !match.Matches {
			continue
		}
		seenCustomer[batch.CustomerID] = true
		ranked.Fresh = append(ranked.Fresh, Candidate{
			Batch:         batch,
			Kind:          repository.KindFresh,
			DistanceKm:    match.DistanceKm,
			PriorityScore: batch.Territory.PriorityScore(),
		})
	}

	sortCandidates(ranked.Fresh)
	sortCandidates(ranked.Reuse)

	return ranked, nil
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PriorityScore < candidates[j].PriorityScore
	})
}
