package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadrouter_backend/internal/adapters/sheets"
	"leadrouter_backend/internal/allocation/repository"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// recordingBus captures published events synchronously so tests can assert
// on them without racing the async in-memory bus.
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

func (b *recordingBus) byName(name string) []events.Event {
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

// recordingSink records appended rows and optionally fails per target.
type recordingSink struct {
	mu      sync.Mutex
	rows    []sheets.Row
	targets []string
	err     error
}

func (s *recordingSink) AppendRow(_ context.Context, target string, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	s.targets = append(s.targets, target)
	return nil
}

type recordingRetries struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
}

func (r *recordingRetries) ScheduleSinkRetry(_ context.Context, distributionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, distributionID)
	return nil
}

func newTestExecutor(store repository.Store, sink sheets.Sink, retries SinkRetryScheduler, bus events.Bus) *Executor {
	return NewExecutor(store, sink, retries, bus, logger.New("test"))
}

func rankFor(t *testing.T, store repository.Store, lead repository.Lead) Ranked {
	t.Helper()
	ranked, err := NewRanker(store, logger.New("test")).Rank(context.Background(), lead, time.Now())
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	return ranked
}

func TestExecuteSolarScenario(t *testing.T) {
	store := newMemStore()
	leadCoord := geo.Coordinate{Lat: 52.0, Lon: 5.0}

	batchA := testBatch("solar", radiusDef(leadCoord, 20), 5, 4)
	batchB := testBatch("solar", countryDef(), 5, 0)
	store.addBatch(batchB)
	store.addBatch(batchA)

	lead := testLead("solar", &leadCoord)
	store.addLead(lead)

	bus := &recordingBus{}
	sink := &recordingSink{}
	exec := newTestExecutor(store, sink, nil, bus)

	result, err := exec.Execute(context.Background(), lead, rankFor(t, store, lead))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.FreshCount != 2 || result.ReuseCount != 0 {
		t.Fatalf("got %d fresh, %d reuse, want 2 fresh, 0 reuse", result.FreshCount, result.ReuseCount)
	}

	// The radius batch ranks first, fills to capacity and completes.
	first := result.Distributions[0]
	if first.BatchID != batchA.ID {
		t.Errorf("first distribution went to batch %s, want radius batch %s", first.BatchID, batchA.ID)
	}
	gotA, _ := store.GetBatch(context.Background(), batchA.ID)
	if gotA.CurrentCount != 5 || !gotA.IsCompleted || gotA.IsActive {
		t.Errorf("batch A state = count %d completed %v active %v, want 5/true/false",
			gotA.CurrentCount, gotA.IsCompleted, gotA.IsActive)
	}
	gotB, _ := store.GetBatch(context.Background(), batchB.ID)
	if gotB.CurrentCount != 1 || gotB.IsCompleted {
		t.Errorf("batch B state = count %d completed %v, want 1/false", gotB.CurrentCount, gotB.IsCompleted)
	}

	completed := bus.byName("allocation.batch.completed")
	if len(completed) != 1 {
		t.Fatalf("got %d batch completed events, want 1", len(completed))
	}
	if ev := completed[0].(events.BatchCompleted); ev.BatchID != batchA.ID {
		t.Errorf("completed event for batch %s, want %s", ev.BatchID, batchA.ID)
	}
	if len(bus.byName("allocation.distribution.created")) != 2 {
		t.Errorf("expected a distribution created event per distribution")
	}
	if len(sink.rows) != 2 {
		t.Errorf("got %d sink rows, want 2", len(sink.rows))
	}
	if bumps := store.counterBumps[lead.ID]; bumps != [2]int{2, 2} {
		t.Errorf("lead counters bumped by %v, want {2 2}", bumps)
	}
}

func TestExecuteCapsFreshAtTwo(t *testing.T) {
	store := newMemStore()
	for i := 0; i < 4; i++ {
		store.addBatch(testBatch("solar", countryDef(), 5, 0))
	}
	lead := testLead("solar", &utrecht)
	store.addLead(lead)

	exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
	result, err := exec.Execute(context.Background(), lead, rankFor(t, store, lead))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.FreshCount != 2 {
		t.Errorf("fresh count = %d, want 2", result.FreshCount)
	}
	if len(result.Distributions) != 2 {
		t.Errorf("distributions = %d, want 2", len(result.Distributions))
	}
}

func TestExecuteReuseOnlyWhenNoFresh(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)

	// Three eligible customers, all with a distribution older than the window.
	for i := 0; i < 3; i++ {
		batch := testBatch("solar", countryDef(), 5, 0)
		store.addBatch(batch)
		store.addDistribution(repository.Distribution{
			ID:         uuid.New(),
			LeadID:     lead.ID,
			CustomerID: batch.CustomerID,
			BatchID:    batch.ID,
			Kind:       repository.KindFresh,
			SinkStatus: repository.SinkSynced,
			CreatedAt:  now.Add(-40 * 24 * time.Hour),
		})
	}

	exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
	result, err := exec.Execute(context.Background(), lead, rankFor(t, store, lead))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.FreshCount != 0 || result.ReuseCount != 2 {
		t.Fatalf("got %d fresh, %d reuse, want 0 fresh, 2 reuse", result.FreshCount, result.ReuseCount)
	}
	for _, d := range result.Distributions {
		if d.Kind != repository.KindReuse {
			t.Errorf("distribution kind = %s, want reuse", d.Kind)
		}
	}
	// Reuse is a bonus delivery: no quota was consumed.
	batches, _ := store.ListOpenBatches(context.Background(), "solar")
	for _, b := range batches {
		if b.CurrentCount != 0 {
			t.Errorf("reuse delivery consumed quota on batch %s", b.ID)
		}
	}
	if bumps := store.counterBumps[lead.ID]; bumps != [2]int{2, 0} {
		t.Errorf("lead counters bumped by %v, want {2 0}", bumps)
	}
}

func TestExecuteNeverMixesFreshAndReuse(t *testing.T) {
	now := time.Now()
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)

	fresh := testBatch("solar", countryDef(), 5, 0)
	store.addBatch(fresh)

	stale := testBatch("solar", countryDef(), 5, 0)
	store.addBatch(stale)
	store.addDistribution(repository.Distribution{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		CustomerID: stale.CustomerID,
		BatchID:    stale.ID,
		Kind:       repository.KindFresh,
		SinkStatus: repository.SinkSynced,
		CreatedAt:  now.Add(-60 * 24 * time.Hour),
	})

	exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
	result, err := exec.Execute(context.Background(), lead, rankFor(t, store, lead))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// One fresh candidate exists, so the reuse candidate is never delivered
	// even though the pass has a slot left.
	if result.FreshCount != 1 || result.ReuseCount != 0 {
		t.Errorf("got %d fresh, %d reuse, want 1 fresh, 0 reuse", result.FreshCount, result.ReuseCount)
	}
}

func TestExecuteSkipsLostRace(t *testing.T) {
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)

	full := testBatch("solar", countryDef(), 3, 0)
	open := testBatch("solar", countryDef(), 5, 0)
	store.addBatch(full)
	store.addBatch(open)

	ranked := rankFor(t, store, lead)

	// Drain the first batch between ranking and execution.
	for i := 0; i < 3; i++ {
		if _, err := store.TryIncrementBatchCount(context.Background(), full.ID); err != nil {
			t.Fatalf("drain increment failed: %v", err)
		}
	}

	exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
	result, err := exec.Execute(context.Background(), lead, ranked)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.FreshCount != 1 {
		t.Fatalf("fresh count = %d, want 1", result.FreshCount)
	}
	if result.Distributions[0].BatchID != open.ID {
		t.Errorf("distribution went to drained batch, want fallthrough to %s", open.ID)
	}
}

func TestExecuteNoCandidatesIsNotAnError(t *testing.T) {
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)

	exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
	result, err := exec.Execute(context.Background(), lead, Ranked{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(result.Distributions) != 0 {
		t.Errorf("expected no distributions")
	}
	if bumps, ok := store.counterBumps[lead.ID]; ok {
		t.Errorf("counters bumped by %v for an empty pass", bumps)
	}
}

func TestExecuteAbortedPassStillBumpsCounters(t *testing.T) {
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)
	store.addBatch(testBatch("solar", countryDef(), 5, 0))
	store.addBatch(testBatch("solar", countryDef(), 5, 0))
	store.createFailOn = 2
	store.createErr = errors.New("connection reset")

	exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
	result, err := exec.Execute(context.Background(), lead, rankFor(t, store, lead))
	if err == nil {
		t.Fatalf("expected the store error to surface")
	}
	if result.FreshCount != 1 {
		t.Fatalf("fresh count = %d, want 1 before the abort", result.FreshCount)
	}
	// The distribution made before the abort must still be counted.
	if bumps := store.counterBumps[lead.ID]; bumps != [2]int{1, 1} {
		t.Errorf("lead counters bumped by %v, want {1 1}", bumps)
	}
}

func TestExecuteSinkFailureDoesNotRollBack(t *testing.T) {
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)
	batch := testBatch("solar", countryDef(), 5, 0)
	store.addBatch(batch)

	bus := &recordingBus{}
	retries := &recordingRetries{}
	sink := &recordingSink{err: errors.New("bridge unreachable")}
	exec := newTestExecutor(store, sink, retries, bus)

	result, err := exec.Execute(context.Background(), lead, rankFor(t, store, lead))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.FreshCount != 1 {
		t.Fatalf("fresh count = %d, want 1", result.FreshCount)
	}

	dist := result.Distributions[0]
	if dist.SinkStatus != repository.SinkFailed {
		t.Errorf("sink status = %s, want failed", dist.SinkStatus)
	}
	// Quota consumption and the distribution row both survive the failed push.
	got, _ := store.GetBatch(context.Background(), batch.ID)
	if got.CurrentCount != 1 {
		t.Errorf("batch count = %d, want 1", got.CurrentCount)
	}
	if _, err := store.GetDistribution(context.Background(), dist.ID); err != nil {
		t.Errorf("distribution row missing after sink failure: %v", err)
	}
	if len(retries.scheduled) != 1 || retries.scheduled[0] != dist.ID {
		t.Errorf("retry scheduled for %v, want [%s]", retries.scheduled, dist.ID)
	}
	if len(bus.byName("allocation.sink.sync_failed")) != 1 {
		t.Errorf("expected a sink sync failed event")
	}
}

func TestRepushSink(t *testing.T) {
	store := newMemStore()
	lead := testLead("solar", &utrecht)
	store.addLead(lead)
	batch := testBatch("solar", countryDef(), 5, 1)
	store.addBatch(batch)

	dist := repository.Distribution{
		LeadID:     lead.ID,
		CustomerID: batch.CustomerID,
		BatchID:    batch.ID,
		Kind:       repository.KindFresh,
		SinkStatus: repository.SinkFailed,
	}
	if err := store.CreateDistribution(context.Background(), &dist); err != nil {
		t.Fatalf("CreateDistribution failed: %v", err)
	}

	sink := &recordingSink{err: errors.New("still down")}
	exec := newTestExecutor(store, sink, nil, &recordingBus{})

	if err := exec.RepushSink(context.Background(), dist); err == nil {
		t.Fatalf("expected the sink error to surface for retry backoff")
	}

	sink.err = nil
	if err := exec.RepushSink(context.Background(), dist); err != nil {
		t.Fatalf("RepushSink failed: %v", err)
	}
	got, _ := store.GetDistribution(context.Background(), dist.ID)
	if got.SinkStatus != repository.SinkSynced {
		t.Errorf("sink status = %s, want synced", got.SinkStatus)
	}
	if len(sink.targets) != 1 || sink.targets[0] != batch.SinkTarget {
		t.Errorf("pushed to %v, want [%s]", sink.targets, batch.SinkTarget)
	}
}

func TestExecuteConcurrentPassesRespectCapacity(t *testing.T) {
	store := newMemStore()
	batch := testBatch("solar", countryDef(), 10, 0)
	store.addBatch(batch)

	var g errgroup.Group
	for i := 0; i < 40; i++ {
		lead := testLead("solar", &utrecht)
		store.addLead(lead)
		g.Go(func() error {
			exec := newTestExecutor(store, &recordingSink{}, nil, &recordingBus{})
			ranked, err := NewRanker(store, logger.New("test")).Rank(context.Background(), lead, time.Now())
			if err != nil {
				return err
			}
			_, err = exec.Execute(context.Background(), lead, ranked)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent passes failed: %v", err)
	}

	got, _ := store.GetBatch(context.Background(), batch.ID)
	if got.CurrentCount != got.TotalCapacity {
		t.Errorf("final count = %d, want exactly %d", got.CurrentCount, got.TotalCapacity)
	}
	if !got.IsCompleted || got.IsActive {
		t.Errorf("batch completed=%v active=%v after filling, want true/false", got.IsCompleted, got.IsActive)
	}
}
